package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bear-monitor/internal/backend/mailer"
	"bear-monitor/internal/backend/otp"
	"bear-monitor/internal/backend/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*repository.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*repository.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *repository.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByIdentifier(_ context.Context, identifier string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == identifier || u.Email == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return f.GetByIdentifier(ctx, email)
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type fakeContacts struct {
	mu       sync.Mutex
	contacts map[string][]repository.Contact
	listErr  error
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{contacts: make(map[string][]repository.Contact)}
}

func (f *fakeContacts) List(_ context.Context, userID string) ([]repository.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]repository.Contact, len(f.contacts[userID]))
	copy(out, f.contacts[userID])
	return out, nil
}

func (f *fakeContacts) Create(_ context.Context, c *repository.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.contacts[c.UserID] {
		if existing.Email == c.Email {
			return repository.ErrDuplicate
		}
	}
	c.CreatedAt = time.Now()
	f.contacts[c.UserID] = append(f.contacts[c.UserID], *c)
	return nil
}

func (f *fakeContacts) Delete(_ context.Context, userID, contactID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.contacts[userID]
	for i, c := range list {
		if c.ID == contactID {
			f.contacts[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeContacts) Replace(_ context.Context, userID string, contacts []repository.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Contact, len(contacts))
	for i, c := range contacts {
		c.UserID = userID
		out[i] = c
	}
	f.contacts[userID] = out
	return nil
}

func (f *fakeContacts) Count(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.contacts[userID]), nil
}

type recordingMailer struct {
	mu     sync.Mutex
	sent   []mailer.Message
	failTo map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[msg.To] {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mailer.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

type testDeps struct {
	users    *fakeUsers
	contacts *fakeContacts
	mailer   *recordingMailer
	otps     *otp.Store
	tokens   *TokenIssuer
	auth     *AuthService
	health   *HealthService
	contact  *ContactService
}

func newTestDeps(t *testing.T) *testDeps {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d := &testDeps{
		users:    newFakeUsers(),
		contacts: newFakeContacts(),
		mailer:   &recordingMailer{failTo: map[string]bool{}},
		otps:     otp.NewStore(client, "", 0, 0),
		tokens:   NewTokenIssuer("test-secret", 0),
	}
	logger := zap.NewNop()
	d.auth = NewAuthService(d.users, d.otps, d.mailer, d.tokens, logger)
	d.health = NewHealthService(d.users, d.contacts, d.mailer, logger)
	d.contact = NewContactService(d.contacts, logger)
	return d
}

func (d *testDeps) signUp(t *testing.T) string {
	t.Helper()
	id, err := d.auth.SignUp(context.Background(), SignUpInput{
		Username:        "Bear",
		DisplayName:     "Bear Cub",
		Email:           "Bear@Example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	return id
}
