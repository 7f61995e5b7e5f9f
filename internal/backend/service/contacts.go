package service

import (
	"context"
	"errors"
	"strings"

	"bear-monitor/internal/backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContactService 紧急联系人管理
type ContactService struct {
	contacts repository.ContactRepository
	logger   *zap.Logger
}

func NewContactService(contacts repository.ContactRepository, logger *zap.Logger) *ContactService {
	return &ContactService{contacts: contacts, logger: logger}
}

// ContactInput 新增联系人请求
type ContactInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

func (s *ContactService) List(ctx context.Context, userID string) ([]repository.Contact, error) {
	return s.contacts.List(ctx, userID)
}

func (s *ContactService) Add(ctx context.Context, userID string, in ContactInput) (*repository.Contact, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	v := &validator{}
	v.check(validEmail(email), "email", "Valid email is required")
	if err := v.err(); err != nil {
		return nil, err
	}

	c := &repository.Contact{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		Relationship: strings.TrimSpace(in.Relationship),
	}
	if err := s.contacts.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrContactExists
		}
		return nil, err
	}
	s.logger.Info("Emergency contact added", zap.String("user_id", userID), zap.String("contact_id", c.ID))
	return c, nil
}

func (s *ContactService) Delete(ctx context.Context, userID, contactID string) error {
	if err := s.contacts.Delete(ctx, userID, contactID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrContactNotFound
		}
		return err
	}
	return nil
}

// SetPrimary 用单个邮箱替换全部联系人，空邮箱表示清空
func (s *ContactService) SetPrimary(ctx context.Context, userID, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return s.contacts.Replace(ctx, userID, nil)
	}
	v := &validator{}
	v.check(validEmail(email), "emergencyContactEmail", "Valid email is required")
	if err := v.err(); err != nil {
		return err
	}
	return s.contacts.Replace(ctx, userID, []repository.Contact{{ID: uuid.NewString(), Email: email}})
}

// Status 紧急联系人数量
func (s *ContactService) Status(ctx context.Context, userID string) (int, error) {
	return s.contacts.Count(ctx, userID)
}
