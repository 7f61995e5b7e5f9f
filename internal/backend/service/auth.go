package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"bear-monitor/internal/backend/mailer"
	"bear-monitor/internal/backend/otp"
	"bear-monitor/internal/backend/repository"
	"bear-monitor/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 10
	minUsernameLength = 3
	minPasswordLength = 6
)

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// OTPStore 验证码存储
type OTPStore interface {
	Issue(ctx context.Context, email, userID string) (string, error)
	Verify(ctx context.Context, email, code string) (string, error)
	ConsumeResetToken(ctx context.Context, token string) (string, error)
	CodeTTL() time.Duration
}

// AuthService 注册、登录、找回密码
type AuthService struct {
	users  repository.UserRepository
	otps   OTPStore
	mailer mailer.Mailer
	tokens *TokenIssuer
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, otps OTPStore, m mailer.Mailer, tokens *TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, otps: otps, mailer: m, tokens: tokens, logger: logger}
}

// SignUpInput 注册请求
type SignUpInput struct {
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// SignUp 注册，返回用户ID
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (string, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	displayName := strings.TrimSpace(in.DisplayName)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	v := &validator{}
	v.check(len(username) >= minUsernameLength, "username", "Username must be at least 3 characters")
	v.check(displayName != "", "displayName", "Display name is required")
	v.check(validEmail(email), "email", "Valid email is required")
	v.check(len(in.Password) >= minPasswordLength, "password", "Password must be at least 6 characters")
	v.check(in.ConfirmPassword == in.Password, "confirmPassword", "Passwords do not match")
	if err := v.err(); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	u := &repository.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: string(hash),
		IsVerified:   true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrUserExists
		}
		return "", err
	}
	s.logger.Info("User signed up", zap.String("user_id", u.ID), zap.String("username", username))
	return u.ID, nil
}

// SignIn 用户名或邮箱登录
func (s *AuthService) SignIn(ctx context.Context, identifier, password string) (*models.SignInResponse, error) {
	identifier = strings.TrimSpace(identifier)

	v := &validator{}
	v.check(len(identifier) >= minUsernameLength, "identifier", "Username or email is required")
	v.check(len(password) >= minPasswordLength, "password", "Invalid value")
	if err := v.err(); err != nil {
		return nil, err
	}

	u, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	return &models.SignInResponse{Token: token, User: publicUser(u)}, nil
}

// ForgotPassword 账号存在时发送验证码；账号不存在也返回 nil
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	v := &validator{}
	v.check(validEmail(email), "email", "Valid email is required")
	if err := v.err(); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	code, err := s.otps.Issue(ctx, u.Email, u.ID)
	if err != nil {
		return err
	}
	msg, err := mailer.PasswordResetOTP(u.Email, code, s.otps.CodeTTL())
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		// 不向调用方暴露账号是否存在
		s.logger.Error("Failed to send OTP email", zap.String("user_id", u.ID), zap.Error(err))
	}
	return nil
}

// VerifyOTP 校验验证码，返回一次性重置令牌
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	v := &validator{}
	v.check(validEmail(email), "email", "Valid email is required")
	v.check(otpPattern.MatchString(code), "code", "Please enter a valid 6-digit OTP")
	if err := v.err(); err != nil {
		return "", err
	}

	token, err := s.otps.Verify(ctx, email, code)
	if err != nil {
		if errors.Is(err, otp.ErrInvalidCode) {
			return "", ErrInvalidCode
		}
		return "", err
	}
	return token, nil
}

// ResetPasswordInput 重置密码请求
// 提供 ResetToken，或者 Email + OTP（直接校验验证码）。
type ResetPasswordInput struct {
	ResetToken      string `json:"resetToken"`
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPassword 重置密码
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	password := in.Password
	if password == "" {
		password = in.NewPassword
	}

	v := &validator{}
	v.check(in.ResetToken != "" || (in.Email != "" && in.OTP != ""), "resetToken", "Reset token is required")
	v.check(len(password) >= minPasswordLength, "password", "Password must be at least 6 characters")
	v.check(in.ConfirmPassword == "" || in.ConfirmPassword == password, "confirmPassword", "Passwords do not match")
	if err := v.err(); err != nil {
		return err
	}

	token := in.ResetToken
	if token == "" {
		t, err := s.VerifyOTP(ctx, in.Email, in.OTP)
		if err != nil {
			return err
		}
		token = t
	}

	userID, err := s.otps.ConsumeResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, otp.ErrInvalidCode) {
			return ErrInvalidToken
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("Password reset", zap.String("user_id", userID))
	return nil
}

// Authenticate 校验登录令牌
func (s *AuthService) Authenticate(token string) (*Claims, error) {
	return s.tokens.Parse(token)
}

func publicUser(u *repository.User) models.User {
	return models.User{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, Email: u.Email}
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@")+1:], ".")
}
