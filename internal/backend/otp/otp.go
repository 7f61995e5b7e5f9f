package otp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultCodeTTL       = 10 * time.Minute
	DefaultResetTokenTTL = 15 * time.Minute
	DefaultKeyPrefix     = "bear:otp:"

	// CodeLength 验证码位数
	CodeLength = 6
)

// ErrInvalidCode 验证码或重置令牌无效/过期/已使用
var ErrInvalidCode = errors.New("invalid or expired code")

// Store 一次性验证码与密码重置令牌（Redis）
// 验证码按邮箱存放，新验证码覆盖旧验证码；验证成功后删除并签发一次性重置令牌。
type Store struct {
	client        *redis.Client
	prefix        string
	codeTTL       time.Duration
	resetTokenTTL time.Duration
}

// NewStore ttl 为 0 时取默认值
func NewStore(client *redis.Client, prefix string, codeTTL, resetTokenTTL time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if codeTTL <= 0 {
		codeTTL = DefaultCodeTTL
	}
	if resetTokenTTL <= 0 {
		resetTokenTTL = DefaultResetTokenTTL
	}
	return &Store{client: client, prefix: prefix, codeTTL: codeTTL, resetTokenTTL: resetTokenTTL}
}

func (s *Store) codeKey(email string) string {
	return s.prefix + "code:" + normalize(email)
}

func (s *Store) resetKey(token string) string {
	return s.prefix + "reset:" + token
}

// CodeTTL 验证码有效期
func (s *Store) CodeTTL() time.Duration {
	return s.codeTTL
}

// Issue 生成并保存 6 位验证码
func (s *Store) Issue(ctx context.Context, email, userID string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.codeKey(email), userID+":"+code, s.codeTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	return code, nil
}

// Verify 校验验证码，成功后返回一次性重置令牌
func (s *Store) Verify(ctx context.Context, email, code string) (string, error) {
	key := s.codeKey(email)
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("failed to read otp: %w", err)
	}
	userID, stored, ok := strings.Cut(val, ":")
	if !ok || stored != strings.TrimSpace(code) {
		return "", ErrInvalidCode
	}

	// 删除成功者才能签发令牌，避免并发重复使用
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to consume otp: %w", err)
	}
	if n == 0 {
		return "", ErrInvalidCode
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.resetKey(token), userID, s.resetTokenTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}
	return token, nil
}

// ConsumeResetToken 使用重置令牌，返回对应用户ID
func (s *Store) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidCode
	}
	userID, err := s.client.GetDel(ctx, s.resetKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("failed to consume reset token: %w", err)
	}
	return userID, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateCode() (string, error) {
	// 100000..999999
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
