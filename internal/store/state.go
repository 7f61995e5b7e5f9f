package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"bear-monitor/internal/models"
)

// 持久化键名
const (
	KeyAuth     = "bear.auth"
	KeySettings = "bear.settings"
)

// AuthRecord bear.auth 的内容
type AuthRecord struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// AuthSession 登录凭据，实现 alert.TokenSource
type AuthSession struct {
	kv KV

	mu     sync.RWMutex
	record *AuthRecord
}

// NewAuthSession 创建登录凭据存储
func NewAuthSession(kv KV) *AuthSession {
	return &AuthSession{kv: kv}
}

// Load 从存储加载，未登录时不报错
func (a *AuthSession) Load(ctx context.Context) error {
	var rec AuthRecord
	if err := getJSON(ctx, a.kv, KeyAuth, &rec); err != nil {
		if errors.Is(err, ErrMiss) {
			a.mu.Lock()
			a.record = nil
			a.mu.Unlock()
			return nil
		}
		return err
	}
	a.mu.Lock()
	a.record = &rec
	a.mu.Unlock()
	return nil
}

// Save 保存登录结果
func (a *AuthSession) Save(ctx context.Context, rec AuthRecord) error {
	if err := setJSON(ctx, a.kv, KeyAuth, rec); err != nil {
		return err
	}
	a.mu.Lock()
	a.record = &rec
	a.mu.Unlock()
	return nil
}

// Clear 退出登录
func (a *AuthSession) Clear(ctx context.Context) error {
	if err := a.kv.Delete(ctx, KeyAuth); err != nil {
		return fmt.Errorf("failed to delete %s: %w", KeyAuth, err)
	}
	a.mu.Lock()
	a.record = nil
	a.mu.Unlock()
	return nil
}

// Token 当前 bearer token
func (a *AuthSession) Token() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.record == nil || a.record.Token == "" {
		return "", false
	}
	return a.record.Token, true
}

// User 当前用户
func (a *AuthSession) User() (models.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.record == nil {
		return models.User{}, false
	}
	return a.record.User, true
}

// SettingsStore 用户设置
type SettingsStore struct {
	kv KV

	mu       sync.RWMutex
	settings models.Settings
}

// NewSettingsStore 创建设置存储（初始为默认值）
func NewSettingsStore(kv KV) *SettingsStore {
	return &SettingsStore{kv: kv, settings: models.DefaultSettings()}
}

// Load 从存储加载，缺失的字段保持默认值
func (s *SettingsStore) Load(ctx context.Context) error {
	settings := models.DefaultSettings()
	if err := getJSON(ctx, s.kv, KeySettings, &settings); err != nil && !errors.Is(err, ErrMiss) {
		return err
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// Get 当前设置
func (s *SettingsStore) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Save 保存设置
func (s *SettingsStore) Save(ctx context.Context, settings models.Settings) error {
	if settings.Appearance == "" {
		settings.Appearance = models.DefaultSettings().Appearance
	}
	if err := setJSON(ctx, s.kv, KeySettings, settings); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// HealthAlertsEnabled 告警分发开关
func (s *SettingsStore) HealthAlertsEnabled() bool {
	return s.Get().HealthAlerts
}

func getJSON(ctx context.Context, kv KV, key string, dest interface{}) error {
	val, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return err
		}
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func setJSON(ctx context.Context, kv KV, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
