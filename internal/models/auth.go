package models

// User 对外展示的用户信息
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// SignInRequest POST /api/auth/signin 请求体
// Identifier 可以是用户名或邮箱
type SignInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// SignInResponse POST /api/auth/signin 响应体
type SignInResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Settings 用户可见设置
type Settings struct {
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	HealthAlerts         bool   `json:"healthAlerts"`
	AppUpdates           bool   `json:"appUpdates"`
	Appearance           string `json:"appearance"`
}

// DefaultSettings 默认设置
func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled: true,
		HealthAlerts:         true,
		AppUpdates:           false,
		Appearance:           "default",
	}
}
