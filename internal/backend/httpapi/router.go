package httpapi

import (
	"net/http"
)

type Router struct {
	mux *http.ServeMux
}

func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRoutes 注册 /api/auth 与 /api/health 接口
func (r *Router) RegisterRoutes(h *Handler) {
	r.Handle("/api/health", h.Health)

	r.Handle("/api/auth/signup", h.SignUp)
	r.Handle("/api/auth/signin", h.SignIn)
	r.Handle("/api/auth/forgot-password", h.ForgotPassword)
	r.Handle("/api/auth/verify-otp", h.VerifyOTP)
	r.Handle("/api/auth/reset-password", h.ResetPassword)

	r.Handle("/api/auth/emergency-contacts", RequireAuth(h.auth, h.Contacts))
	r.Handle("/api/auth/emergency-contacts/", RequireAuth(h.auth, h.DeleteContact))
	r.Handle("/api/auth/update-emergency-contact", RequireAuth(h.auth, h.UpdateEmergencyContact))

	r.Handle("/api/health/alert", RequireAuth(h.auth, h.SendAlert))
	r.Handle("/api/health/status", RequireAuth(h.auth, h.Status))
}
