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

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterMonitorRoutes 注册监护会话接口
func (r *Router) RegisterMonitorRoutes(h *MonitorHandler) {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})

	r.Handle("/api/v1/session", h.GetSession)
	r.Handle("/api/v1/session/connect", h.Connect)
	r.Handle("/api/v1/session/disconnect", h.Disconnect)

	r.Handle("/api/v1/warnings", h.Warnings)
	r.Handle("/api/v1/warnings/", h.RemoveWarning)

	r.Handle("/api/v1/history", h.History)
	r.Handle("/api/v1/history/series", h.Series)
	r.Handle("/api/v1/report.xlsx", h.Report)

	if h.settings != nil {
		r.Handle("/api/v1/settings", h.Settings)
	}
}
