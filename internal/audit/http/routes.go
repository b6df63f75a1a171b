package audithttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/rounds-hq/rounds/internal/rbac"
	"github.com/rounds-hq/rounds/internal/shared"
)

const exportRateLimit = 10
const exportRateWindow = time.Minute

// MountRoutes registers audit history and export endpoints. Exports are
// rate limited per authenticated principal.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(guard.RequirePermission(shared.PermAuditView))
		r.Get("/principals/{principalID}", h.handleHistory)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequirePermission(shared.PermAuditExport))
		r.Use(limiter)
		r.Get("/principals/{principalID}/export.csv", h.handleExportCSV)
		r.Post("/principals/{principalID}/export", h.handleExportAsync)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
