package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/rounds-hq/rounds/internal/platform/httpx"
	"github.com/rounds-hq/rounds/internal/shared"
)

// DecisionObserver receives every allow/deny outcome for telemetry.
type DecisionObserver interface {
	ObserveDecision(allowed bool, reason string)
}

// Middleware wires authorization guards for HTTP handlers. All guards fail
// closed: when permissions cannot be resolved the request is denied, never
// allowed through.
type Middleware struct {
	Checker  *Checker
	Logger   *slog.Logger
	Observer DecisionObserver
}

// RequirePermission ensures the current principal holds the permission.
func (m Middleware) RequirePermission(key string) func(http.Handler) http.Handler {
	return m.guard(func(ctx context.Context, principalID int64) (Decision, error) {
		return m.Checker.HasPermission(ctx, principalID, key)
	})
}

// RequireAny ensures the current principal has at least one of the
// permissions.
func (m Middleware) RequireAny(keys ...string) func(http.Handler) http.Handler {
	return m.guard(func(ctx context.Context, principalID int64) (Decision, error) {
		return m.Checker.HasAnyPermission(ctx, principalID, keys...)
	})
}

// RequireAll ensures the current principal has all of the permissions.
func (m Middleware) RequireAll(keys ...string) func(http.Handler) http.Handler {
	return m.guard(func(ctx context.Context, principalID int64) (Decision, error) {
		return m.Checker.HasAllPermissions(ctx, principalID, keys...)
	})
}

// RequireRole ensures the current principal actively holds the role.
func (m Middleware) RequireRole(name string) func(http.Handler) http.Handler {
	return m.guard(func(ctx context.Context, principalID int64) (Decision, error) {
		return m.Checker.HasRole(ctx, principalID, name)
	})
}

// RequireMinimumLevel ensures the principal's highest role priority is at
// least the named role's priority.
func (m Middleware) RequireMinimumLevel(roleName string) func(http.Handler) http.Handler {
	return m.guard(func(ctx context.Context, principalID int64) (Decision, error) {
		return m.Checker.MeetsMinimumRoleLevel(ctx, principalID, roleName)
	})
}

func (m Middleware) guard(check func(context.Context, int64) (Decision, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := m.currentPrincipalID(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			decision, err := check(r.Context(), principalID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authorization check", slog.Int64("principal", principalID), slog.Any("error", err))
				}
				// Fail closed.
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if m.Observer != nil {
				m.Observer.ObserveDecision(decision.Allowed, string(decision.Reason))
			}
			if !decision.Allowed {
				httpx.Deny(w, string(decision.Reason))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentPrincipalID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse principal id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
