package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rounds-hq/rounds/internal/platform/httpx"
	"github.com/rounds-hq/rounds/internal/shared"
)

// Handler exposes the role administration API consumed by the platform UI
// and operational tooling.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *Resolver
	validate *validator.Validate
	rbac     Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver *Resolver, rbac Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		resolver: resolver,
		validate: validator.New(),
		rbac:     rbac,
	}
}

type grantRequest struct {
	Role        string `json:"role" validate:"required"`
	MakePrimary bool   `json:"make_primary"`
}

type switchRequest struct {
	Role string `json:"role" validate:"required"`
}

type assignmentResponse struct {
	ID          int64     `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	Role        string    `json:"role"`
	IsPrimary   bool      `json:"is_primary"`
	AssignedBy  *int64    `json:"assigned_by,omitempty"`
	AssignedAt  time.Time `json:"assigned_at"`
	IsActive    bool      `json:"is_active"`
}

type roleResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Priority    int      `json:"priority"`
	IsSystem    bool     `json:"is_system"`
	Permissions []string `json:"permissions"`
}

type snapshotResponse struct {
	PrincipalID     int64    `json:"principal_id"`
	Permissions     []string `json:"permissions"`
	Roles           []string `json:"roles"`
	HighestPriority int      `json:"highest_priority"`
}

// MountRoutes registers role administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermRolesView))
		r.Get("/roles", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermPermissionsView))
		r.Get("/permissions", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermUsersView))
		r.Get("/principals/{principalID}/permissions", h.effectivePermissions)
		r.Get("/principals/{principalID}/assignments", h.listAssignments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermRolesAssign))
		r.Post("/principals/{principalID}/roles", h.grantRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermRolesRevoke))
		r.Delete("/principals/{principalID}/roles/{roleName}", h.revokeRole)
	})
	// Context switching is self-service for any authenticated principal.
	r.Get("/context", h.activeContext)
	r.Post("/context", h.switchContext)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.Roles(r.Context())
	if err != nil {
		h.serverError(w, "list roles", err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{
			Name:        role.Name,
			Description: role.Description,
			Priority:    role.Priority,
			IsSystem:    role.IsSystem,
			Permissions: role.Permissions,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.Permissions(r.Context())
	if err != nil {
		h.serverError(w, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	principalID, ok := pathPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid principal id")
		return
	}
	snapshot, err := h.resolver.Resolve(r.Context(), principalID)
	if err != nil {
		h.serverError(w, "resolve principal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, snapshotResponse{
		PrincipalID:     snapshot.PrincipalID,
		Permissions:     snapshot.PermissionKeys(),
		Roles:           snapshot.RoleNames(),
		HighestPriority: snapshot.HighestPriority,
	})
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	principalID, ok := pathPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid principal id")
		return
	}
	assignments, err := h.service.Assignments(r.Context(), principalID)
	if err != nil {
		h.serverError(w, "list assignments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAssignmentResponses(assignments))
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	principalID, ok := pathPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid principal id")
		return
	}
	actorID, _ := h.rbac.currentPrincipalID(r)

	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	assignment, err := h.service.GrantRole(r.Context(), actorID, principalID, req.Role, req.MakePrimary)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
			return
		}
		h.serverError(w, "grant role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAssignmentResponse(assignment))
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	principalID, ok := pathPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid principal id")
		return
	}
	actorID, _ := h.rbac.currentPrincipalID(r)
	roleName := chi.URLParam(r, "roleName")

	if err := h.service.RevokeRole(r.Context(), actorID, principalID, roleName); err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
			return
		}
		h.serverError(w, "revoke role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activeContext(w http.ResponseWriter, r *http.Request) {
	principalID, ok := h.rbac.currentPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	active, err := h.service.ActiveContextFor(r.Context(), principalID)
	if err != nil {
		h.serverError(w, "read active context", err)
		return
	}
	if active == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.JSON(w, http.StatusOK, active)
}

func (h *Handler) switchContext(w http.ResponseWriter, r *http.Request) {
	principalID, ok := h.rbac.currentPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	var req switchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	active, err := h.service.SwitchContext(r.Context(), principalID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrRoleNotFound):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
		case errors.Is(err, ErrNotAssigned):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role not assigned")
		default:
			h.serverError(w, "switch context", err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, active)
}

func (h *Handler) serverError(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func pathPrincipalID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "principalID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func toAssignmentResponse(a Assignment) assignmentResponse {
	return assignmentResponse{
		ID:          a.ID,
		PrincipalID: a.PrincipalID,
		Role:        a.RoleName,
		IsPrimary:   a.IsPrimary,
		AssignedBy:  a.AssignedBy,
		AssignedAt:  a.AssignedAt,
		IsActive:    a.IsActive,
	}
}

func toAssignmentResponses(assignments []Assignment) []assignmentResponse {
	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toAssignmentResponse(a))
	}
	return out
}
