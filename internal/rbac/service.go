package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rounds-hq/rounds/internal/audit"
)

// Service orchestrates role assignment mutations. Every mutation writes its
// audit entry inside the same transaction, so the trail cannot diverge from
// the authoritative state.
type Service struct {
	repo     Repository
	resolver *Resolver
	contexts *ContextStore
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, resolver *Resolver, contexts *ContextStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, resolver: resolver, contexts: contexts, logger: logger}
}

// GrantRole creates an active assignment of the named role to the target
// principal. Granting a role the target already actively holds is an
// idempotent no-op returning the existing assignment; no audit entry is
// written because nothing changed. With makePrimary the target's other
// active assignments lose their primary flag in the same transaction.
// actorID <= 0 records a system bootstrap grant.
func (s *Service) GrantRole(ctx context.Context, actorID, targetPrincipalID int64, roleName string, makePrimary bool) (Assignment, error) {
	role, err := s.repo.RoleByName(ctx, roleName)
	if err != nil {
		return Assignment{}, err
	}

	var result Assignment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.ActiveAssignment(ctx, targetPrincipalID, role.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = *existing
			return nil
		}
		if makePrimary {
			if err := tx.ClearPrimary(ctx, targetPrincipalID); err != nil {
				return err
			}
		}
		assignment, err := tx.InsertAssignment(ctx, targetPrincipalID, role.ID, actorRef(actorID), makePrimary)
		if err != nil {
			return err
		}
		assignment.RoleName = role.Name
		result = assignment

		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:           actorRef(actorID),
			TargetPrincipalID: targetPrincipalID,
			Action:            audit.ActionGrant,
			RoleName:          role.Name,
			Details:           grantDetails(makePrimary),
		})
	})
	if errors.Is(err, ErrDuplicateActive) {
		// A concurrent grant committed first; adopt its assignment.
		return s.activeAssignment(ctx, targetPrincipalID, role.Name)
	}
	if err != nil {
		return Assignment{}, err
	}
	return result, nil
}

// RevokeRole soft-revokes the target's active assignment of the named role.
// The row is kept for history; a later re-grant creates a fresh record.
// Revoking a role the target does not actively hold is a no-op. If the
// revoked assignment was primary, no new primary is selected.
func (s *Service) RevokeRole(ctx context.Context, actorID, targetPrincipalID int64, roleName string) error {
	role, err := s.repo.RoleByName(ctx, roleName)
	if err != nil {
		return err
	}

	revoked := false
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.ActiveAssignment(ctx, targetPrincipalID, role.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
		if err := tx.DeactivateAssignment(ctx, existing.ID); err != nil {
			return err
		}
		revoked = true

		details := ""
		if existing.IsPrimary {
			details = "was primary"
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:           actorRef(actorID),
			TargetPrincipalID: targetPrincipalID,
			Action:            audit.ActionRevoke,
			RoleName:          role.Name,
			Details:           details,
		})
	})
	if err != nil {
		return err
	}
	if revoked {
		s.dropStaleContext(ctx, targetPrincipalID, role.Name)
	}
	return nil
}

// SwitchContext validates that the principal actively holds the named role
// and stores an ephemeral "acting as" context. Switching never narrows the
// principal's resolved permissions. Switching to a role not held fails with
// ErrNotAssigned.
func (s *Service) SwitchContext(ctx context.Context, principalID int64, roleName string) (ActiveContext, error) {
	if _, err := s.repo.RoleByName(ctx, roleName); err != nil {
		return ActiveContext{}, err
	}
	snapshot, err := s.resolver.Resolve(ctx, principalID)
	if err != nil {
		return ActiveContext{}, err
	}
	if !snapshot.HasRole(roleName) {
		return ActiveContext{}, fmt.Errorf("switch to %q: %w", roleName, ErrNotAssigned)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:           actorRef(principalID),
			TargetPrincipalID: principalID,
			Action:            audit.ActionContextSwitch,
			RoleName:          roleName,
		})
	})
	if err != nil {
		return ActiveContext{}, err
	}

	active := ActiveContext{PrincipalID: principalID, RoleName: roleName, SwitchedAt: time.Now().UTC()}
	if err := s.contexts.Set(ctx, active); err != nil {
		return ActiveContext{}, fmt.Errorf("rbac: store active context: %w", err)
	}
	return active, nil
}

// ActiveContextFor returns the principal's current "acting as" context, or
// nil when none is set.
func (s *Service) ActiveContextFor(ctx context.Context, principalID int64) (*ActiveContext, error) {
	return s.contexts.Get(ctx, principalID)
}

// Assignments returns the principal's full assignment history.
func (s *Service) Assignments(ctx context.Context, principalID int64) ([]Assignment, error) {
	return s.repo.Assignments(ctx, principalID)
}

// Roles lists all role definitions.
func (s *Service) Roles(ctx context.Context) ([]Role, error) {
	return s.repo.Roles(ctx)
}

// Permissions lists the permission catalog.
func (s *Service) Permissions(ctx context.Context) ([]Permission, error) {
	return s.repo.Permissions(ctx)
}

// dropStaleContext clears the active context if it points at the role that
// was just revoked. Best effort: a stale context only affects display.
func (s *Service) dropStaleContext(ctx context.Context, principalID int64, roleName string) {
	active, err := s.contexts.Get(ctx, principalID)
	if err != nil {
		s.logger.Warn("read active context", slog.Int64("principal", principalID), slog.Any("error", err))
		return
	}
	if active == nil || active.RoleName != roleName {
		return
	}
	if err := s.contexts.Clear(ctx, principalID); err != nil {
		s.logger.Warn("clear active context", slog.Int64("principal", principalID), slog.Any("error", err))
	}
}

func (s *Service) activeAssignment(ctx context.Context, principalID int64, roleName string) (Assignment, error) {
	assignments, err := s.repo.ActiveAssignments(ctx, principalID)
	if err != nil {
		return Assignment{}, err
	}
	for _, a := range assignments {
		if a.RoleName == roleName {
			return a, nil
		}
	}
	return Assignment{}, fmt.Errorf("rbac: assignment for %q vanished: %w", roleName, ErrIntegrity)
}

func actorRef(actorID int64) *int64 {
	if actorID <= 0 {
		return nil
	}
	return &actorID
}

func grantDetails(makePrimary bool) string {
	if makePrimary {
		return "granted as primary"
	}
	return ""
}
