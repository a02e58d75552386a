package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/weichenlin/grouplab-api/internal/models"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
)

type impersonationStore interface {
	SetImpersonation(ctx context.Context, actorID, targetID string, ttl time.Duration) error
	GetImpersonation(ctx context.Context, actorID string) (string, error)
	ClearImpersonation(ctx context.Context, actorID string) error
}

type impersonationUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ImpersonationService lets professors act as a student for support and
// troubleshooting. The marker lives in the session store and is keyed by the
// acting professor, so stopping or expiry always falls back to the real user.
type ImpersonationService struct {
	sessions impersonationStore
	users    impersonationUserReader
	ttl      time.Duration
	logger   *zap.Logger
}

// NewImpersonationService constructs ImpersonationService. ttl bounds how long
// a marker survives without being stopped explicitly.
func NewImpersonationService(sessions impersonationStore, users impersonationUserReader, ttl time.Duration, logger *zap.Logger) *ImpersonationService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImpersonationService{sessions: sessions, users: users, ttl: ttl, logger: logger}
}

// Start begins impersonating the target student on behalf of the actor.
func (s *ImpersonationService) Start(ctx context.Context, actor *models.User, targetID string) (*models.User, error) {
	if actor == nil || actor.Role != models.RoleProfessor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only professors can impersonate")
	}
	if targetID == actor.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot impersonate yourself")
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if target.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only students can be impersonated")
	}
	if err := s.sessions.SetImpersonation(ctx, actor.ID, target.ID, s.ttl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start impersonation")
	}
	s.logger.Info("impersonation started",
		zap.String("actor_id", actor.ID),
		zap.String("target_id", target.ID))
	return target, nil
}

// Stop ends any active impersonation for the actor. Stopping when none is
// active is a no-op.
func (s *ImpersonationService) Stop(ctx context.Context, actorID string) error {
	if err := s.sessions.ClearImpersonation(ctx, actorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stop impersonation")
	}
	s.logger.Info("impersonation stopped", zap.String("actor_id", actorID))
	return nil
}

// Resolve builds the request identity for the authenticated actor. A stale
// marker pointing at a removed user is cleared and the actor continues as
// themselves.
func (s *ImpersonationService) Resolve(ctx context.Context, actor *models.User) (*models.Identity, error) {
	identity := &models.Identity{Effective: actor, Actor: actor}
	if actor == nil || actor.Role != models.RoleProfessor {
		return identity, nil
	}
	targetID, err := s.sessions.GetImpersonation(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve identity")
	}
	if targetID == "" {
		return identity, nil
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("clearing stale impersonation marker",
				zap.String("actor_id", actor.ID),
				zap.String("target_id", targetID))
			_ = s.sessions.ClearImpersonation(ctx, actor.ID)
			return identity, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load impersonated user")
	}
	identity.Effective = target
	identity.IsImpersonating = true
	return identity, nil
}
