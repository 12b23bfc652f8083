package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/authz"
)

// ProjectMembershipRepo lists the projects a user belongs to or
// manages.
type ProjectMembershipRepo interface {
	AccessibleProjectIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ActorService builds the per-request authorization actor from the
// stored user record and their project memberships.
type ActorService struct {
	users    UserRepo
	projects ProjectMembershipRepo
}

func NewActorService(users UserRepo, projects ProjectMembershipRepo) *ActorService {
	return &ActorService{users: users, projects: projects}
}

// LoadActor resolves the user; deleted users come back as
// ErrUserNotFound from the repository and stay rejected here.
func (s *ActorService) LoadActor(ctx context.Context, userID uuid.UUID) (authz.Actor, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return authz.Actor{}, err
	}

	projectIDs, err := s.projects.AccessibleProjectIDs(ctx, userID)
	if err != nil {
		return authz.Actor{}, err
	}

	return authz.Actor{
		ID:         user.ID,
		Role:       user.Role,
		ProjectIDs: projectIDs,
	}, nil
}
