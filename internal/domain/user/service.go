package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/tocdoc/tocdoc/internal/platform/apperr"
	"github.com/tocdoc/tocdoc/internal/platform/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveUser upserts the user row for a verified email and returns its id.
// It implements auth.UserResolver: the first request from a new email
// creates the account with the derived role.
func (s *Service) ResolveUser(ctx context.Context, email string, role auth.Role) (uuid.UUID, error) {
	u, err := s.repo.Upsert(ctx, email, role)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

// Doctor returns the user with the given id, requiring the DOCTOR role.
// Used to validate physician assignments on events and patients.
func (s *Service) Doctor(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsDoctor() {
		return nil, apperr.Validation("doctorId", "does not reference a doctor")
	}
	return u, nil
}

// DoctorByEmail resolves a physician by email, as the batch-import flow
// references physicians that way.
func (s *Service) DoctorByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !u.IsDoctor() {
		return nil, apperr.Validation("physicianEmail", "does not reference a doctor")
	}
	return u, nil
}

// ListDoctors returns the doctor directory, ordered by email. Admin only.
func (s *Service) ListDoctors(ctx context.Context, id auth.Identity) ([]*User, error) {
	if !id.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	return s.repo.ListByRole(ctx, auth.RoleDoctor)
}
