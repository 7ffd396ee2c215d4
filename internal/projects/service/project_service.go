package service

import (
	"context"
	"strings"

	"github.com/wemb-pms/pms-backend/internal/projects/domain"
)

// Store is the persistence surface ProjectService needs.
type Store interface {
	Create(ctx context.Context, in domain.CreateInput) (*domain.Project, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Project, error)
	Get(ctx context.Context, id int64) (*domain.Project, error)
	Update(ctx context.Context, id int64, in domain.UpdateInput) (*domain.Project, error)
	SetStatusPhase(ctx context.Context, id int64, status, phase string) error
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

// ProjectService handles project-related business logic
type ProjectService struct {
	repo Store
}

func NewProjectService(repo Store) *ProjectService {
	return &ProjectService{repo: repo}
}

func (s *ProjectService) Create(ctx context.Context, in domain.CreateInput) (*domain.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	if in.Name == "" {
		return nil, domain.ErrNameRequired
	}
	if in.Code != "" && !domain.ValidCode(in.Code) {
		return nil, domain.ErrInvalidCode
	}
	return s.repo.Create(ctx, in)
}

func (s *ProjectService) List(ctx context.Context, f domain.ListFilter) ([]domain.Project, error) {
	if f.Status != "" && !domain.IsValidStatus(f.Status) {
		return nil, domain.ErrInvalidStatus
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f)
}

func (s *ProjectService) Get(ctx context.Context, id int64) (*domain.Project, error) {
	return s.repo.Get(ctx, id)
}

// Update applies a partial update. A status change without an explicit phase
// lets the stored phase follow the status on the next read.
func (s *ProjectService) Update(ctx context.Context, id int64, in domain.UpdateInput) (*domain.Project, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrNameRequired
		}
		in.Name = &name
	}
	if in.Code != nil && !domain.ValidCode(*in.Code) {
		return nil, domain.ErrInvalidCode
	}
	if in.Status != nil && !domain.IsValidStatus(*in.Status) {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.Update(ctx, id, in)
}

// SetStatusPhase is called by the estimation and settlement services when a
// project moves to its next stage.
func (s *ProjectService) SetStatusPhase(ctx context.Context, id int64, status, phase string) error {
	if !domain.IsValidStatus(status) {
		return domain.ErrInvalidStatus
	}
	return s.repo.SetStatusPhase(ctx, id, status, phase)
}

// Delete soft-deletes a project
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
