package http

import (
	"context"

	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/internal/projects/domain"
)

type Service interface {
	Create(ctx context.Context, in domain.CreateInput) (*domain.Project, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Project, error)
	Get(ctx context.Context, id int64) (*domain.Project, error)
	Update(ctx context.Context, id int64, in domain.UpdateInput) (*domain.Project, error)
	Delete(ctx context.Context, id int64) error
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	svc Service
	log *zap.Logger
}

func New(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}
