// Package clients provides the client management bounded context module.
package clients

import (
	"salesdesk_backend/internal/clients/handler"
	"salesdesk_backend/internal/clients/repository"
	"salesdesk_backend/internal/clients/service"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)

	return &Module{
		handler: handler.New(svc, val),
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "clients"
}

// Repository exposes the client repository for the conversion workflow's
// duplicate check.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/clients"))
}

var _ apphttp.Module = (*Module)(nil)
