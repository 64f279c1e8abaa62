// Package notification provides the in-app notification module. Besides the
// HTTP surface it subscribes to pipeline events and fans them out to the
// teammates who should hear about someone else's action.
package notification

import (
	"context"

	apphttp "salesdesk_backend/internal/http"
	leadrepo "salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/notification/handler"
	"salesdesk_backend/internal/notification/repository"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type store interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Notification, error)
}

type leadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
}

type Module struct {
	handler *handler.Handler
	notifs  store
	leads   leadReader
	log     *logger.Logger
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	return &Module{
		handler: handler.New(repo),
		notifs:  repo,
		leads:   leadrepo.New(pool),
		log:     log,
	}
}

func (m *Module) Name() string {
	return "notifications"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

var _ apphttp.Module = (*Module)(nil)
