// Package conversion wires the lead-to-client conversion workflow.
package conversion

import (
	clientrepo "salesdesk_backend/internal/clients/repository"
	"salesdesk_backend/internal/conversion/handler"
	"salesdesk_backend/internal/conversion/repository"
	"salesdesk_backend/internal/conversion/service"
	"salesdesk_backend/internal/email"
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	leadrepo "salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/pipeline/sideeffect"
	"salesdesk_backend/internal/scheduler"
	"salesdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(
	pool *pgxpool.Pool,
	leads *leadrepo.Repository,
	clients *clientrepo.Repository,
	mailer email.Sender,
	enqueuer scheduler.Enqueuer,
	bus events.Bus,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	dispatcher := sideeffect.NewAsynqDispatcher(enqueuer, log)
	workflow := service.NewWorkflow(leads, clients, repo, mailer, dispatcher, bus, log)

	return &Module{
		handler: handler.New(workflow),
	}
}

func (m *Module) Name() string {
	return "conversion"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
