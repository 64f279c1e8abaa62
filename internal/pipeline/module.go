// Package pipeline wires the stage graph, transition orchestrator and
// drag-and-drop board controller into an HTTP module.
package pipeline

import (
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	leadrepo "salesdesk_backend/internal/leads/repository"
	leadservice "salesdesk_backend/internal/leads/service"
	"salesdesk_backend/internal/pipeline/board"
	"salesdesk_backend/internal/pipeline/handler"
	"salesdesk_backend/internal/pipeline/service"
	"salesdesk_backend/internal/pipeline/sideeffect"
	"salesdesk_backend/internal/scheduler"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(
	repo *leadrepo.Repository,
	leads *leadservice.Service,
	enqueuer scheduler.Enqueuer,
	bus events.Bus,
	cfg config.PipelineConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	dispatcher := sideeffect.NewAsynqDispatcher(enqueuer, log)
	orch := service.NewOrchestrator(repo, dispatcher, bus, log, service.Options{
		PendingTTL:   cfg.GetPendingCaptureTTL(),
		FollowUpDays: cfg.GetProposalFollowUpDays(),
	})
	controller := board.NewController(repo, orch, log)

	return &Module{
		handler: handler.New(leads, controller, val),
	}
}

func (m *Module) Name() string {
	return "pipeline"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/pipeline"))
}

var _ apphttp.Module = (*Module)(nil)
