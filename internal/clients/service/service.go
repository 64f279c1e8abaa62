// Package service exposes client management on top of that repository:
// detail reads and service-line changes that keep the monthly fee derived.
package service

import (
	"context"
	"errors"

	"salesdesk_backend/internal/actor"
	"salesdesk_backend/internal/clients/repository"
	"salesdesk_backend/internal/money"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Store is the persistence surface the client service needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Client, error)
	List(ctx context.Context, limit, offset int) ([]repository.Client, error)
	AddService(ctx context.Context, params repository.AddServiceParams) (repository.ClientService, error)
	CancelService(ctx context.Context, clientID, serviceID uuid.UUID) (repository.ClientService, error)
	ListServices(ctx context.Context, clientID uuid.UUID) ([]repository.ClientService, error)
	ListCommissions(ctx context.Context, clientID uuid.UUID) ([]repository.Commission, error)
	AppendTimeline(ctx context.Context, params repository.AppendTimelineParams) (repository.TimelineEvent, error)
	ListTimeline(ctx context.Context, clientID uuid.UUID) ([]repository.TimelineEvent, error)
}

type Service struct {
	repo Store
	log  *logger.Logger
}

func New(repo Store, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Detail is a client with its related records, for the detail screen.
type Detail struct {
	Client      repository.Client
	Services    []repository.ClientService
	Commissions []repository.Commission
	Timeline    []repository.TimelineEvent
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return Detail{}, apperr.NotFound("client not found")
		}
		return Detail{}, err
	}

	detail := Detail{Client: client}

	// Independent reads, fetched in parallel.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail.Services, err = s.repo.ListServices(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		detail.Commissions, err = s.repo.ListCommissions(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		detail.Timeline, err = s.repo.ListTimeline(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return Detail{}, err
	}

	return detail, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]repository.Client, error) {
	return s.repo.List(ctx, limit, offset)
}

type AddServiceInput struct {
	Name          string
	ValueCents    int64
	ResponsibleID uuid.UUID
}

// AddService contracts a new service line. The repository recomputes the
// monthly fee from the active lines in the same write.
func (s *Service) AddService(ctx context.Context, act actor.Context, clientID uuid.UUID, input AddServiceInput) (repository.Client, error) {
	if input.Name == "" {
		return repository.Client{}, apperr.Validation("service name is required")
	}
	if input.ValueCents <= 0 {
		return repository.Client{}, apperr.Validation("service value must be positive")
	}
	if input.ResponsibleID == uuid.Nil {
		return repository.Client{}, apperr.Validation("service responsible is required")
	}

	if _, err := s.repo.GetByID(ctx, clientID); err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return repository.Client{}, apperr.NotFound("client not found")
		}
		return repository.Client{}, err
	}

	svc, err := s.repo.AddService(ctx, repository.AddServiceParams{
		ClientID:      clientID,
		Name:          input.Name,
		ValueCents:    input.ValueCents,
		ResponsibleID: input.ResponsibleID,
	})
	if err != nil {
		return repository.Client{}, apperr.Persistence("failed to add client service", err)
	}

	s.appendTimeline(ctx, act, repository.AppendTimelineParams{
		ClientID:    clientID,
		Kind:        repository.TimelineServiceAdded,
		Description: "Service added: " + svc.Name + " at " + money.FormatCents(svc.ValueCents) + "/month",
	})

	return s.repo.GetByID(ctx, clientID)
}

// CancelService deactivates a service line; the monthly fee drops by the
// line's value as part of the same write.
func (s *Service) CancelService(ctx context.Context, act actor.Context, clientID, serviceID uuid.UUID) (repository.Client, error) {
	svc, err := s.repo.CancelService(ctx, clientID, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return repository.Client{}, apperr.NotFound("active client service not found")
		}
		return repository.Client{}, apperr.Persistence("failed to cancel client service", err)
	}

	s.appendTimeline(ctx, act, repository.AppendTimelineParams{
		ClientID:    clientID,
		Kind:        repository.TimelineServiceCanceled,
		Description: "Service canceled: " + svc.Name,
	})

	return s.repo.GetByID(ctx, clientID)
}

// appendTimeline is best effort: a failed history entry never fails the
// change it describes.
func (s *Service) appendTimeline(ctx context.Context, act actor.Context, params repository.AppendTimelineParams) {
	params.ActorName = act.Name
	if _, err := s.repo.AppendTimeline(ctx, params); err != nil {
		s.log.Error("failed to append client timeline entry",
			"client_id", params.ClientID.String(),
			"kind", params.Kind,
			"error", err,
		)
	}
}
