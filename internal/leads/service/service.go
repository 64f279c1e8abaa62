// Package service implements lead management: CRUD, board reads, dashboard
// counters, follow-up completion, and note appending. Stage changes never
// happen here; those belong to the pipeline orchestrator.
package service

import (
	"context"
	"errors"
	"time"

	"salesdesk_backend/internal/actor"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/phone"

	"github.com/google/uuid"
)

const boardOrderStep = 1024.0

type Service struct {
	repo *repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo *repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

type CreateInput struct {
	Name              string
	Company           *string
	Email             *string
	Phone             *string
	OriginID          *uuid.UUID
	ServiceInterestID *uuid.UUID
	OwnerID           *uuid.UUID
	Notes             string
}

// Create inserts a lead at the initial prospecting stage, at the end of the
// new-lead column.
func (s *Service) Create(ctx context.Context, act actor.Context, input CreateInput) (repository.Lead, error) {
	if input.Name == "" {
		return repository.Lead{}, apperr.Validation("lead name is required")
	}

	owner := input.OwnerID
	if owner == nil && act.UserID != uuid.Nil {
		owner = &act.UserID
	}

	if input.Phone != nil {
		normalized := phone.NormalizeE164(*input.Phone)
		input.Phone = &normalized
	}

	maxOrder, err := s.repo.MaxBoardOrder(ctx, domain.FunnelProspecting, domain.InitialStage(domain.FunnelProspecting))
	if err != nil {
		return repository.Lead{}, err
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		Name:              input.Name,
		Company:           input.Company,
		Email:             input.Email,
		Phone:             input.Phone,
		OriginID:          input.OriginID,
		ServiceInterestID: input.ServiceInterestID,
		ProspectingOwner:  owner,
		Notes:             input.Notes,
		BoardOrder:        maxOrder + boardOrderStep,
	})
	if err != nil {
		return repository.Lead{}, apperr.Persistence("failed to create lead", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadCreated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Name:      lead.Name,
			OwnerID:   lead.ProspectingOwner,
			OriginID:  lead.OriginID,
		})
	}

	return lead, nil
}

// Detail is a lead with its timeline records, for the detail drawer.
type Detail struct {
	Lead       repository.Lead
	Activities []repository.Activity
	FollowUps  []repository.FollowUp
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Detail{}, apperr.NotFound("lead not found")
		}
		return Detail{}, err
	}

	activities, err := s.repo.ListActivities(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	followUps, err := s.repo.ListPendingFollowUps(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	return Detail{Lead: lead, Activities: activities, FollowUps: followUps}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	if params.Phone != nil {
		normalized := phone.NormalizeE164(*params.Phone)
		params.Phone = &normalized
	}

	lead, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, err
	}
	return lead, nil
}

func (s *Service) List(ctx context.Context, params repository.ListLeadsParams) ([]repository.Lead, error) {
	return s.repo.List(ctx, params)
}

// BoardColumn is one stage column of a funnel board.
type BoardColumn struct {
	Meta  domain.StageMeta
	Leads []repository.Lead
}

// Board groups the funnel's leads into its declared stage columns, in board
// order. Unknown funnels and the converted pseudo-funnel have no board.
func (s *Service) Board(ctx context.Context, funnel domain.Funnel) ([]BoardColumn, error) {
	if !funnel.HasBoard() {
		return nil, apperr.BadRequest("funnel has no board")
	}

	leads, err := s.repo.ListBoard(ctx, funnel)
	if err != nil {
		return nil, err
	}

	byStage := make(map[domain.Stage][]repository.Lead)
	for _, lead := range leads {
		stage := lead.StageIn(funnel)
		byStage[stage] = append(byStage[stage], lead)
	}

	columns := make([]BoardColumn, 0, len(domain.Stages(funnel)))
	for _, stage := range domain.Stages(funnel) {
		columns = append(columns, BoardColumn{
			Meta:  domain.MetaFor(stage),
			Leads: byStage[stage],
		})
	}
	return columns, nil
}

// Dashboard returns the per-funnel lead counts without fetching rows.
func (s *Service) Dashboard(ctx context.Context) (map[domain.Funnel]int, error) {
	return s.repo.CountByFunnel(ctx)
}

func (s *Service) CompleteFollowUp(ctx context.Context, id uuid.UUID) (repository.FollowUp, error) {
	followUp, err := s.repo.CompleteFollowUp(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFollowUpNotFound) {
			return repository.FollowUp{}, apperr.NotFound("open follow-up not found")
		}
		return repository.FollowUp{}, err
	}
	return followUp, nil
}

// AddNote appends a note activity to the lead's timeline.
func (s *Service) AddNote(ctx context.Context, act actor.Context, leadID uuid.UUID, text string) (repository.Activity, error) {
	if text == "" {
		return repository.Activity{}, apperr.Validation("note text is required")
	}
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Activity{}, apperr.NotFound("lead not found")
		}
		return repository.Activity{}, err
	}

	return s.repo.AppendActivity(ctx, repository.AppendActivityParams{
		LeadID:      leadID,
		Kind:        "note",
		Description: text,
		PerformedBy: act.Name,
	})
}

// DueFollowUps lists follow-ups due before the cutoff across all leads.
func (s *Service) DueFollowUps(ctx context.Context, cutoff time.Time, limit int) ([]repository.FollowUp, error) {
	return s.repo.ListDueFollowUps(ctx, cutoff, limit)
}
