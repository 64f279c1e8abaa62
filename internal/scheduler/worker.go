package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesdesk_backend/internal/events"
	leadrepo "salesdesk_backend/internal/leads/repository"
	notifrepo "salesdesk_backend/internal/notification/repository"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// leadStore is the slice of the lead repository the worker touches.
type leadStore interface {
	AppendActivity(ctx context.Context, params leadrepo.AppendActivityParams) (leadrepo.Activity, error)
	CreateFollowUp(ctx context.Context, params leadrepo.CreateFollowUpParams) (leadrepo.FollowUp, error)
	GetFollowUpByID(ctx context.Context, id uuid.UUID) (leadrepo.FollowUp, error)
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
}

type notificationStore interface {
	Create(ctx context.Context, params notifrepo.CreateParams) (notifrepo.Notification, error)
}

// Worker consumes the side-effect queue: it persists activities, follow-ups,
// and notifications, and raises owner reminders when follow-ups come due.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	client Enqueuer
	leads  leadStore
	notifs notificationStore
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, client Enqueuer, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		client: client,
		leads:  leadrepo.New(pool),
		notifs: notifrepo.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskActivityAppend, w.handleActivityAppend)
	mux.HandleFunc(TaskFollowUpSchedule, w.handleFollowUpSchedule)
	mux.HandleFunc(TaskNotifySend, w.handleNotifySend)
	mux.HandleFunc(TaskFollowUpDue, w.handleFollowUpDue)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleActivityAppend(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseActivityAppendPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	_, err = w.leads.AppendActivity(ctx, leadrepo.AppendActivityParams{
		LeadID:      leadID,
		Kind:        payload.Kind,
		Description: payload.Description,
		PerformedBy: payload.PerformedBy,
	})
	return err
}

func (w *Worker) handleFollowUpSchedule(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpSchedulePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	scheduledAt, err := time.Parse(time.RFC3339, payload.ScheduledAt)
	if err != nil {
		return err
	}

	followUp, err := w.leads.CreateFollowUp(ctx, leadrepo.CreateFollowUpParams{
		LeadID:      leadID,
		ScheduledAt: scheduledAt,
		Description: payload.Description,
	})
	if err != nil {
		return err
	}

	if w.bus != nil {
		w.bus.Publish(ctx, events.FollowUpScheduled{
			BaseEvent:  events.BaseEvent{Timestamp: time.Now()},
			LeadID:     leadID,
			FollowUpID: followUp.ID,
		})
	}

	// The reminder is its own delayed task so it survives worker restarts.
	dueTask, err := NewFollowUpDueTask(FollowUpDuePayload{
		FollowUpID: followUp.ID.String(),
		LeadID:     leadID.String(),
	})
	if err != nil {
		return err
	}
	return w.client.EnqueueAt(ctx, dueTask, scheduledAt)
}

func (w *Worker) handleNotifySend(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotifySendPayload(task)
	if err != nil {
		return err
	}

	recipientID, err := uuid.Parse(payload.RecipientID)
	if err != nil {
		return err
	}

	_, err = w.notifs.Create(ctx, notifrepo.CreateParams{
		RecipientID: recipientID,
		Kind:        payload.Kind,
		Title:       payload.Title,
		Message:     payload.Message,
		DeepLink:    payload.DeepLink,
		Payload:     payload.Payload,
	})
	return err
}

// handleFollowUpDue notifies the owner of the lead's current funnel that a
// follow-up is due. Completed follow-ups and converted leads are skipped.
func (w *Worker) handleFollowUpDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpDuePayload(task)
	if err != nil {
		return err
	}

	followUpID, err := uuid.Parse(payload.FollowUpID)
	if err != nil {
		return err
	}

	followUp, err := w.leads.GetFollowUpByID(ctx, followUpID)
	if err != nil {
		if errors.Is(err, leadrepo.ErrFollowUpNotFound) {
			return nil
		}
		return err
	}
	if followUp.Completed {
		return nil
	}

	lead, err := w.leads.GetByID(ctx, followUp.LeadID)
	if err != nil {
		if errors.Is(err, leadrepo.ErrNotFound) {
			return nil
		}
		return err
	}

	owner := currentOwner(lead)
	if owner == nil {
		return nil
	}

	_, err = w.notifs.Create(ctx, notifrepo.CreateParams{
		RecipientID: *owner,
		Kind:        notifrepo.KindFollowUpDue,
		Title:       "Follow-up due",
		Message:     followUp.Description + " (" + lead.Name + ")",
		DeepLink:    "/leads/" + lead.ID.String(),
		Payload: map[string]any{
			"leadId":     lead.ID.String(),
			"followUpId": followUp.ID.String(),
		},
	})
	return err
}

// currentOwner picks the owner responsible for the lead's current funnel.
// Cold leads fall back to the prospecting owner who originally worked them.
func currentOwner(lead leadrepo.Lead) *uuid.UUID {
	switch lead.CurrentFunnel {
	case domain.FunnelClosing:
		if lead.ClosingOwner != nil {
			return lead.ClosingOwner
		}
		return lead.ProspectingOwner
	case domain.FunnelConverted:
		return nil
	default:
		return lead.ProspectingOwner
	}
}
