package sideeffect

import (
	"context"
	"time"

	"salesdesk_backend/internal/scheduler"
	"salesdesk_backend/platform/logger"
)

// AsynqDispatcher hands side effects to the background worker as asynq
// tasks. Enqueue failures are logged and dropped: the stage write has
// already committed and must stand regardless.
type AsynqDispatcher struct {
	enqueuer scheduler.Enqueuer
	log      *logger.Logger
	clock    func() time.Time
}

func NewAsynqDispatcher(enqueuer scheduler.Enqueuer, log *logger.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{
		enqueuer: enqueuer,
		log:      log,
		clock:    time.Now,
	}
}

func (d *AsynqDispatcher) AppendActivity(ctx context.Context, p ActivityParams) {
	task, err := scheduler.NewActivityAppendTask(scheduler.ActivityAppendPayload{
		LeadID:      p.LeadID.String(),
		Kind:        p.Kind,
		Description: p.Description,
		PerformedBy: p.Actor.Name,
	})
	if err != nil {
		d.log.SideEffectFailure("activity", p.LeadID.String(), err)
		return
	}
	if err := d.enqueuer.Enqueue(ctx, task); err != nil {
		d.log.SideEffectFailure("activity", p.LeadID.String(), err)
	}
}

func (d *AsynqDispatcher) ScheduleFollowUp(ctx context.Context, p FollowUpParams) {
	scheduledAt := d.clock().AddDate(0, 0, p.OffsetDays)
	task, err := scheduler.NewFollowUpScheduleTask(scheduler.FollowUpSchedulePayload{
		LeadID:      p.LeadID.String(),
		ScheduledAt: scheduledAt.Format(time.RFC3339),
		Description: p.Description,
	})
	if err != nil {
		d.log.SideEffectFailure("followup", p.LeadID.String(), err)
		return
	}
	if err := d.enqueuer.Enqueue(ctx, task); err != nil {
		d.log.SideEffectFailure("followup", p.LeadID.String(), err)
	}
}

func (d *AsynqDispatcher) Notify(ctx context.Context, p NotifyParams) {
	task, err := scheduler.NewNotifySendTask(scheduler.NotifySendPayload{
		RecipientID: p.RecipientID.String(),
		Kind:        p.Kind,
		Title:       p.Title,
		Message:     p.Message,
		DeepLink:    p.DeepLink,
		Payload:     p.Payload,
	})
	if err != nil {
		d.log.SideEffectFailure("notify", p.RecipientID.String(), err)
		return
	}
	if err := d.enqueuer.Enqueue(ctx, task); err != nil {
		d.log.SideEffectFailure("notify", p.RecipientID.String(), err)
	}
}

var _ Dispatcher = (*AsynqDispatcher)(nil)
