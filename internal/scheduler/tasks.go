package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Side-effect tasks enqueued by the pipeline after a committed stage write.
const TaskActivityAppend = "pipeline.activity.append"

const TaskFollowUpSchedule = "pipeline.followup.schedule"

const TaskNotifySend = "pipeline.notify.send"

// TaskFollowUpDue fires when a scheduled follow-up comes due.
const TaskFollowUpDue = "pipeline.followup.due"

type ActivityAppendPayload struct {
	LeadID      string `json:"leadId"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	PerformedBy string `json:"performedBy"`
}

type FollowUpSchedulePayload struct {
	LeadID      string `json:"leadId"`
	ScheduledAt string `json:"scheduledAt"` // RFC3339
	Description string `json:"description"`
}

type NotifySendPayload struct {
	RecipientID string         `json:"recipientId"`
	Kind        string         `json:"kind"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	DeepLink    string         `json:"deepLink,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

type FollowUpDuePayload struct {
	FollowUpID string `json:"followUpId"`
	LeadID     string `json:"leadId"`
}

func NewActivityAppendTask(payload ActivityAppendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityAppend, data), nil
}

func ParseActivityAppendPayload(task *asynq.Task) (ActivityAppendPayload, error) {
	var payload ActivityAppendPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ActivityAppendPayload{}, err
	}
	return payload, nil
}

func NewFollowUpScheduleTask(payload FollowUpSchedulePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpSchedule, data), nil
}

func ParseFollowUpSchedulePayload(task *asynq.Task) (FollowUpSchedulePayload, error) {
	var payload FollowUpSchedulePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpSchedulePayload{}, err
	}
	return payload, nil
}

func NewNotifySendTask(payload NotifySendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifySend, data), nil
}

func ParseNotifySendPayload(task *asynq.Task) (NotifySendPayload, error) {
	var payload NotifySendPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotifySendPayload{}, err
	}
	return payload, nil
}

func NewFollowUpDueTask(payload FollowUpDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpDue, data), nil
}

func ParseFollowUpDuePayload(task *asynq.Task) (FollowUpDuePayload, error) {
	var payload FollowUpDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpDuePayload{}, err
	}
	return payload, nil
}
