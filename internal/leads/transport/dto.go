// Package transport defines the request and response shapes of the leads API.
package transport

import (
	"time"

	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	Name              string     `json:"name" validate:"required,min=1,max=200"`
	Company           *string    `json:"company,omitempty" validate:"omitempty,max=200"`
	Email             *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone             *string    `json:"phone,omitempty" validate:"omitempty,min=5,max=30"`
	OriginID          *uuid.UUID `json:"originId,omitempty"`
	ServiceInterestID *uuid.UUID `json:"serviceInterestId,omitempty"`
	OwnerID           *uuid.UUID `json:"ownerId,omitempty"`
	Notes             string     `json:"notes,omitempty" validate:"max=2000"`
}

type UpdateLeadRequest struct {
	Name              *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Company           *string    `json:"company,omitempty" validate:"omitempty,max=200"`
	Email             *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone             *string    `json:"phone,omitempty" validate:"omitempty,min=5,max=30"`
	OriginID          *uuid.UUID `json:"originId,omitempty"`
	ServiceInterestID *uuid.UUID `json:"serviceInterestId,omitempty"`
	ProspectingOwner  *uuid.UUID `json:"prospectingOwnerId,omitempty"`
	ClosingOwner      *uuid.UUID `json:"closingOwnerId,omitempty"`
	Notes             *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type AddNoteRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

type LeadResponse struct {
	ID                uuid.UUID     `json:"id"`
	Name              string        `json:"name"`
	Company           *string       `json:"company,omitempty"`
	Email             *string       `json:"email,omitempty"`
	Phone             *string       `json:"phone,omitempty"`
	OriginID          *uuid.UUID    `json:"originId,omitempty"`
	ServiceInterestID *uuid.UUID    `json:"serviceInterestId,omitempty"`
	CurrentFunnel     domain.Funnel `json:"currentFunnel"`
	Stage             domain.Stage  `json:"stage"`
	ProspectingOwner  *uuid.UUID    `json:"prospectingOwnerId,omitempty"`
	ClosingOwner      *uuid.UUID    `json:"closingOwnerId,omitempty"`
	ProposalValue     *int64        `json:"proposalValueCents,omitempty"`
	MeetingAt         *time.Time    `json:"meetingAt,omitempty"`
	LossReasonID      *uuid.UUID    `json:"lossReasonId,omitempty"`
	LossDate          *time.Time    `json:"lossDate,omitempty"`
	ConversionDate    *time.Time    `json:"conversionDate,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	BoardOrder        float64       `json:"boardOrder"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                lead.ID,
		Name:              lead.Name,
		Company:           lead.Company,
		Email:             lead.Email,
		Phone:             lead.Phone,
		OriginID:          lead.OriginID,
		ServiceInterestID: lead.ServiceInterestID,
		CurrentFunnel:     lead.CurrentFunnel,
		Stage:             lead.StageIn(lead.CurrentFunnel),
		ProspectingOwner:  lead.ProspectingOwner,
		ClosingOwner:      lead.ClosingOwner,
		ProposalValue:     lead.ProposalValue,
		MeetingAt:         lead.MeetingAt,
		LossReasonID:      lead.LossReasonID,
		LossDate:          lead.LossDate,
		ConversionDate:    lead.ConversionDate,
		Notes:             lead.Notes,
		BoardOrder:        lead.BoardOrder,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}

type ActivityResponse struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	PerformedBy string    `json:"performedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type FollowUpResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type LeadDetailResponse struct {
	LeadResponse
	Activities []ActivityResponse `json:"activities"`
	FollowUps  []FollowUpResponse `json:"followUps"`
}

func ToActivityResponses(activities []repository.Activity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(activities))
	for _, a := range activities {
		out = append(out, ActivityResponse{
			ID:          a.ID,
			Kind:        a.Kind,
			Description: a.Description,
			PerformedBy: a.PerformedBy,
			CreatedAt:   a.CreatedAt,
		})
	}
	return out
}

func ToFollowUpResponse(f repository.FollowUp) FollowUpResponse {
	return FollowUpResponse{
		ID:          f.ID,
		LeadID:      f.LeadID,
		ScheduledAt: f.ScheduledAt,
		Description: f.Description,
		Completed:   f.Completed,
		CompletedAt: f.CompletedAt,
	}
}

func ToFollowUpResponses(followUps []repository.FollowUp) []FollowUpResponse {
	out := make([]FollowUpResponse, 0, len(followUps))
	for _, f := range followUps {
		out = append(out, ToFollowUpResponse(f))
	}
	return out
}
