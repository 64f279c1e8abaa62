// Package transport defines the request and response shapes of the clients API.
package transport

import (
	"time"

	"salesdesk_backend/internal/clients/domain"
	"salesdesk_backend/internal/clients/repository"

	"github.com/google/uuid"
)

type AddServiceRequest struct {
	Name          string    `json:"name" validate:"required,min=1,max=200"`
	ValueCents    int64     `json:"valueCents" validate:"required,gt=0"`
	ResponsibleID uuid.UUID `json:"responsibleId" validate:"required"`
}

type ClientResponse struct {
	ID             uuid.UUID            `json:"id"`
	LeadID         uuid.UUID            `json:"leadId"`
	Name           string               `json:"name"`
	Company        *string              `json:"company,omitempty"`
	Email          *string              `json:"email,omitempty"`
	Phone          *string              `json:"phone,omitempty"`
	BillingModel   domain.BillingModel  `json:"billingModel"`
	BillingPercent *float64             `json:"billingPercent,omitempty"`
	FeeMonthly     int64                `json:"feeMonthlyCents"`
	DueDay         int                  `json:"dueDay"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod"`
	ResponsibleID  *uuid.UUID           `json:"responsibleId,omitempty"`
	StartDate      time.Time            `json:"startDate"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

func ToClientResponse(c repository.Client) ClientResponse {
	return ClientResponse{
		ID:             c.ID,
		LeadID:         c.LeadID,
		Name:           c.Name,
		Company:        c.Company,
		Email:          c.Email,
		Phone:          c.Phone,
		BillingModel:   c.BillingModel,
		BillingPercent: c.BillingPercent,
		FeeMonthly:     c.FeeMonthly,
		DueDay:         c.DueDay,
		PaymentMethod:  c.PaymentMethod,
		ResponsibleID:  c.ResponsibleID,
		StartDate:      c.StartDate,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func ToClientResponses(clients []repository.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, ToClientResponse(c))
	}
	return out
}

type ServiceResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	ValueCents    int64      `json:"valueCents"`
	ResponsibleID uuid.UUID  `json:"responsibleId"`
	Active        bool       `json:"active"`
	CanceledAt    *time.Time `json:"canceledAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type CommissionResponse struct {
	ID          uuid.UUID `json:"id"`
	RecipientID uuid.UUID `json:"recipientId"`
	AmountCents int64     `json:"amountCents"`
	Percent     float64   `json:"percent"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type TimelineEventResponse struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	ActorName   string    `json:"actorName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ClientDetailResponse struct {
	ClientResponse
	Services    []ServiceResponse       `json:"services"`
	Commissions []CommissionResponse    `json:"commissions"`
	Timeline    []TimelineEventResponse `json:"timeline"`
}

func ToServiceResponses(services []repository.ClientService) []ServiceResponse {
	out := make([]ServiceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, ServiceResponse{
			ID:            s.ID,
			Name:          s.Name,
			ValueCents:    s.ValueCents,
			ResponsibleID: s.ResponsibleID,
			Active:        s.Active,
			CanceledAt:    s.CanceledAt,
			CreatedAt:     s.CreatedAt,
		})
	}
	return out
}

func ToCommissionResponses(commissions []repository.Commission) []CommissionResponse {
	out := make([]CommissionResponse, 0, len(commissions))
	for _, c := range commissions {
		out = append(out, CommissionResponse{
			ID:          c.ID,
			RecipientID: c.RecipientID,
			AmountCents: c.AmountCents,
			Percent:     c.Percent,
			Note:        c.Note,
			CreatedAt:   c.CreatedAt,
		})
	}
	return out
}

func ToTimelineEventResponses(events []repository.TimelineEvent) []TimelineEventResponse {
	out := make([]TimelineEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, TimelineEventResponse{
			ID:          e.ID,
			Kind:        e.Kind,
			Description: e.Description,
			ActorName:   e.ActorName,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}
