// Package service runs the one-time workflow that turns a won lead into a
// billable client.
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"salesdesk_backend/internal/actor"
	clientdomain "salesdesk_backend/internal/clients/domain"
	clientrepo "salesdesk_backend/internal/clients/repository"
	"salesdesk_backend/internal/conversion/repository"
	"salesdesk_backend/internal/email"
	"salesdesk_backend/internal/events"
	leadrepo "salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/money"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/internal/pipeline/sideeffect"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/phone"

	"github.com/google/uuid"
)

// LeadStore reads the lead being converted.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
}

// ClientLookup checks whether a lead already produced a client.
type ClientLookup interface {
	GetByLeadID(ctx context.Context, leadID uuid.UUID) (clientrepo.Client, error)
}

// Committer writes the whole conversion atomically.
type Committer interface {
	Commit(ctx context.Context, params repository.CommitParams) (clientrepo.Client, error)
}

type Workflow struct {
	leads   LeadStore
	clients ClientLookup
	repo    Committer
	mailer  email.Sender
	effects sideeffect.Dispatcher
	bus     events.Bus
	log     *logger.Logger
	clock   func() time.Time
}

func NewWorkflow(leads LeadStore, clients ClientLookup, repo Committer, mailer email.Sender, effects sideeffect.Dispatcher, bus events.Bus, log *logger.Logger) *Workflow {
	return &Workflow{
		leads:   leads,
		clients: clients,
		repo:    repo,
		mailer:  mailer,
		effects: effects,
		bus:     bus,
		log:     log,
		clock:   time.Now,
	}
}

type ServiceInput struct {
	Name          string    `json:"name"`
	ValueCents    int64     `json:"valueCents"`
	ResponsibleID uuid.UUID `json:"responsibleId"`
}

// CommissionInput is one standing monthly payout. The amount may be given
// directly, or as a percent of the client's monthly fee, in which case the
// amount is derived and stored at commit time.
type CommissionInput struct {
	RecipientID uuid.UUID `json:"recipientId"`
	AmountCents int64     `json:"amountCents"`
	Percent     float64   `json:"percent"`
	Note        string    `json:"note"`
}

// Intake is the data collected by the conversion dialog.
type Intake struct {
	BillingModel   clientdomain.BillingModel  `json:"billingModel"`
	BillingPercent *float64                   `json:"billingPercent"`
	DueDay         int                        `json:"dueDay"`
	PaymentMethod  clientdomain.PaymentMethod `json:"paymentMethod"`
	ResponsibleID  *uuid.UUID                 `json:"responsibleId"`
	StartDate      *time.Time                 `json:"startDate"`
	Services       []ServiceInput             `json:"services"`
	Commissions    []CommissionInput          `json:"commissions"`
}

// Convert turns a won lead into a client. It is idempotent: a lead that
// already has a client is rejected before any write happens, and the unique
// index on clients.lead_id closes the race window.
func (w *Workflow) Convert(ctx context.Context, act actor.Context, leadID uuid.UUID, intake Intake) (clientrepo.Client, error) {
	lead, err := w.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, leadrepo.ErrNotFound) {
			return clientrepo.Client{}, apperr.NotFound("lead not found")
		}
		return clientrepo.Client{}, err
	}

	if _, err := w.clients.GetByLeadID(ctx, leadID); err == nil {
		return clientrepo.Client{}, apperr.Conflict("lead is already converted")
	} else if !errors.Is(err, clientrepo.ErrClientNotFound) {
		return clientrepo.Client{}, err
	}

	if lead.CurrentFunnel != domain.FunnelClosing || lead.ClosingStage != domain.StageWon {
		return clientrepo.Client{}, apperr.TransitionRejected("only won leads can be converted")
	}

	if issues := validateIntake(intake); len(issues) > 0 {
		return clientrepo.Client{}, apperr.Validation("invalid conversion intake").WithDetails(issues)
	}

	now := w.clock()
	startDate := now
	if intake.StartDate != nil {
		startDate = *intake.StartDate
	}

	clientPhone := lead.Phone
	if clientPhone != nil {
		normalized := phone.NormalizeE164(*clientPhone)
		clientPhone = &normalized
	}

	params := repository.CommitParams{
		LeadID:         lead.ID,
		Name:           lead.Name,
		Company:        lead.Company,
		Email:          lead.Email,
		Phone:          clientPhone,
		BillingModel:   intake.BillingModel,
		BillingPercent: intake.BillingPercent,
		DueDay:         intake.DueDay,
		PaymentMethod:  intake.PaymentMethod,
		ResponsibleID:  intake.ResponsibleID,
		StartDate:      startDate,
		ActorName:      act.Name,
		ConvertedAt:    now,
	}
	var fee int64
	for _, svc := range intake.Services {
		params.Services = append(params.Services, repository.ServiceLine(svc))
		fee += svc.ValueCents
	}
	for _, split := range intake.Commissions {
		amount := split.AmountCents
		if amount == 0 {
			amount = int64(math.Round(float64(fee) * split.Percent / 100))
		}
		params.Commissions = append(params.Commissions, repository.CommissionLine{
			RecipientID: split.RecipientID,
			AmountCents: amount,
			Percent:     split.Percent,
			Note:        split.Note,
		})
	}

	client, err := w.repo.Commit(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyConverted):
			return clientrepo.Client{}, apperr.Conflict("lead is already converted")
		case errors.Is(err, repository.ErrLeadNotConvertible):
			return clientrepo.Client{}, apperr.Conflict("lead is no longer in a convertible state")
		}
		return clientrepo.Client{}, apperr.Persistence("conversion failed", err)
	}

	// Everything past this point is best effort: the conversion is durable.
	w.sendWelcome(ctx, lead, client)
	w.notifyResponsible(ctx, lead, client)
	w.publish(ctx, lead, client, len(intake.Services), now)

	return client, nil
}

func (w *Workflow) sendWelcome(ctx context.Context, lead leadrepo.Lead, client clientrepo.Client) {
	if lead.Email == nil || *lead.Email == "" {
		return
	}
	if err := w.mailer.SendWelcomeEmail(ctx, *lead.Email, client.Name, money.FormatCents(client.FeeMonthly), client.DueDay); err != nil {
		w.log.Error("failed to send welcome email",
			"client_id", client.ID.String(),
			"error", err,
		)
	}
}

func (w *Workflow) notifyResponsible(ctx context.Context, lead leadrepo.Lead, client clientrepo.Client) {
	if client.ResponsibleID == nil {
		return
	}
	w.effects.Notify(ctx, sideeffect.NotifyParams{
		RecipientID: *client.ResponsibleID,
		Kind:        sideeffect.NotifyConverted,
		Title:       "New client",
		Message:     client.Name + " is now a client at " + money.FormatCents(client.FeeMonthly) + "/month",
		DeepLink:    "/clients/" + client.ID.String(),
		Payload:     map[string]any{"clientId": client.ID.String(), "leadId": lead.ID.String()},
	})
}

func (w *Workflow) publish(ctx context.Context, lead leadrepo.Lead, client clientrepo.Client, serviceCount int, now time.Time) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(ctx, events.LeadConverted{
		BaseEvent:       events.BaseEvent{Timestamp: now},
		LeadID:          lead.ID,
		ClientID:        client.ID,
		FeeMonthlyCents: client.FeeMonthly,
		ServiceCount:    serviceCount,
	})
}

func validateIntake(intake Intake) map[string]string {
	issues := make(map[string]string)

	if !clientdomain.IsKnownBillingModel(intake.BillingModel) {
		issues["billingModel"] = "unknown billing model"
	} else if intake.BillingModel.UsesPercentage() {
		if intake.BillingPercent == nil || *intake.BillingPercent <= 0 || *intake.BillingPercent > 100 {
			issues["billingPercent"] = "billing percentage must be between 0 and 100"
		}
	} else if intake.BillingPercent != nil {
		issues["billingPercent"] = "billing percentage only applies to the percentage model"
	}

	if intake.DueDay < 1 || intake.DueDay > 31 {
		issues["dueDay"] = "due day must be between 1 and 31"
	}
	if !clientdomain.IsKnownPaymentMethod(intake.PaymentMethod) {
		issues["paymentMethod"] = "unknown payment method"
	}

	if len(intake.Services) == 0 {
		issues["services"] = "at least one service is required"
	}
	for _, svc := range intake.Services {
		if svc.Name == "" {
			issues["services"] = "service name is required"
			break
		}
		if svc.ValueCents <= 0 {
			issues["services"] = "service value must be positive"
			break
		}
		if svc.ResponsibleID == uuid.Nil {
			issues["services"] = "service responsible is required"
			break
		}
	}

	for _, split := range intake.Commissions {
		if split.RecipientID == uuid.Nil {
			issues["commissions"] = "commission recipient is required"
			break
		}
		if split.AmountCents < 0 {
			issues["commissions"] = "commission amount must not be negative"
			break
		}
		if split.AmountCents == 0 && (split.Percent <= 0 || split.Percent > 100) {
			issues["commissions"] = "commission needs a monthly amount or a percent between 0 and 100"
			break
		}
		if split.Percent < 0 || split.Percent > 100 {
			issues["commissions"] = "commission percent must be between 0 and 100"
			break
		}
	}

	return issues
}
