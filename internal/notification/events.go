package notification

import (
	"context"
	"errors"

	"salesdesk_backend/internal/events"
	leadrepo "salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/money"
	"salesdesk_backend/internal/notification/repository"
	"salesdesk_backend/internal/pipeline/domain"
)

// RegisterHandlers subscribes the module to the pipeline events it turns
// into in-app notifications for the lead's prospecting owner.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadWon{}.EventName(), m)
	bus.Subscribe(events.LeadLost{}.EventName(), m)
	bus.Subscribe(events.LeadConverted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadWon:
		return m.handleLeadWon(ctx, e)
	case events.LeadLost:
		return m.handleLeadLost(ctx, e)
	case events.LeadConverted:
		return m.handleLeadConverted(ctx, e)
	}
	return nil
}

// handleLeadWon tells the prospecting owner their lead closed. The actor is
// usually the closer; when the prospector won their own lead there is nobody
// else to tell.
func (m *Module) handleLeadWon(ctx context.Context, e events.LeadWon) error {
	lead, err := m.leads.GetByID(ctx, e.LeadID)
	if err != nil {
		if errors.Is(err, leadrepo.ErrNotFound) {
			return nil
		}
		return err
	}
	if lead.ProspectingOwner == nil || *lead.ProspectingOwner == e.Actor {
		return nil
	}

	_, err = m.notifs.Create(ctx, repository.CreateParams{
		RecipientID: *lead.ProspectingOwner,
		Kind:        repository.KindLeadWon,
		Title:       "Lead won",
		Message:     lead.Name + " was closed as won",
		DeepLink:    "/leads/" + lead.ID.String(),
		Payload:     map[string]any{"leadId": lead.ID.String()},
	})
	return err
}

// handleLeadLost notifies the prospecting owner when the closing funnel
// loses a lead they sourced. Losses inside prospecting are the owner's own
// action and need no notification.
func (m *Module) handleLeadLost(ctx context.Context, e events.LeadLost) error {
	if e.Funnel != domain.FunnelClosing {
		return nil
	}

	lead, err := m.leads.GetByID(ctx, e.LeadID)
	if err != nil {
		if errors.Is(err, leadrepo.ErrNotFound) {
			return nil
		}
		return err
	}
	if lead.ProspectingOwner == nil {
		return nil
	}

	message := lead.Name + " was lost in closing"
	if e.RevivedCold {
		message += " and returned to the cold base"
	}

	_, err = m.notifs.Create(ctx, repository.CreateParams{
		RecipientID: *lead.ProspectingOwner,
		Kind:        repository.KindLeadLost,
		Title:       "Lead lost",
		Message:     message,
		DeepLink:    "/leads/" + lead.ID.String(),
		Payload: map[string]any{
			"leadId":       lead.ID.String(),
			"lossReasonId": e.LossReasonID.String(),
		},
	})
	return err
}

func (m *Module) handleLeadConverted(ctx context.Context, e events.LeadConverted) error {
	lead, err := m.leads.GetByID(ctx, e.LeadID)
	if err != nil {
		if errors.Is(err, leadrepo.ErrNotFound) {
			return nil
		}
		return err
	}
	if lead.ProspectingOwner == nil {
		return nil
	}

	_, err = m.notifs.Create(ctx, repository.CreateParams{
		RecipientID: *lead.ProspectingOwner,
		Kind:        repository.KindConverted,
		Title:       "New client",
		Message:     lead.Name + " is now a client at " + money.FormatCents(e.FeeMonthlyCents) + "/month",
		DeepLink:    "/clients/" + e.ClientID.String(),
		Payload: map[string]any{
			"leadId":   e.LeadID.String(),
			"clientId": e.ClientID.String(),
		},
	})
	return err
}
