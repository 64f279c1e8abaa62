package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesdesk_backend/internal/actor"
	clientdomain "salesdesk_backend/internal/clients/domain"
	clientrepo "salesdesk_backend/internal/clients/repository"
	"salesdesk_backend/internal/conversion/repository"
	leadrepo "salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/internal/pipeline/sideeffect"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeads struct {
	leads map[uuid.UUID]leadrepo.Lead
}

func (f *fakeLeads) GetByID(_ context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return lead, nil
}

type fakeClients struct {
	byLead map[uuid.UUID]clientrepo.Client
}

func (f *fakeClients) GetByLeadID(_ context.Context, leadID uuid.UUID) (clientrepo.Client, error) {
	c, ok := f.byLead[leadID]
	if !ok {
		return clientrepo.Client{}, clientrepo.ErrClientNotFound
	}
	return c, nil
}

// fakeCommitter mirrors the transactional repository: it sums the service
// lines into the fee and registers the client so later lookups find it.
type fakeCommitter struct {
	clients *fakeClients
	commits []repository.CommitParams
	err     error
}

func (f *fakeCommitter) Commit(_ context.Context, params repository.CommitParams) (clientrepo.Client, error) {
	if f.err != nil {
		return clientrepo.Client{}, f.err
	}
	var fee int64
	for _, line := range params.Services {
		fee += line.ValueCents
	}
	client := clientrepo.Client{
		ID:            uuid.New(),
		LeadID:        params.LeadID,
		Name:          params.Name,
		BillingModel:  params.BillingModel,
		FeeMonthly:    fee,
		DueDay:        params.DueDay,
		PaymentMethod: params.PaymentMethod,
		ResponsibleID: params.ResponsibleID,
	}
	f.commits = append(f.commits, params)
	f.clients.byLead[params.LeadID] = client
	return client, nil
}

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendWelcomeEmail(_ context.Context, toEmail, _, _ string, _ int) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, toEmail)
	return nil
}

type recordingDispatcher struct {
	notices []sideeffect.NotifyParams
}

func (r *recordingDispatcher) AppendActivity(_ context.Context, _ sideeffect.ActivityParams) {}
func (r *recordingDispatcher) ScheduleFollowUp(_ context.Context, _ sideeffect.FollowUpParams) {
}
func (r *recordingDispatcher) Notify(_ context.Context, p sideeffect.NotifyParams) {
	r.notices = append(r.notices, p)
}

type workflowFixture struct {
	workflow  *Workflow
	leads     *fakeLeads
	clients   *fakeClients
	committer *fakeCommitter
	mailer    *recordingMailer
	effects   *recordingDispatcher
}

func newFixture(leads ...leadrepo.Lead) *workflowFixture {
	f := &workflowFixture{
		leads:   &fakeLeads{leads: make(map[uuid.UUID]leadrepo.Lead)},
		clients: &fakeClients{byLead: make(map[uuid.UUID]clientrepo.Client)},
		mailer:  &recordingMailer{},
		effects: &recordingDispatcher{},
	}
	for _, l := range leads {
		f.leads.leads[l.ID] = l
	}
	f.committer = &fakeCommitter{clients: f.clients}
	f.workflow = NewWorkflow(f.leads, f.clients, f.committer, f.mailer, f.effects, nil, logger.New("development"))
	return f
}

func wonLead() leadrepo.Lead {
	email := "ops@acme.example"
	return leadrepo.Lead{
		ID:            uuid.New(),
		Name:          "Acme Corp",
		Email:         &email,
		CurrentFunnel: domain.FunnelClosing,
		ClosingStage:  domain.StageWon,
	}
}

func validIntake() Intake {
	responsible := uuid.New()
	return Intake{
		BillingModel:  clientdomain.BillingFlatFee,
		DueDay:        5,
		PaymentMethod: clientdomain.PaymentBankTransfer,
		ResponsibleID: &responsible,
		Services: []ServiceInput{
			{Name: "SEO", ValueCents: 100000, ResponsibleID: responsible},
			{Name: "Paid media", ValueCents: 50000, ResponsibleID: responsible},
		},
	}
}

func TestConvert_SumsServiceValuesIntoMonthlyFee(t *testing.T) {
	lead := wonLead()
	f := newFixture(lead)

	client, err := f.workflow.Convert(context.Background(), actor.Context{Name: "Dana"}, lead.ID, validIntake())
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if client.FeeMonthly != 150000 {
		t.Fatalf("expected fee 150000, got %d", client.FeeMonthly)
	}
	if client.LeadID != lead.ID {
		t.Fatalf("client must reference its lead")
	}
	if len(f.committer.commits) != 1 {
		t.Fatalf("expected one commit, got %d", len(f.committer.commits))
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0] != "ops@acme.example" {
		t.Fatalf("expected welcome email to the lead address, got %v", f.mailer.sent)
	}
	if len(f.effects.notices) != 1 {
		t.Fatalf("expected one notification to the responsible, got %d", len(f.effects.notices))
	}
}

func TestConvert_SecondAttemptPerformsZeroWrites(t *testing.T) {
	lead := wonLead()
	f := newFixture(lead)

	if _, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, validIntake()); err != nil {
		t.Fatalf("first convert failed: %v", err)
	}

	_, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, validIntake())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on second attempt, got %v", err)
	}
	if len(f.committer.commits) != 1 {
		t.Fatalf("second attempt must perform zero writes, got %d commits", len(f.committer.commits))
	}
}

func TestConvert_RequiresWonStage(t *testing.T) {
	lead := wonLead()
	lead.ClosingStage = domain.StageNegotiation
	f := newFixture(lead)

	_, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, validIntake())
	if !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected rejection for non-won lead, got %v", err)
	}
	if len(f.committer.commits) != 0 {
		t.Fatalf("rejected conversion must not commit")
	}
}

func TestConvert_IntakeValidation(t *testing.T) {
	lead := wonLead()
	responsible := uuid.New()
	percent := 10.0

	cases := []struct {
		name   string
		mutate func(*Intake)
	}{
		{"no services", func(i *Intake) { i.Services = nil }},
		{"zero value service", func(i *Intake) { i.Services[0].ValueCents = 0 }},
		{"service without responsible", func(i *Intake) { i.Services[0].ResponsibleID = uuid.Nil }},
		{"unknown billing model", func(i *Intake) { i.BillingModel = "retainer" }},
		{"percent on flat fee", func(i *Intake) { i.BillingPercent = &percent }},
		{"percent model without percent", func(i *Intake) {
			i.BillingModel = clientdomain.BillingFlatFeePercent
			i.BillingPercent = nil
		}},
		{"due day out of range", func(i *Intake) { i.DueDay = 32 }},
		{"unknown payment method", func(i *Intake) { i.PaymentMethod = "cash" }},
		{"commission without recipient", func(i *Intake) {
			i.Commissions = []CommissionInput{{RecipientID: uuid.Nil, Percent: 10}}
		}},
		{"commission percent out of range", func(i *Intake) {
			i.Commissions = []CommissionInput{{RecipientID: responsible, Percent: 150}}
		}},
		{"commission with negative amount", func(i *Intake) {
			i.Commissions = []CommissionInput{{RecipientID: responsible, AmountCents: -5000}}
		}},
		{"commission with neither amount nor percent", func(i *Intake) {
			i.Commissions = []CommissionInput{{RecipientID: responsible}}
		}},
	}

	for _, tc := range cases {
		f := newFixture(lead)
		intake := validIntake()
		tc.mutate(&intake)

		_, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, intake)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if len(f.committer.commits) != 0 {
			t.Fatalf("%s: invalid intake must not commit", tc.name)
		}
	}
}

func TestConvert_CommissionAmountDerivedFromPercent(t *testing.T) {
	lead := wonLead()
	f := newFixture(lead)
	recipient := uuid.New()

	intake := validIntake()
	intake.Commissions = []CommissionInput{{RecipientID: recipient, Percent: 10}}

	if _, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, intake); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	// 10% of the 150000-cent monthly fee.
	lines := f.committer.commits[0].Commissions
	if len(lines) != 1 {
		t.Fatalf("expected one commission line, got %d", len(lines))
	}
	if lines[0].AmountCents != 15000 {
		t.Fatalf("expected derived amount 15000, got %d", lines[0].AmountCents)
	}
	if lines[0].Percent != 10 {
		t.Fatalf("the source percent must be kept, got %v", lines[0].Percent)
	}
}

func TestConvert_CommissionDirectAmountIsKept(t *testing.T) {
	lead := wonLead()
	f := newFixture(lead)
	recipient := uuid.New()

	intake := validIntake()
	intake.Commissions = []CommissionInput{{RecipientID: recipient, AmountCents: 20000, Note: "referral"}}

	if _, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, intake); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	lines := f.committer.commits[0].Commissions
	if len(lines) != 1 || lines[0].AmountCents != 20000 {
		t.Fatalf("expected the given amount to be stored as-is, got %+v", lines)
	}
}

func TestConvert_ClientPhoneIsNormalized(t *testing.T) {
	lead := wonLead()
	rawPhone := "(212) 555-0100"
	lead.Phone = &rawPhone
	f := newFixture(lead)

	if _, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, validIntake()); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	params := f.committer.commits[0]
	if params.Phone == nil || *params.Phone != "+12125550100" {
		t.Fatalf("expected E.164 phone on the client row, got %v", params.Phone)
	}
}

func TestConvert_WelcomeEmailFailureDoesNotFailConversion(t *testing.T) {
	lead := wonLead()
	f := newFixture(lead)
	f.mailer.err = errors.New("smtp unreachable")

	if _, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, validIntake()); err != nil {
		t.Fatalf("conversion must survive a failed welcome email, got %v", err)
	}
	if len(f.committer.commits) != 1 {
		t.Fatalf("expected the commit to stand")
	}
}

func TestConvert_RaceLostAtCommitSurfacesConflict(t *testing.T) {
	lead := wonLead()
	f := newFixture(lead)
	f.committer.err = repository.ErrAlreadyConverted

	_, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, validIntake())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict when the unique index fires, got %v", err)
	}
	if len(f.mailer.sent) != 0 || len(f.effects.notices) != 0 {
		t.Fatalf("failed conversion must not produce side effects")
	}
}

func TestConvert_StartDateDefaultsToNow(t *testing.T) {
	lead := wonLead()
	f := newFixture(lead)
	fixed := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	f.workflow.clock = func() time.Time { return fixed }

	if _, err := f.workflow.Convert(context.Background(), actor.Context{}, lead.ID, validIntake()); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	params := f.committer.commits[0]
	if !params.StartDate.Equal(fixed) {
		t.Fatalf("expected start date %v, got %v", fixed, params.StartDate)
	}
	if !params.ConvertedAt.Equal(fixed) {
		t.Fatalf("expected conversion date %v, got %v", fixed, params.ConvertedAt)
	}
}
