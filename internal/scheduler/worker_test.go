package scheduler

import (
	"context"
	"testing"
	"time"

	leadrepo "salesdesk_backend/internal/leads/repository"
	notifrepo "salesdesk_backend/internal/notification/repository"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeadStore struct {
	leads     map[uuid.UUID]leadrepo.Lead
	followUps map[uuid.UUID]leadrepo.FollowUp
}

func (f *fakeLeadStore) AppendActivity(_ context.Context, params leadrepo.AppendActivityParams) (leadrepo.Activity, error) {
	return leadrepo.Activity{ID: uuid.New(), LeadID: params.LeadID, Kind: params.Kind}, nil
}

func (f *fakeLeadStore) CreateFollowUp(_ context.Context, params leadrepo.CreateFollowUpParams) (leadrepo.FollowUp, error) {
	fu := leadrepo.FollowUp{ID: uuid.New(), LeadID: params.LeadID, ScheduledAt: params.ScheduledAt, Description: params.Description}
	f.followUps[fu.ID] = fu
	return fu, nil
}

func (f *fakeLeadStore) GetFollowUpByID(_ context.Context, id uuid.UUID) (leadrepo.FollowUp, error) {
	fu, ok := f.followUps[id]
	if !ok {
		return leadrepo.FollowUp{}, leadrepo.ErrFollowUpNotFound
	}
	return fu, nil
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return lead, nil
}

type fakeNotifStore struct {
	created []notifrepo.CreateParams
}

func (f *fakeNotifStore) Create(_ context.Context, params notifrepo.CreateParams) (notifrepo.Notification, error) {
	f.created = append(f.created, params)
	return notifrepo.Notification{ID: uuid.New(), RecipientID: params.RecipientID, Kind: params.Kind}, nil
}

type dueFixture struct {
	worker *Worker
	leads  *fakeLeadStore
	notifs *fakeNotifStore
}

func newDueFixture() *dueFixture {
	f := &dueFixture{
		leads:  &fakeLeadStore{leads: make(map[uuid.UUID]leadrepo.Lead), followUps: make(map[uuid.UUID]leadrepo.FollowUp)},
		notifs: &fakeNotifStore{},
	}
	f.worker = &Worker{leads: f.leads, notifs: f.notifs, log: logger.New("development")}
	return f
}

func (f *dueFixture) addLead(lead leadrepo.Lead) leadrepo.Lead {
	f.leads.leads[lead.ID] = lead
	return lead
}

func (f *dueFixture) addFollowUp(leadID uuid.UUID, completed bool) leadrepo.FollowUp {
	fu := leadrepo.FollowUp{
		ID:          uuid.New(),
		LeadID:      leadID,
		ScheduledAt: time.Now(),
		Description: "call back",
		Completed:   completed,
	}
	f.leads.followUps[fu.ID] = fu
	return fu
}

func (f *dueFixture) runDue(t *testing.T, followUpID, leadID uuid.UUID) {
	t.Helper()
	task, err := NewFollowUpDueTask(FollowUpDuePayload{
		FollowUpID: followUpID.String(),
		LeadID:     leadID.String(),
	})
	if err != nil {
		t.Fatalf("failed to build task: %v", err)
	}
	if err := f.worker.handleFollowUpDue(context.Background(), task); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
}

func TestHandleFollowUpDue_NotifiesOwnerWithSharedKind(t *testing.T) {
	f := newDueFixture()
	owner := uuid.New()
	lead := f.addLead(leadrepo.Lead{
		ID:               uuid.New(),
		Name:             "Acme Corp",
		CurrentFunnel:    domain.FunnelProspecting,
		ProspectingOwner: &owner,
	})
	fu := f.addFollowUp(lead.ID, false)

	f.runDue(t, fu.ID, lead.ID)

	if len(f.notifs.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifs.created))
	}
	got := f.notifs.created[0]
	if got.Kind != notifrepo.KindFollowUpDue {
		t.Fatalf("expected kind %q, got %q", notifrepo.KindFollowUpDue, got.Kind)
	}
	if got.RecipientID != owner {
		t.Fatalf("expected the prospecting owner as recipient")
	}
	if got.DeepLink != "/leads/"+lead.ID.String() {
		t.Fatalf("unexpected deep link %q", got.DeepLink)
	}
}

func TestHandleFollowUpDue_SkipsCompletedFollowUp(t *testing.T) {
	f := newDueFixture()
	owner := uuid.New()
	lead := f.addLead(leadrepo.Lead{
		ID:               uuid.New(),
		Name:             "Acme Corp",
		CurrentFunnel:    domain.FunnelProspecting,
		ProspectingOwner: &owner,
	})
	fu := f.addFollowUp(lead.ID, true)

	f.runDue(t, fu.ID, lead.ID)

	if len(f.notifs.created) != 0 {
		t.Fatalf("completed follow-up must not raise a reminder")
	}
}

func TestHandleFollowUpDue_SkipsConvertedLead(t *testing.T) {
	f := newDueFixture()
	owner := uuid.New()
	lead := f.addLead(leadrepo.Lead{
		ID:               uuid.New(),
		Name:             "Acme Corp",
		CurrentFunnel:    domain.FunnelConverted,
		ProspectingOwner: &owner,
	})
	fu := f.addFollowUp(lead.ID, false)

	f.runDue(t, fu.ID, lead.ID)

	if len(f.notifs.created) != 0 {
		t.Fatalf("converted lead must not raise a reminder")
	}
}

func TestHandleFollowUpDue_ClosingFallsBackToProspectingOwner(t *testing.T) {
	f := newDueFixture()
	prospector := uuid.New()
	lead := f.addLead(leadrepo.Lead{
		ID:               uuid.New(),
		Name:             "Acme Corp",
		CurrentFunnel:    domain.FunnelClosing,
		ProspectingOwner: &prospector,
	})
	fu := f.addFollowUp(lead.ID, false)

	f.runDue(t, fu.ID, lead.ID)

	if len(f.notifs.created) != 1 || f.notifs.created[0].RecipientID != prospector {
		t.Fatalf("expected fallback to the prospecting owner, got %+v", f.notifs.created)
	}
}

func TestHandleFollowUpDue_MissingFollowUpIsDropped(t *testing.T) {
	f := newDueFixture()

	f.runDue(t, uuid.New(), uuid.New())

	if len(f.notifs.created) != 0 {
		t.Fatalf("unknown follow-up must be dropped silently")
	}
}
