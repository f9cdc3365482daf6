package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory implementation of every workflow port.
type memoryStore struct {
	mu        sync.Mutex
	campaigns map[int]bool
	subs      []consensus.ScanSubmission
	masters   map[string]*consensus.MasterRecord
	decisions []consensus.Decision
	entries   []consensus.UpdateQueueEntry
	changes   []models.QueueChange
}

func (m *memoryStore) GetCampaign(_ context.Context, id int) (*models.Campaign, error) {
	if !m.campaigns[id] {
		return nil, consensus.NewNotFoundError(fmt.Sprint(id), "campaign not found")
	}
	return &models.Campaign{ID: id}, nil
}

func (m *memoryStore) ListSubmissions(_ context.Context, campaignId int, q models.SubmissionQuery) ([]consensus.ScanSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, s := range q.Skus {
		want[s] = true
	}
	var out []consensus.ScanSubmission
	for _, s := range m.subs {
		if s.CampaignID != campaignId {
			continue
		}
		if len(want) > 0 && !want[s.SKU] {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryStore) GetMasterRecord(_ context.Context, _ int, sku string) (*consensus.MasterRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.masters[sku], nil
}

func (m *memoryStore) GetMasterRecords(_ context.Context, _ int, skus []string) (map[string]*consensus.MasterRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]*consensus.MasterRecord{}
	for _, sku := range skus {
		if r, ok := m.masters[sku]; ok {
			c := *r
			out[sku] = &c
		}
	}
	return out, nil
}

func (m *memoryStore) LoadRevisionState(context.Context, int) ([]consensus.Decision, []consensus.UpdateQueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]consensus.Decision(nil), m.decisions...), append([]consensus.UpdateQueueEntry(nil), m.entries...), nil
}

func (m *memoryStore) PersistDecision(_ context.Context, _ int, d consensus.Decision, entry *consensus.UpdateQueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.decisions {
		if existing.SKU == d.SKU && existing.Triple == d.Triple {
			return consensus.NewInvalidStateError(d.SKU, "proposal already decided")
		}
	}
	m.decisions = append(m.decisions, d)
	if entry != nil {
		m.entries = append(m.entries, *entry)
	}
	return nil
}

func (m *memoryStore) PersistQueueChanges(_ context.Context, _ int, change models.QueueChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, change)
	for _, e := range change.Entries {
		for i := range m.entries {
			if m.entries[i].ID == e.ID {
				m.entries[i] = e
			}
		}
		if change.Op == models.QueueOpApply {
			m.masters[e.SKU] = &consensus.MasterRecord{SKU: e.SKU, Category: e.NewTriple.Category, Type: e.NewTriple.Type, Classification: e.NewTriple.Classification}
		}
	}
	for _, d := range change.Decisions {
		for i := range m.decisions {
			if m.decisions[i].SKU == d.SKU && m.decisions[i].Triple == d.Triple {
				m.decisions[i] = d
			}
		}
	}
	return nil
}

func at(minute int) time.Time {
	return time.Date(2026, 3, 1, 9, minute, 0, 0, time.UTC)
}

func sub(sku, email, branch, cat, typ, class string, minute int) consensus.ScanSubmission {
	return consensus.ScanSubmission{
		SKU: sku, CampaignID: 1, UserEmail: email, Branch: branch,
		ProposedCategory: cat, ProposedType: typ, ProposedClassification: class,
		SubmittedAt: at(minute),
	}
}

func newTestService(t *testing.T) (*Service, *memoryStore) {
	t.Helper()
	store := &memoryStore{
		campaigns: map[int]bool{1: true},
		subs: []consensus.ScanSubmission{
			sub("SKU1", "a@x.com", "North", "07", "02", "01", 1),
			sub("SKU1", "b@x.com", "North", "07", "02", "01", 2),
			sub("SKU1", "c@x.com", "South", "03", "02", "01", 3),
			sub("SKU2", "d@x.com", "South", "05", "01", "01", 4),
		},
		masters: map[string]*consensus.MasterRecord{
			"SKU1": {SKU: "SKU1", Category: "03", Type: "02", Classification: "01", Description: "Shampoo"},
		},
	}
	n := 0
	svc := NewStoreServiceFromPorts(store,
		WithMetrics(NewMetrics()),
		WithLock(func(context.Context, int, string) (func(), error) { return func() {}, nil }),
		WithTrackerOptions(
			consensus.WithClock(func() time.Time { return at(30) }),
			consensus.WithIDGenerator(func() string { n++; return fmt.Sprintf("q%d", n) }),
		),
	)
	return svc, store
}

// NewStoreServiceFromPorts wires one value implementing every port.
func NewStoreServiceFromPorts(p interface {
	CampaignSource
	SubmissionSource
	MasterSource
	RevisionStore
}, opts ...Option) *Service {
	return NewService(p, p, p, p, opts...)
}

func TestReview(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rows, err := svc.Review(ctx, 1, ReviewQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SKU1", rows[0].SKU)
	assert.Equal(t, "07|02|01", rows[0].TopProposal.Triple.Key())
	assert.True(t, rows[0].HasConsensus)
	assert.True(t, rows[0].Conflict)
	assert.True(t, rows[1].Conflict, "no master record")

	noConflict := false
	rows, err = svc.Review(ctx, 1, ReviewQuery{Conflict: &noConflict})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = svc.Review(ctx, 1, ReviewQuery{Branch: "nórth"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SKU1", rows[0].SKU)

	_, err = svc.Review(ctx, 2, ReviewQuery{})
	assert.ErrorIs(t, err, consensus.ErrNotFound)
}

func TestDecideAcceptQueuesUpdate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	res, err := svc.Decide(ctx, 1, DecideInput{Sku: "sku1", Triple: consensus.NewTriple("7", "2", "1"), Outcome: consensus.OutcomeAccept, DecidedBy: "admin@x.com"})
	require.NoError(t, err)
	assert.Equal(t, consensus.DecisionStateAcceptedPending, res.Decision.State)
	require.NotNil(t, res.QueueEntry)
	assert.Equal(t, "q1", res.QueueEntry.ID)
	assert.Equal(t, "03|02|01", res.QueueEntry.OldTriple.Key())
	assert.Equal(t, "07|02|01", res.QueueEntry.NewTriple.Key())
	require.Len(t, store.entries, 1)

	_, err = svc.Decide(ctx, 1, DecideInput{Sku: "SKU1", Triple: consensus.NewTriple("07", "02", "01"), Outcome: consensus.OutcomeReject, DecidedBy: "admin@x.com"})
	assert.ErrorIs(t, err, consensus.ErrInvalidState)

	rows, err := svc.Review(ctx, 1, ReviewQuery{Decision: consensus.DecisionStateAcceptedPending})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, consensus.DecisionStateAcceptedPending, rows[0].TopProposal.Decision.State)
}

func TestDecideErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	triple := consensus.NewTriple("07", "02", "01")

	_, err := svc.Decide(ctx, 1, DecideInput{Sku: "NOPE", Triple: triple, Outcome: consensus.OutcomeAccept, DecidedBy: "a"})
	assert.ErrorIs(t, err, consensus.ErrNotFound)

	_, err = svc.Decide(ctx, 1, DecideInput{Sku: "SKU1", Triple: consensus.NewTriple("99", "99", "99"), Outcome: consensus.OutcomeAccept, DecidedBy: "a"})
	assert.ErrorIs(t, err, consensus.ErrNotFound)

	_, err = svc.Decide(ctx, 1, DecideInput{Sku: "SKU1", Triple: triple, Outcome: consensus.OutcomeAccept})
	assert.ErrorIs(t, err, consensus.ErrValidation)

	_, err = svc.Decide(ctx, 1, DecideInput{Sku: "", Triple: triple, Outcome: consensus.OutcomeAccept, DecidedBy: "a"})
	assert.ErrorIs(t, err, consensus.ErrValidation)

	_, err = svc.Decide(ctx, 9, DecideInput{Sku: "SKU1", Triple: triple, Outcome: consensus.OutcomeAccept, DecidedBy: "a"})
	assert.ErrorIs(t, err, consensus.ErrNotFound)
}

func TestDecideFailsWhenLockIsHeld(t *testing.T) {
	svc, store := newTestService(t)
	lockErr := errors.New("lock not obtained")
	svc.lock = func(context.Context, int, string) (func(), error) { return nil, lockErr }

	_, err := svc.Decide(context.Background(), 1, DecideInput{Sku: "SKU1", Triple: consensus.NewTriple("07", "02", "01"), Outcome: consensus.OutcomeAccept, DecidedBy: "a"})
	assert.ErrorIs(t, err, lockErr)
	assert.Empty(t, store.decisions)
}

func TestApplyBatch(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	res, err := svc.Decide(ctx, 1, DecideInput{Sku: "SKU1", Triple: consensus.NewTriple("07", "02", "01"), Outcome: consensus.OutcomeAccept, DecidedBy: "admin"})
	require.NoError(t, err)
	id := res.QueueEntry.ID

	report, err := svc.ApplyBatch(ctx, 1, []string{id, " ", "missing", id}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, report.AppliedCount)
	assert.Equal(t, []string{id}, report.AppliedIDs)
	assert.Equal(t, []string{"missing"}, report.SkippedIDs)
	assert.Contains(t, report.Reasons["missing"], "not found")

	assert.Equal(t, consensus.QueueStateApplied, store.entries[0].State)
	assert.Equal(t, at(30), store.entries[0].DecidedAt)
	assert.Equal(t, consensus.DecisionStateAcceptedApplied, store.decisions[0].State)
	assert.Equal(t, "07|02|01", store.masters["SKU1"].Triple().Key())

	report, err = svc.ApplyBatch(ctx, 1, []string{id}, "admin")
	require.NoError(t, err)
	assert.Zero(t, report.AppliedCount)
	assert.Equal(t, []string{id}, report.SkippedIDs)

	_, err = svc.ApplyBatch(ctx, 1, []string{id}, " ")
	assert.ErrorIs(t, err, consensus.ErrValidation)

	_, err = svc.ApplyBatch(ctx, 1, nil, "admin")
	assert.ErrorIs(t, err, consensus.ErrValidation)
}

func TestRejectBatchRejectsDecision(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	res, err := svc.Decide(ctx, 1, DecideInput{Sku: "SKU1", Triple: consensus.NewTriple("03", "02", "01"), Outcome: consensus.OutcomeAccept, DecidedBy: "admin"})
	require.NoError(t, err)

	report, err := svc.RejectBatch(ctx, 1, []string{res.QueueEntry.ID}, "boss")
	require.NoError(t, err)
	assert.Equal(t, 1, report.AppliedCount)
	assert.Equal(t, consensus.QueueStateRejected, store.entries[0].State)
	assert.Equal(t, consensus.DecisionStateRejected, store.decisions[0].State)
	assert.Equal(t, "03|02|01", store.masters["SKU1"].Triple().Key())

	_, err = svc.Decide(ctx, 1, DecideInput{Sku: "SKU1", Triple: consensus.NewTriple("03", "02", "01"), Outcome: consensus.OutcomeAccept, DecidedBy: "admin"})
	assert.ErrorIs(t, err, consensus.ErrInvalidState)
	assert.Len(t, store.entries, 1)
}

func TestArchiveAndQueueFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Decide(ctx, 1, DecideInput{Sku: "SKU1", Triple: consensus.NewTriple("07", "02", "01"), Outcome: consensus.OutcomeAccept, DecidedBy: "admin"})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, 1, DecideInput{Sku: "SKU1", Triple: consensus.NewTriple("03", "02", "01"), Outcome: consensus.OutcomeAccept, DecidedBy: "admin"})
	require.NoError(t, err)

	report, err := svc.Archive(ctx, 1, []string{first.QueueEntry.ID, "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AppliedCount)
	assert.Equal(t, []string{"ghost"}, report.SkippedIDs)

	active, err := svc.Queue(ctx, 1, QueueQuery{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "q2", active[0].ID)

	archived, err := svc.Queue(ctx, 1, QueueQuery{Archive: consensus.ArchiveFilterArchived})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, consensus.QueueStatePending, archived[0].State)

	all, err := svc.Queue(ctx, 1, QueueQuery{Archive: consensus.ArchiveFilterAll, NewCategory: "7"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "q1", all[0].ID)

	_, err = svc.Unarchive(ctx, 1, []string{first.QueueEntry.ID})
	require.NoError(t, err)
	active, err = svc.Queue(ctx, 1, QueueQuery{})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestDiscrepanciesVsMaster(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	report, err := svc.DiscrepanciesVsMaster(ctx, 1, DiscrepancyQuery{})
	require.NoError(t, err)
	assert.Equal(t, consensus.KPI{DiscrepancyCount: 2, TotalCount: 2}, report.KPI)

	res, err := svc.Decide(ctx, 1, DecideInput{Sku: "SKU1", Triple: consensus.NewTriple("07", "02", "01"), Outcome: consensus.OutcomeAccept, DecidedBy: "admin"})
	require.NoError(t, err)
	_, err = svc.ApplyBatch(ctx, 1, []string{res.QueueEntry.ID}, "admin")
	require.NoError(t, err)

	report, err = svc.DiscrepanciesVsMaster(ctx, 1, DiscrepancyQuery{OnlyConflicts: true})
	require.NoError(t, err)
	assert.Equal(t, consensus.KPI{DiscrepancyCount: 1, TotalCount: 2}, report.KPI)
	require.Len(t, report.Records, 1)
	assert.Equal(t, "SKU2", report.Records[0].SKU)
}

func TestDiscrepanciesCrossBranch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	report, err := svc.DiscrepanciesCrossBranch(ctx, 1, DiscrepancyQuery{})
	require.NoError(t, err)
	assert.Equal(t, consensus.KPI{DiscrepancyCount: 1, TotalCount: 2}, report.KPI)

	report, err = svc.DiscrepanciesCrossBranch(ctx, 1, DiscrepancyQuery{Branch: "NORTH", OnlyConflicts: true})
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.Equal(t, "SKU1", report.Records[0].SKU)
	assert.Len(t, report.Records[0].Variants, 2)
}
