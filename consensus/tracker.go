package consensus

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type decisionKey struct {
	sku    string
	triple string
}

type trackedSKU struct {
	snapshot  *MasterRecord
	proposals map[string]Triple
}

// Tracker holds the decision and update-queue state of one campaign. It is
// not safe for concurrent use; callers serialize writers per campaign.
type Tracker struct {
	campaignID int
	skus       map[string]*trackedSKU
	decisions  map[decisionKey]*Decision
	entries    map[string]*UpdateQueueEntry
	order      []string

	now   func() time.Time
	newID func() string
}

type TrackerOption func(*Tracker)

func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

func WithIDGenerator(newID func() string) TrackerOption {
	return func(t *Tracker) { t.newID = newID }
}

func NewTracker(campaignID int, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		campaignID: campaignID,
		skus:       make(map[string]*trackedSKU),
		decisions:  make(map[decisionKey]*Decision),
		entries:    make(map[string]*UpdateQueueEntry),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) CampaignID() int {
	return t.campaignID
}

// Register makes the SKU of an aggregation result and its proposals known.
// Registering the same SKU again merges proposals and refreshes the snapshot
// unless an update for it has already been applied.
func (t *Tracker) Register(result AggregationResult) {
	sku := NormalizeSKU(result.SKU)
	if sku == "" {
		return
	}
	ts, ok := t.skus[sku]
	if !ok {
		ts = &trackedSKU{proposals: make(map[string]Triple)}
		t.skus[sku] = ts
		ts.snapshot = cloneMaster(result.MaestroSnapshot)
	} else if !t.hasApplied(sku) {
		ts.snapshot = cloneMaster(result.MaestroSnapshot)
	}
	for _, p := range result.Proposals {
		ts.proposals[p.Triple.Key()] = p.Triple
	}
}

// Restore loads previously persisted decisions and queue entries. Restored
// decisions also register their triple as a proposal of the SKU.
func (t *Tracker) Restore(decisions []Decision, entries []UpdateQueueEntry) {
	for _, e := range entries {
		e := e
		e.SKU = NormalizeSKU(e.SKU)
		e.OldTriple = e.OldTriple.Normalized()
		e.NewTriple = e.NewTriple.Normalized()
		if _, ok := t.entries[e.ID]; !ok {
			t.order = append(t.order, e.ID)
		}
		t.entries[e.ID] = &e
		t.ensureSKU(e.SKU)
	}
	for _, d := range decisions {
		d := d
		d.SKU = NormalizeSKU(d.SKU)
		d.Triple = d.Triple.Normalized()
		ts := t.ensureSKU(d.SKU)
		ts.proposals[d.Triple.Key()] = d.Triple
		t.decisions[decisionKey{d.SKU, d.Triple.Key()}] = &d
	}
}

func (t *Tracker) ensureSKU(sku string) *trackedSKU {
	ts, ok := t.skus[sku]
	if !ok {
		ts = &trackedSKU{proposals: make(map[string]Triple)}
		t.skus[sku] = ts
	}
	return ts
}

func (t *Tracker) hasApplied(sku string) bool {
	for _, e := range t.entries {
		if e.SKU == sku && e.State == QueueStateApplied {
			return true
		}
	}
	return false
}

// Snapshot returns the current master snapshot of a SKU.
func (t *Tracker) Snapshot(sku string) *MasterRecord {
	ts, ok := t.skus[NormalizeSKU(sku)]
	if !ok {
		return nil
	}
	return cloneMaster(ts.snapshot)
}

// Decide records a single-shot decision for (sku, triple). Accepting queues
// a pending update of the master record.
func (t *Tracker) Decide(sku string, triple Triple, outcome Outcome, decidedBy string) (*Decision, error) {
	sku = NormalizeSKU(sku)
	triple = triple.Normalized()
	decidedBy = strings.TrimSpace(decidedBy)

	if sku == "" {
		return nil, validationError("", "sku is required")
	}
	if decidedBy == "" {
		return nil, validationError(sku, "decided_by is required")
	}
	if outcome != OutcomeAccept && outcome != OutcomeReject {
		return nil, validationError(string(outcome), "invalid outcome")
	}
	ts, ok := t.skus[sku]
	if !ok {
		return nil, notFoundError(sku, "sku not found in campaign")
	}
	if _, ok := ts.proposals[triple.Key()]; !ok {
		return nil, notFoundError(sku+"/"+triple.Key(), "proposal not found")
	}
	key := decisionKey{sku, triple.Key()}
	if existing, ok := t.decisions[key]; ok {
		return nil, invalidStateError(sku+"/"+triple.Key(), "proposal already decided as "+string(existing.State))
	}

	now := t.now()
	d := &Decision{
		SKU:       sku,
		Triple:    triple,
		DecidedBy: decidedBy,
		DecidedAt: now,
	}

	if outcome == OutcomeReject {
		d.State = DecisionStateRejected
		t.decisions[key] = d
		c := *d
		return &c, nil
	}

	newTriple := triple
	if ts.snapshot != nil {
		newTriple = triple.fillFrom(ts.snapshot.Triple())
	}
	if !newTriple.IsComplete() {
		return nil, validationError(sku+"/"+triple.Key(), "missing codes and no master record to complete them")
	}

	entry := &UpdateQueueEntry{
		ID:         t.newID(),
		CampaignID: t.campaignID,
		SKU:        sku,
		OldTriple:  ts.snapshot.Triple(),
		NewTriple:  newTriple,
		State:      QueueStatePending,
		DecidedBy:  decidedBy,
		DecidedAt:  now,
		CreatedAt:  now,
	}
	t.entries[entry.ID] = entry
	t.order = append(t.order, entry.ID)

	d.State = DecisionStateAcceptedPending
	d.QueueEntryID = entry.ID
	t.decisions[key] = d
	c := *d
	return &c, nil
}

// BatchResult reports a batch operation. Skipped ids keep the reason.
type BatchResult struct {
	AppliedCount int              `json:"applied_count"`
	AppliedIDs   []string         `json:"applied_ids"`
	SkippedIDs   []string         `json:"skipped_ids"`
	Reasons      map[string]error `json:"-"`
}

func newBatchResult() BatchResult {
	return BatchResult{
		AppliedIDs: []string{},
		SkippedIDs: []string{},
		Reasons:    map[string]error{},
	}
}

func (r *BatchResult) skip(id string, err error) {
	r.SkippedIDs = append(r.SkippedIDs, id)
	r.Reasons[id] = err
}

func (r *BatchResult) done(id string) {
	r.AppliedCount++
	r.AppliedIDs = append(r.AppliedIDs, id)
}

// ApplyBatch marks pending entries as applied. Entries that are unknown or
// not pending are skipped and reported; they never abort the batch.
func (t *Tracker) ApplyBatch(ids []string, decidedBy string) (BatchResult, error) {
	return t.transition(ids, decidedBy, QueueStateApplied, DecisionStateAcceptedApplied)
}

// RejectBatch marks pending entries as rejected, and their decisions with them.
func (t *Tracker) RejectBatch(ids []string, decidedBy string) (BatchResult, error) {
	return t.transition(ids, decidedBy, QueueStateRejected, DecisionStateRejected)
}

func (t *Tracker) transition(ids []string, decidedBy string, to QueueState, decisionTo DecisionState) (BatchResult, error) {
	decidedBy = strings.TrimSpace(decidedBy)
	if decidedBy == "" {
		return BatchResult{}, validationError("", "decided_by is required")
	}
	result := newBatchResult()
	now := t.now()
	for _, id := range ids {
		e, ok := t.entries[id]
		if !ok {
			result.skip(id, notFoundError(id, "queue entry not found"))
			continue
		}
		if e.State != QueueStatePending {
			result.skip(id, invalidStateError(id, "queue entry is "+string(e.State)))
			continue
		}
		e.State = to
		e.DecidedBy = decidedBy
		e.DecidedAt = now
		if d := t.decisionForEntry(e); d != nil {
			d.State = decisionTo
		}
		if to == QueueStateApplied {
			t.applySnapshot(e)
		}
		result.done(id)
	}
	return result, nil
}

func (t *Tracker) applySnapshot(e *UpdateQueueEntry) {
	ts := t.ensureSKU(e.SKU)
	desc := ""
	if ts.snapshot != nil {
		desc = ts.snapshot.Description
	}
	ts.snapshot = &MasterRecord{
		SKU:            e.SKU,
		Category:       e.NewTriple.Category,
		Type:           e.NewTriple.Type,
		Classification: e.NewTriple.Classification,
		Description:    desc,
	}
}

func (t *Tracker) decisionForEntry(e *UpdateQueueEntry) *Decision {
	for _, d := range t.decisions {
		if d.QueueEntryID == e.ID {
			return d
		}
	}
	return nil
}

// Archive sets the archived flag. State is untouched.
func (t *Tracker) Archive(ids []string) BatchResult {
	return t.setArchived(ids, true)
}

func (t *Tracker) Unarchive(ids []string) BatchResult {
	return t.setArchived(ids, false)
}

func (t *Tracker) setArchived(ids []string, archived bool) BatchResult {
	result := newBatchResult()
	for _, id := range ids {
		e, ok := t.entries[id]
		if !ok {
			result.skip(id, notFoundError(id, "queue entry not found"))
			continue
		}
		e.Archived = archived
		result.done(id)
	}
	return result
}

// Queue lists entries in creation order.
func (t *Tracker) Queue(filter ArchiveFilter) []UpdateQueueEntry {
	out := make([]UpdateQueueEntry, 0, len(t.order))
	for _, id := range t.order {
		e := t.entries[id]
		if filter.Includes(e.Archived) {
			out = append(out, *e)
		}
	}
	return out
}

// Entry returns a copy of a queue entry.
func (t *Tracker) Entry(id string) (UpdateQueueEntry, bool) {
	e, ok := t.entries[id]
	if !ok {
		return UpdateQueueEntry{}, false
	}
	return *e, true
}

// Decision returns the decision for (sku, triple), if any.
func (t *Tracker) Decision(sku string, triple Triple) (Decision, bool) {
	d, ok := t.decisions[decisionKey{NormalizeSKU(sku), triple.Normalized().Key()}]
	if !ok {
		return Decision{}, false
	}
	return *d, true
}

// DecisionForEntry returns the decision that created a queue entry.
func (t *Tracker) DecisionForEntry(id string) (Decision, bool) {
	e, ok := t.entries[id]
	if !ok {
		return Decision{}, false
	}
	d := t.decisionForEntry(e)
	if d == nil {
		return Decision{}, false
	}
	return *d, true
}

// Annotate attaches known decisions to the proposals of a result.
func (t *Tracker) Annotate(result *AggregationResult) {
	for _, p := range result.Proposals {
		if d, ok := t.Decision(result.SKU, p.Triple); ok {
			p.Decision = &d
		} else {
			p.Decision = nil
		}
	}
}
