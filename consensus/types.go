package consensus

import (
	"strings"
	"time"
)

// Triple is a (category, type, classification) code combination. Codes are
// always stored padded.
type Triple struct {
	Category       string `json:"category"`
	Type           string `json:"type"`
	Classification string `json:"classification"`
}

func NewTriple(category, typ, classification any) Triple {
	return Triple{
		Category:       PadCode(category),
		Type:           PadCode(typ),
		Classification: PadCode(classification),
	}
}

// Normalized re-pads the codes; used on values that crossed a boundary.
func (t Triple) Normalized() Triple {
	return NewTriple(t.Category, t.Type, t.Classification)
}

// Key is the grouping key, e.g. "07|02|01".
func (t Triple) Key() string {
	return t.Category + "|" + t.Type + "|" + t.Classification
}

func (t Triple) String() string {
	return t.Key()
}

func (t Triple) IsComplete() bool {
	return t.Category != "" && t.Type != "" && t.Classification != ""
}

func (t Triple) IsEmpty() bool {
	return t.Category == "" && t.Type == "" && t.Classification == ""
}

// ParseTripleKey is the inverse of Key.
func ParseTripleKey(key string) Triple {
	parts := strings.SplitN(key, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return NewTriple(parts[0], parts[1], parts[2])
}

// fillFrom completes empty codes with the ones from base.
func (t Triple) fillFrom(base Triple) Triple {
	if t.Category == "" {
		t.Category = base.Category
	}
	if t.Type == "" {
		t.Type = base.Type
	}
	if t.Classification == "" {
		t.Classification = base.Classification
	}
	return t
}

// ScanSubmission is one user's reported classification for one SKU in a campaign.
type ScanSubmission struct {
	SKU                    string    `json:"sku"`
	CampaignID             int       `json:"campaign_id"`
	UserEmail              string    `json:"user_email"`
	Branch                 string    `json:"branch"`
	ProposedCategory       string    `json:"proposed_category"`
	ProposedType           string    `json:"proposed_type"`
	ProposedClassification string    `json:"proposed_classification"`
	SubmittedAt            time.Time `json:"submitted_at"`
}

func (s ScanSubmission) Triple() Triple {
	return NewTriple(s.ProposedCategory, s.ProposedType, s.ProposedClassification)
}

// MasterRecord is the catalog classification of a SKU at snapshot time.
type MasterRecord struct {
	SKU            string `json:"sku"`
	Category       string `json:"category"`
	Type           string `json:"type"`
	Classification string `json:"classification"`
	Description    string `json:"description"`
}

func (m *MasterRecord) Triple() Triple {
	if m == nil {
		return Triple{}
	}
	return NewTriple(m.Category, m.Type, m.Classification)
}

// AggregatedProposal is one distinct triple observed for a SKU.
type AggregatedProposal struct {
	SKU              string    `json:"sku"`
	Triple           Triple    `json:"triple"`
	VoteCount        int       `json:"vote_count"`
	VoteShare        float64   `json:"vote_share"`
	Voters           []string  `json:"voters"`
	Branches         []string  `json:"branches"`
	FirstSubmittedAt time.Time `json:"first_submitted_at"`
	LastSubmittedAt  time.Time `json:"last_submitted_at"`
	Decision         *Decision `json:"decision,omitempty"`

	// position of the group's first submission in the input, last-resort tie-break
	firstIndex int
}

// AggregationResult is the consensus view of one SKU.
type AggregationResult struct {
	SKU             string                `json:"sku"`
	Proposals       []*AggregatedProposal `json:"proposals"`
	TotalVotes      int                   `json:"total_votes"`
	TopProposal     *AggregatedProposal   `json:"top_proposal"`
	HasConsensus    bool                  `json:"has_consensus"`
	ConsensusShare  float64               `json:"consensus_share"`
	Conflict        bool                  `json:"conflict"`
	MaestroSnapshot *MasterRecord         `json:"maestro_snapshot"`
	LastUpdatedAt   time.Time             `json:"last_updated_at"`
}

type DecisionState string

const (
	DecisionStateAcceptedPending DecisionState = "accepted_pending"
	DecisionStateAcceptedApplied DecisionState = "accepted_applied"
	DecisionStateRejected        DecisionState = "rejected"
)

// DecisionStateUndecided is used by filters only; it is never stored.
const DecisionStateUndecided DecisionState = "undecided"

func (s DecisionState) IsValid() bool {
	switch s {
	case DecisionStateAcceptedPending, DecisionStateAcceptedApplied, DecisionStateRejected:
		return true
	}
	return false
}

type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeReject Outcome = "reject"
)

// Decision is a human decision attached to an aggregated proposal.
type Decision struct {
	SKU          string        `json:"sku"`
	Triple       Triple        `json:"triple"`
	State        DecisionState `json:"state"`
	DecidedBy    string        `json:"decided_by"`
	DecidedAt    time.Time     `json:"decided_at"`
	QueueEntryID string        `json:"queue_entry_id,omitempty"`
}

type QueueState string

const (
	QueueStatePending  QueueState = "pending"
	QueueStateApplied  QueueState = "applied"
	QueueStateRejected QueueState = "rejected"
)

// UpdateQueueEntry is a pending or historical change request to a master record.
type UpdateQueueEntry struct {
	ID         string     `json:"id"`
	CampaignID int        `json:"campaign_id"`
	SKU        string     `json:"sku"`
	OldTriple  Triple     `json:"old_triple"`
	NewTriple  Triple     `json:"new_triple"`
	State      QueueState `json:"state"`
	DecidedBy  string     `json:"decided_by"`
	DecidedAt  time.Time  `json:"decided_at"`
	Archived   bool       `json:"archived"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ArchiveFilter selects queue entries by their archived flag.
type ArchiveFilter string

const (
	ArchiveFilterActive   ArchiveFilter = "activas"
	ArchiveFilterArchived ArchiveFilter = "archivadas"
	ArchiveFilterAll      ArchiveFilter = "todas"
)

func ParseArchiveFilter(s string) ArchiveFilter {
	switch ArchiveFilter(strings.ToLower(strings.TrimSpace(s))) {
	case ArchiveFilterArchived:
		return ArchiveFilterArchived
	case ArchiveFilterAll:
		return ArchiveFilterAll
	default:
		return ArchiveFilterActive
	}
}

func (f ArchiveFilter) Includes(archived bool) bool {
	switch f {
	case ArchiveFilterAll:
		return true
	case ArchiveFilterArchived:
		return archived
	default:
		return !archived
	}
}
