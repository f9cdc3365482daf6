package workflow

import (
	"strings"
	"time"

	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/filter"
)

// ReviewQuery selects aggregated results on the review screen.
type ReviewQuery struct {
	Sku       string
	Branch    string
	Decision  consensus.DecisionState
	Consensus *bool
	Conflict  *bool
	From      time.Time
	To        time.Time
}

func (q ReviewQuery) Predicates() filter.Predicates[consensus.AggregationResult] {
	return filter.Predicates[consensus.AggregationResult]{
		"sku": filter.Contains(q.Sku, func(r consensus.AggregationResult) string { return r.SKU }),
		"branch": filter.AnyContains(q.Branch, func(r consensus.AggregationResult) []string {
			var branches []string
			for _, p := range r.Proposals {
				branches = append(branches, p.Branches...)
			}
			return branches
		}),
		"decision":  decisionMatcher(q.Decision),
		"consensus": filter.Bool(q.Consensus, func(r consensus.AggregationResult) bool { return r.HasConsensus }),
		"conflict":  filter.Bool(q.Conflict, func(r consensus.AggregationResult) bool { return r.Conflict }),
		"date":      filter.DateRange(q.From, q.To, func(r consensus.AggregationResult) time.Time { return r.LastUpdatedAt }),
	}
}

// decisionMatcher keeps results where some proposal is in the given state;
// "undecided" matches results with at least one undecided proposal.
func decisionMatcher(state consensus.DecisionState) filter.Matcher[consensus.AggregationResult] {
	state = consensus.DecisionState(strings.ToLower(strings.TrimSpace(string(state))))
	if state == "" {
		return nil
	}
	return func(r consensus.AggregationResult) bool {
		for _, p := range r.Proposals {
			current := consensus.DecisionStateUndecided
			if p.Decision != nil {
				current = p.Decision.State
			}
			if current == state {
				return true
			}
		}
		return false
	}
}

// QueueQuery selects update queue entries. Code filters are padded before
// comparing.
type QueueQuery struct {
	Archive           consensus.ArchiveFilter
	Sku               string
	OldCategory       string
	OldType           string
	OldClassification string
	NewCategory       string
	NewType           string
	NewClassification string
	DecidedBy         string
	State             consensus.QueueState
}

func (q QueueQuery) Predicates() filter.Predicates[consensus.UpdateQueueEntry] {
	code := func(v string, field func(consensus.UpdateQueueEntry) string) filter.Matcher[consensus.UpdateQueueEntry] {
		return filter.Equals(consensus.PadCode(v), field)
	}
	return filter.Predicates[consensus.UpdateQueueEntry]{
		"sku":               filter.Contains(q.Sku, func(e consensus.UpdateQueueEntry) string { return e.SKU }),
		"oldCategory":       code(q.OldCategory, func(e consensus.UpdateQueueEntry) string { return e.OldTriple.Category }),
		"oldType":           code(q.OldType, func(e consensus.UpdateQueueEntry) string { return e.OldTriple.Type }),
		"oldClassification": code(q.OldClassification, func(e consensus.UpdateQueueEntry) string { return e.OldTriple.Classification }),
		"newCategory":       code(q.NewCategory, func(e consensus.UpdateQueueEntry) string { return e.NewTriple.Category }),
		"newType":           code(q.NewType, func(e consensus.UpdateQueueEntry) string { return e.NewTriple.Type }),
		"newClassification": code(q.NewClassification, func(e consensus.UpdateQueueEntry) string { return e.NewTriple.Classification }),
		"decidedBy":         filter.Contains(q.DecidedBy, func(e consensus.UpdateQueueEntry) string { return e.DecidedBy }),
		"state":             filter.Equals(string(q.State), func(e consensus.UpdateQueueEntry) string { return string(e.State) }),
	}
}

// DiscrepancyQuery selects rows of both discrepancy views.
type DiscrepancyQuery struct {
	Sku           string
	Branch        string
	OnlyConflicts bool
}

func (q DiscrepancyQuery) onlyConflicts() *bool {
	if !q.OnlyConflicts {
		return nil
	}
	v := true
	return &v
}

// vsMasterScope narrows by sku and branch only; the KPI is computed on it.
func (q DiscrepancyQuery) vsMasterScope() filter.Predicates[consensus.DiscrepancyRecord] {
	return filter.Predicates[consensus.DiscrepancyRecord]{
		"sku": filter.Contains(q.Sku, func(r consensus.DiscrepancyRecord) string { return r.SKU }),
		"branch": filter.AnyContains(q.Branch, func(r consensus.DiscrepancyRecord) []string {
			if r.TopProposal == nil {
				return nil
			}
			return r.TopProposal.Branches
		}),
	}
}

func (q DiscrepancyQuery) crossBranchScope() filter.Predicates[consensus.BranchDiscrepancyRecord] {
	return filter.Predicates[consensus.BranchDiscrepancyRecord]{
		"sku":    filter.Contains(q.Sku, func(r consensus.BranchDiscrepancyRecord) string { return r.SKU }),
		"branch": filter.AnyContains(q.Branch, func(r consensus.BranchDiscrepancyRecord) []string { return r.Branches() }),
	}
}

// VsMasterReport is the maestro-vs-consensus view. KPI ignores OnlyConflicts.
type VsMasterReport struct {
	KPI     consensus.KPI                 `json:"kpi"`
	Records []consensus.DiscrepancyRecord `json:"records"`
}

type CrossBranchReport struct {
	KPI     consensus.KPI                       `json:"kpi"`
	Records []consensus.BranchDiscrepancyRecord `json:"records"`
}
