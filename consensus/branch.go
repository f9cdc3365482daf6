package consensus

import (
	"sort"
	"time"
)

// BranchMajority is the majority triple of a single branch for a SKU.
type BranchMajority struct {
	Branch     string    `json:"branch"`
	Triple     Triple    `json:"triple"`
	VoteCount  int       `json:"vote_count"`
	TotalVotes int       `json:"total_votes"`
	VoteShare  float64   `json:"vote_share"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	// Variants are the branch's non-majority proposals. Informational only.
	Variants []*AggregatedProposal `json:"variantes"`
}

// BranchAggregation compares branch-level majorities for one SKU.
type BranchAggregation struct {
	SKU      string           `json:"sku"`
	Branches []BranchMajority `json:"branches"`
	Conflict bool             `json:"conflicto"`
}

// DistinctMajorities is the number of different majority triples across branches.
func (b BranchAggregation) DistinctMajorities() int {
	seen := map[string]struct{}{}
	for _, m := range b.Branches {
		seen[m.Triple.Key()] = struct{}{}
	}
	return len(seen)
}

// AggregateByBranch runs the aggregation per branch and flags a conflict when
// branches disagree on their majority triple. Branches are sorted by name.
func AggregateByBranch(subs []ScanSubmission) BranchAggregation {
	agg := BranchAggregation{Branches: []BranchMajority{}}
	if len(subs) == 0 {
		return agg
	}
	agg.SKU = NormalizeSKU(subs[0].SKU)

	byBranch := make(map[string][]ScanSubmission)
	for _, s := range subs {
		byBranch[s.Branch] = append(byBranch[s.Branch], s)
	}

	names := make([]string, 0, len(byBranch))
	for name := range byBranch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		group := byBranch[name]
		proposals := groupProposals(agg.SKU, group)
		top := proposals[0]
		m := BranchMajority{
			Branch:     name,
			Triple:     top.Triple,
			VoteCount:  top.VoteCount,
			TotalVotes: len(group),
			VoteShare:  top.VoteShare,
			FirstSeen:  top.FirstSubmittedAt,
			Variants:   proposals[1:],
		}
		for _, s := range group {
			m.LastSeen = maxTime(m.LastSeen, s.SubmittedAt)
		}
		agg.Branches = append(agg.Branches, m)
	}
	agg.Conflict = agg.DistinctMajorities() > 1
	return agg
}
