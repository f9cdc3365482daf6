package consensus

import (
	"sort"
	"time"
)

// ConsensusThreshold is the minimum vote share of the top proposal for a SKU
// to count as having consensus.
const ConsensusThreshold = 0.6

// Aggregate groups the submissions of one SKU by their padded triple.
// The submissions are expected to belong to the same SKU; the SKU of the
// result is taken from the first one.
func Aggregate(subs []ScanSubmission, master *MasterRecord) AggregationResult {
	result := AggregationResult{
		MaestroSnapshot: cloneMaster(master),
		Proposals:       []*AggregatedProposal{},
	}
	if master != nil {
		result.SKU = NormalizeSKU(master.SKU)
	}
	if len(subs) > 0 {
		result.SKU = NormalizeSKU(subs[0].SKU)
	}

	result.Proposals = groupProposals(result.SKU, subs)
	result.TotalVotes = len(subs)
	for _, s := range subs {
		if s.SubmittedAt.After(result.LastUpdatedAt) {
			result.LastUpdatedAt = s.SubmittedAt
		}
	}

	if len(result.Proposals) > 0 {
		result.TopProposal = result.Proposals[0]
		result.ConsensusShare = result.TopProposal.VoteShare
		result.HasConsensus = result.TopProposal.VoteShare >= ConsensusThreshold
	}
	result.Conflict = HasConflict(master, result.TopProposal)
	return result
}

// groupProposals builds the proposals of a SKU ordered by rank: vote count
// desc, then earliest first submission, then first appearance in subs.
func groupProposals(sku string, subs []ScanSubmission) []*AggregatedProposal {
	type group struct {
		proposal *AggregatedProposal
		voters   map[string]struct{}
		branches map[string]struct{}
	}

	groups := make(map[string]*group)
	order := make([]*group, 0)
	for i, s := range subs {
		triple := s.Triple()
		key := triple.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{
				proposal: &AggregatedProposal{
					SKU:              sku,
					Triple:           triple,
					FirstSubmittedAt: s.SubmittedAt,
					LastSubmittedAt:  s.SubmittedAt,
					firstIndex:       i,
				},
				voters:   map[string]struct{}{},
				branches: map[string]struct{}{},
			}
			groups[key] = g
			order = append(order, g)
		}
		p := g.proposal
		p.VoteCount++
		if s.SubmittedAt.Before(p.FirstSubmittedAt) {
			p.FirstSubmittedAt = s.SubmittedAt
		}
		if s.SubmittedAt.After(p.LastSubmittedAt) {
			p.LastSubmittedAt = s.SubmittedAt
		}
		if s.UserEmail != "" {
			g.voters[s.UserEmail] = struct{}{}
		}
		if s.Branch != "" {
			g.branches[s.Branch] = struct{}{}
		}
	}

	total := len(subs)
	proposals := make([]*AggregatedProposal, 0, len(order))
	for _, g := range order {
		p := g.proposal
		p.VoteShare = float64(p.VoteCount) / float64(total)
		p.Voters = sortedKeys(g.voters)
		p.Branches = sortedKeys(g.branches)
		proposals = append(proposals, p)
	}
	sortProposals(proposals)
	return proposals
}

func sortProposals(proposals []*AggregatedProposal) {
	sort.SliceStable(proposals, func(i, j int) bool {
		return rankBefore(proposals[i], proposals[j])
	})
}

func rankBefore(a, b *AggregatedProposal) bool {
	if a.VoteCount != b.VoteCount {
		return a.VoteCount > b.VoteCount
	}
	if !a.FirstSubmittedAt.Equal(b.FirstSubmittedAt) {
		return a.FirstSubmittedAt.Before(b.FirstSubmittedAt)
	}
	return a.firstIndex < b.firstIndex
}

// HasConflict reports whether the top proposal disagrees with the master
// record. A missing master is always a conflict; a master without any
// proposal to compare against is not.
func HasConflict(master *MasterRecord, top *AggregatedProposal) bool {
	if master == nil {
		return true
	}
	if top == nil {
		return false
	}
	return master.Triple().Key() != top.Triple.Key()
}

// AggregateCampaign groups submissions by normalized SKU and aggregates each
// group against its master record (masters keyed by normalized SKU). SKUs with
// an empty canonical form are ignored.
func AggregateCampaign(subs []ScanSubmission, masters map[string]*MasterRecord) map[string]AggregationResult {
	bySKU := GroupBySKU(subs)
	results := make(map[string]AggregationResult, len(bySKU))
	for sku, group := range bySKU {
		results[sku] = Aggregate(group, masters[sku])
	}
	return results
}

// GroupBySKU buckets submissions by normalized SKU, keeping input order.
func GroupBySKU(subs []ScanSubmission) map[string][]ScanSubmission {
	bySKU := make(map[string][]ScanSubmission)
	for _, s := range subs {
		sku := NormalizeSKU(s.SKU)
		if sku == "" {
			continue
		}
		s.SKU = sku
		bySKU[sku] = append(bySKU[sku], s)
	}
	return bySKU
}

// SortedSKUs returns the keys of an aggregation map in ascending order.
func SortedSKUs[V any](m map[string]V) []string {
	skus := make([]string, 0, len(m))
	for sku := range m {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func cloneMaster(m *MasterRecord) *MasterRecord {
	if m == nil {
		return nil
	}
	c := *m
	c.SKU = NormalizeSKU(c.SKU)
	c.Category = PadCode(c.Category)
	c.Type = PadCode(c.Type)
	c.Classification = PadCode(c.Classification)
	return &c
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
