package consensus

import (
	"sort"
	"time"
)

// DiscrepancyRecord pairs a SKU's master snapshot with its top proposal.
type DiscrepancyRecord struct {
	SKU            string              `json:"sku"`
	Maestro        *MasterRecord       `json:"maestro"`
	TopProposal    *AggregatedProposal `json:"top_proposal"`
	TotalVotes     int                 `json:"total_votes"`
	ConsensusVotes int                 `json:"consensus_votes"`
	HasConsensus   bool                `json:"has_consensus"`
	Conflict       bool                `json:"conflict"`
	LastUpdatedAt  time.Time           `json:"last_updated_at"`
}

// TripleBranches is a branch-majority triple and the branches backing it.
type TripleBranches struct {
	Triple    Triple    `json:"triple"`
	Branches  []string  `json:"branches"`
	FirstSeen time.Time `json:"-"`
}

// BranchDiscrepancyRecord is the cross-branch view of one SKU.
type BranchDiscrepancyRecord struct {
	SKU           string           `json:"sku"`
	Majority      TripleBranches   `json:"majority"`
	Variants      []TripleBranches `json:"variants"`
	BranchCount   int              `json:"branch_count"`
	Conflict      bool             `json:"conflict"`
	LastUpdatedAt time.Time        `json:"last_updated_at"`
}

// Branches lists every branch that reported the SKU, sorted.
func (r BranchDiscrepancyRecord) Branches() []string {
	set := map[string]struct{}{}
	for _, v := range r.Variants {
		for _, b := range v.Branches {
			set[b] = struct{}{}
		}
	}
	return sortedKeys(set)
}

type KPI struct {
	DiscrepancyCount int `json:"discrepancy_count"`
	TotalCount       int `json:"total_count"`
}

// ComputeVsMaster builds one record per SKU, sorted by SKU.
func ComputeVsMaster(results map[string]AggregationResult) []DiscrepancyRecord {
	records := make([]DiscrepancyRecord, 0, len(results))
	for _, sku := range SortedSKUs(results) {
		r := results[sku]
		rec := DiscrepancyRecord{
			SKU:           sku,
			Maestro:       cloneMaster(r.MaestroSnapshot),
			TopProposal:   r.TopProposal,
			TotalVotes:    r.TotalVotes,
			HasConsensus:  r.HasConsensus,
			Conflict:      HasConflict(r.MaestroSnapshot, r.TopProposal),
			LastUpdatedAt: r.LastUpdatedAt,
		}
		if r.TopProposal != nil {
			rec.ConsensusVotes = r.TopProposal.VoteCount
		}
		records = append(records, rec)
	}
	return records
}

// ComputeCrossBranch compares branch majorities per SKU. Variants hold every
// distinct branch-majority triple, the majority (most branches, then earliest
// seen) first.
func ComputeCrossBranch(bySKU map[string][]ScanSubmission) []BranchDiscrepancyRecord {
	records := make([]BranchDiscrepancyRecord, 0, len(bySKU))
	for _, sku := range SortedSKUs(bySKU) {
		subs := bySKU[sku]
		if len(subs) == 0 {
			continue
		}
		agg := AggregateByBranch(subs)

		byTriple := map[string]*TripleBranches{}
		variants := make([]*TripleBranches, 0)
		rec := BranchDiscrepancyRecord{SKU: sku, BranchCount: len(agg.Branches)}
		for _, m := range agg.Branches {
			tb, ok := byTriple[m.Triple.Key()]
			if !ok {
				tb = &TripleBranches{Triple: m.Triple, FirstSeen: m.FirstSeen}
				byTriple[m.Triple.Key()] = tb
				variants = append(variants, tb)
			}
			tb.Branches = append(tb.Branches, m.Branch)
			if m.FirstSeen.Before(tb.FirstSeen) {
				tb.FirstSeen = m.FirstSeen
			}
			rec.LastUpdatedAt = maxTime(rec.LastUpdatedAt, m.LastSeen)
		}
		sort.SliceStable(variants, func(i, j int) bool {
			a, b := variants[i], variants[j]
			if len(a.Branches) != len(b.Branches) {
				return len(a.Branches) > len(b.Branches)
			}
			if !a.FirstSeen.Equal(b.FirstSeen) {
				return a.FirstSeen.Before(b.FirstSeen)
			}
			return a.Triple.Key() < b.Triple.Key()
		})
		for _, v := range variants {
			rec.Variants = append(rec.Variants, *v)
		}
		rec.Majority = rec.Variants[0]
		rec.Conflict = len(rec.Variants) > 1
		records = append(records, rec)
	}
	return records
}

func VsMasterKPI(records []DiscrepancyRecord) KPI {
	kpi := KPI{TotalCount: len(records)}
	for _, r := range records {
		if r.Conflict {
			kpi.DiscrepancyCount++
		}
	}
	return kpi
}

func CrossBranchKPI(records []BranchDiscrepancyRecord) KPI {
	kpi := KPI{TotalCount: len(records)}
	for _, r := range records {
		if r.Conflict {
			kpi.DiscrepancyCount++
		}
	}
	return kpi
}
