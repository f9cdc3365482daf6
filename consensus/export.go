package consensus

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var VsMasterColumns = []string{
	"sku", "masterCategory", "masterType", "masterClassification",
	"topCategory", "topType", "topClassification",
	"totalVotes", "consensusVotes", "conflict", "lastUpdatedAt",
}

var CrossBranchColumns = []string{
	"sku", "majorityCategory", "majorityType", "majorityClassification",
	"majorityBranches", "variants", "branchCount", "conflict", "lastUpdatedAt",
}

var QueueColumns = []string{
	"id", "sku", "oldCategory", "oldType", "oldClassification",
	"newCategory", "newType", "newClassification",
	"state", "decidedBy", "decidedAt", "archived",
}

var ProposalColumns = []string{
	"sku", "category", "type", "classification", "voteCount", "voteShare",
	"branches", "voters", "decision", "hasConsensus", "conflict",
}

func (r DiscrepancyRecord) Row() []string {
	master := r.Maestro.Triple()
	var top Triple
	if r.TopProposal != nil {
		top = r.TopProposal.Triple
	}
	return []string{
		r.SKU,
		master.Category, master.Type, master.Classification,
		top.Category, top.Type, top.Classification,
		strconv.Itoa(r.TotalVotes),
		strconv.Itoa(r.ConsensusVotes),
		strconv.FormatBool(r.Conflict),
		formatTime(r.LastUpdatedAt),
	}
}

func (r BranchDiscrepancyRecord) Row() []string {
	others := make([]string, 0, len(r.Variants))
	for _, v := range r.Variants[min(1, len(r.Variants)):] {
		others = append(others, v.Triple.Key()+" ("+strings.Join(v.Branches, ", ")+")")
	}
	return []string{
		r.SKU,
		r.Majority.Triple.Category, r.Majority.Triple.Type, r.Majority.Triple.Classification,
		strings.Join(r.Majority.Branches, ", "),
		strings.Join(others, "; "),
		strconv.Itoa(r.BranchCount),
		strconv.FormatBool(r.Conflict),
		formatTime(r.LastUpdatedAt),
	}
}

func (e UpdateQueueEntry) Row() []string {
	return []string{
		e.ID,
		e.SKU,
		e.OldTriple.Category, e.OldTriple.Type, e.OldTriple.Classification,
		e.NewTriple.Category, e.NewTriple.Type, e.NewTriple.Classification,
		string(e.State),
		e.DecidedBy,
		formatTime(e.DecidedAt),
		strconv.FormatBool(e.Archived),
	}
}

// ProposalRows flattens a result into one row per proposal.
func (r AggregationResult) ProposalRows() [][]string {
	rows := make([][]string, 0, len(r.Proposals))
	for _, p := range r.Proposals {
		decision := string(DecisionStateUndecided)
		if p.Decision != nil {
			decision = string(p.Decision.State)
		}
		rows = append(rows, []string{
			r.SKU,
			p.Triple.Category, p.Triple.Type, p.Triple.Classification,
			strconv.Itoa(p.VoteCount),
			FormatShare(p.VoteShare),
			strings.Join(p.Branches, ", "),
			strings.Join(p.Voters, ", "),
			decision,
			strconv.FormatBool(r.HasConsensus),
			strconv.FormatBool(r.Conflict),
		})
	}
	return rows
}

func VsMasterRows(records []DiscrepancyRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	return rows
}

func CrossBranchRows(records []BranchDiscrepancyRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	return rows
}

func QueueRows(entries []UpdateQueueEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, e.Row())
	}
	return rows
}

// FormatShare renders a vote share with three decimals, e.g. 0.667.
func FormatShare(share float64) string {
	return decimal.NewFromFloat(share).StringFixed(3)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
