package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sub(sku, branch, email, cat, typ, cls string, minute int) ScanSubmission {
	return ScanSubmission{
		SKU:                    sku,
		CampaignID:             1,
		UserEmail:              email,
		Branch:                 branch,
		ProposedCategory:       cat,
		ProposedType:           typ,
		ProposedClassification: cls,
		SubmittedAt:            t0.Add(time.Duration(minute) * time.Minute),
	}
}

func TestAggregate_MajorityScenario(t *testing.T) {
	subs := []ScanSubmission{
		sub("SKU1", "Centro", "a@x.cl", "07", "02", "01", 0),
		sub("SKU1", "Centro", "b@x.cl", "07", "02", "01", 1),
		sub("SKU1", "Norte", "c@x.cl", "03", "02", "01", 2),
	}
	res := Aggregate(subs, nil)

	require.Len(t, res.Proposals, 2)
	assert.Equal(t, 3, res.TotalVotes)
	require.NotNil(t, res.TopProposal)
	assert.Equal(t, 2, res.TopProposal.VoteCount)
	assert.InDelta(t, 0.667, res.TopProposal.VoteShare, 0.001)
	assert.True(t, res.HasConsensus)
	assert.InDelta(t, 0.667, res.ConsensusShare, 0.001)
	assert.Equal(t, []string{"a@x.cl", "b@x.cl"}, res.TopProposal.Voters)
	assert.Equal(t, []string{"Centro"}, res.TopProposal.Branches)
	assert.True(t, res.Conflict, "missing master is a conflict")
	assert.Equal(t, t0.Add(2*time.Minute), res.LastUpdatedAt)
}

func TestAggregate_PadsBeforeGrouping(t *testing.T) {
	subs := []ScanSubmission{
		sub("sku1", "A", "a@x.cl", "7", "2", "1", 0),
		sub("SKU1", "A", "b@x.cl", "07", "02", "01", 1),
	}
	res := Aggregate(subs, nil)
	require.Len(t, res.Proposals, 1)
	assert.Equal(t, Triple{"07", "02", "01"}, res.TopProposal.Triple)
	assert.Equal(t, "SKU1", res.SKU)
	assert.Equal(t, 1.0, res.ConsensusShare)
}

func TestAggregate_VoteCountsPartitionSubmissions(t *testing.T) {
	subs := []ScanSubmission{
		sub("S", "A", "1", "01", "01", "01", 0),
		sub("S", "A", "2", "02", "01", "01", 1),
		sub("S", "B", "3", "01", "01", "01", 2),
		sub("S", "B", "4", "03", "01", "", 3),
		sub("S", "C", "5", "02", "01", "01", 4),
		sub("S", "C", "6", "01", "01", "01", 5),
		sub("S", "C", "7", "", "", "", 6),
	}
	res := Aggregate(subs, nil)
	sum := 0
	for _, p := range res.Proposals {
		sum += p.VoteCount
		assert.GreaterOrEqual(t, res.TopProposal.VoteCount, p.VoteCount)
		assert.InDelta(t, float64(p.VoteCount)/float64(len(subs)), p.VoteShare, 1e-9)
	}
	assert.Equal(t, len(subs), sum)
	assert.Equal(t, 3, res.TopProposal.VoteCount)
	assert.False(t, res.HasConsensus)
}

func TestAggregate_TieBreaksOnEarliestSubmission(t *testing.T) {
	subs := []ScanSubmission{
		sub("S", "A", "1", "03", "02", "01", 10),
		sub("S", "A", "2", "07", "02", "01", 5),
		sub("S", "A", "3", "03", "02", "01", 11),
		sub("S", "A", "4", "07", "02", "01", 12),
	}
	res := Aggregate(subs, nil)
	assert.Equal(t, "07", res.TopProposal.Triple.Category)
	assert.False(t, res.HasConsensus)

	// same timestamps fall back to input order
	same := []ScanSubmission{
		sub("S", "A", "1", "03", "02", "01", 0),
		sub("S", "A", "2", "07", "02", "01", 0),
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, "03", Aggregate(same, nil).TopProposal.Triple.Category)
	}
}

func TestAggregate_ConflictAgainstMaster(t *testing.T) {
	subs := []ScanSubmission{sub("S", "A", "1", "07", "02", "01", 0)}

	master := &MasterRecord{SKU: "S", Category: "07", Type: "02", Classification: "01"}
	assert.False(t, Aggregate(subs, master).Conflict)

	unpadded := &MasterRecord{SKU: "S", Category: "7", Type: "2", Classification: "1"}
	assert.False(t, Aggregate(subs, unpadded).Conflict)

	other := &MasterRecord{SKU: "S", Category: "07", Type: "02", Classification: "09"}
	assert.True(t, Aggregate(subs, other).Conflict)

	assert.True(t, Aggregate(subs, nil).Conflict)
}

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(nil, &MasterRecord{SKU: "s1", Category: "01"})
	assert.Equal(t, "S1", res.SKU)
	assert.Empty(t, res.Proposals)
	assert.Nil(t, res.TopProposal)
	assert.False(t, res.HasConsensus)
	assert.False(t, res.Conflict)
}

func TestAggregate_Deterministic(t *testing.T) {
	subs := []ScanSubmission{
		sub("S", "A", "1", "01", "01", "01", 3),
		sub("S", "B", "2", "02", "01", "01", 1),
		sub("S", "C", "3", "03", "01", "01", 2),
	}
	first := Aggregate(subs, nil)
	for i := 0; i < 20; i++ {
		again := Aggregate(subs, nil)
		assert.Equal(t, first.TopProposal.Triple, again.TopProposal.Triple)
		assert.Equal(t, first.HasConsensus, again.HasConsensus)
	}
	assert.Equal(t, "02", first.TopProposal.Triple.Category)
}

func TestAggregateCampaign(t *testing.T) {
	subs := []ScanSubmission{
		sub("abc-1", "A", "1", "01", "01", "01", 0),
		sub("ABC", "B", "2", "01", "01", "01", 1),
		sub("xyz", "A", "3", "02", "02", "02", 2),
		sub("#bad", "A", "4", "02", "02", "02", 3),
	}
	masters := map[string]*MasterRecord{
		"ABC": {SKU: "ABC", Category: "01", Type: "01", Classification: "01"},
	}
	results := AggregateCampaign(subs, masters)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results["ABC"].TotalVotes)
	assert.False(t, results["ABC"].Conflict)
	assert.True(t, results["XYZ"].Conflict)
	assert.Equal(t, []string{"ABC", "XYZ"}, SortedSKUs(results))
}

func TestAggregateByBranch(t *testing.T) {
	subs := []ScanSubmission{
		sub("S", "A", "1", "07", "02", "01", 0),
		sub("S", "A", "2", "07", "02", "01", 1),
		sub("S", "A", "3", "05", "02", "01", 2),
		sub("S", "B", "4", "03", "02", "01", 3),
	}
	agg := AggregateByBranch(subs)
	require.Len(t, agg.Branches, 2)
	assert.True(t, agg.Conflict)
	assert.Equal(t, 2, agg.DistinctMajorities())

	a := agg.Branches[0]
	assert.Equal(t, "A", a.Branch)
	assert.Equal(t, Triple{"07", "02", "01"}, a.Triple)
	assert.Equal(t, 2, a.VoteCount)
	assert.Equal(t, 3, a.TotalVotes)
	require.Len(t, a.Variants, 1)
	assert.Equal(t, "05", a.Variants[0].Triple.Category)

	b := agg.Branches[1]
	assert.Equal(t, Triple{"03", "02", "01"}, b.Triple)
	assert.Empty(t, b.Variants)
}

func TestAggregateByBranch_Agreement(t *testing.T) {
	subs := []ScanSubmission{
		sub("S", "A", "1", "07", "02", "01", 0),
		sub("S", "B", "2", "7", "2", "1", 1),
		sub("S", "B", "3", "09", "02", "01", 2),
		sub("S", "B", "4", "07", "02", "01", 3),
	}
	agg := AggregateByBranch(subs)
	assert.False(t, agg.Conflict)
	assert.Len(t, agg.Branches[1].Variants, 1)
}
