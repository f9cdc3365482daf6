package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeVsMaster(t *testing.T) {
	subs := []ScanSubmission{
		sub("B2", "A", "a", "07", "02", "01", 0),
		sub("B2", "A", "b", "07", "02", "01", 1),
		sub("A1", "A", "a", "3", "2", "1", 2),
		sub("C3", "A", "a", "01", "01", "01", 3),
	}
	masters := map[string]*MasterRecord{
		"A1": {SKU: "A1", Category: "03", Type: "02", Classification: "01"},
		"B2": {SKU: "B2", Category: "03", Type: "02", Classification: "01"},
	}
	records := ComputeVsMaster(AggregateCampaign(subs, masters))
	require.Len(t, records, 3)

	assert.Equal(t, "A1", records[0].SKU)
	assert.False(t, records[0].Conflict)

	assert.Equal(t, "B2", records[1].SKU)
	assert.True(t, records[1].Conflict)
	assert.Equal(t, 2, records[1].TotalVotes)
	assert.Equal(t, 2, records[1].ConsensusVotes)
	assert.True(t, records[1].HasConsensus)

	// no master means conflict
	assert.Equal(t, "C3", records[2].SKU)
	assert.Nil(t, records[2].Maestro)
	assert.True(t, records[2].Conflict)

	assert.Equal(t, KPI{DiscrepancyCount: 2, TotalCount: 3}, VsMasterKPI(records))
}

func TestComputeVsMaster_Row(t *testing.T) {
	subs := []ScanSubmission{
		sub("B2", "A", "a", "07", "02", "01", 0),
		sub("B2", "A", "b", "07", "02", "01", 1),
		sub("B2", "A", "c", "03", "02", "01", 2),
	}
	masters := map[string]*MasterRecord{
		"B2": {SKU: "B2", Category: "3", Type: "2", Classification: "1"},
	}
	records := ComputeVsMaster(AggregateCampaign(subs, masters))
	require.Len(t, records, 1)

	assert.Equal(t, []string{
		"sku", "masterCategory", "masterType", "masterClassification",
		"topCategory", "topType", "topClassification",
		"totalVotes", "consensusVotes", "conflict", "lastUpdatedAt",
	}, VsMasterColumns)
	assert.Equal(t, []string{
		"B2", "03", "02", "01", "07", "02", "01", "3", "2", "true", "2026-03-01T09:02:00Z",
	}, records[0].Row())

	rows := VsMasterRows(records)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(VsMasterColumns))
}

func TestComputeCrossBranch_Conflict(t *testing.T) {
	bySKU := GroupBySKU([]ScanSubmission{
		sub("SKU1", "A", "a", "07", "02", "01", 0),
		sub("SKU1", "B", "b", "03", "02", "01", 1),
	})
	records := ComputeCrossBranch(bySKU)
	require.Len(t, records, 1)

	rec := records[0]
	assert.True(t, rec.Conflict)
	require.Len(t, rec.Variants, 2)
	assert.Equal(t, rec.Majority, rec.Variants[0])
	assert.Equal(t, Triple{"07", "02", "01"}, rec.Majority.Triple)
	assert.Equal(t, []string{"A"}, rec.Majority.Branches)
	assert.Equal(t, Triple{"03", "02", "01"}, rec.Variants[1].Triple)
	assert.Equal(t, 2, rec.BranchCount)
	assert.Equal(t, []string{"A", "B"}, rec.Branches())
	assert.Equal(t, KPI{DiscrepancyCount: 1, TotalCount: 1}, CrossBranchKPI(records))

	row := rec.Row()
	assert.Len(t, row, len(CrossBranchColumns))
	assert.Equal(t, "A", row[4])
	assert.Equal(t, "03|02|01 (B)", row[5])
}

func TestComputeCrossBranch_Agreement(t *testing.T) {
	bySKU := GroupBySKU([]ScanSubmission{
		sub("SKU1", "A", "a", "07", "02", "01", 0),
		sub("SKU1", "B", "b", "07", "02", "01", 1),
		sub("SKU1", "C", "c", "07", "02", "01", 2),
		sub("SKU1", "C", "d", "07", "02", "01", 3),
		sub("SKU1", "C", "e", "05", "02", "01", 4),
		sub("SKU2", "A", "a", "01", "01", "01", 5),
	})
	records := ComputeCrossBranch(bySKU)
	require.Len(t, records, 2)

	assert.False(t, records[0].Conflict)
	require.Len(t, records[0].Variants, 1)
	assert.Equal(t, []string{"A", "B", "C"}, records[0].Majority.Branches)
	assert.Equal(t, 3, records[0].BranchCount)

	assert.False(t, records[1].Conflict)
	assert.Equal(t, KPI{DiscrepancyCount: 0, TotalCount: 2}, CrossBranchKPI(records))
}

func TestComputeCrossBranch_MajorityHasMostBranches(t *testing.T) {
	bySKU := GroupBySKU([]ScanSubmission{
		sub("SKU1", "A", "a", "03", "02", "01", 0),
		sub("SKU1", "B", "b", "07", "02", "01", 1),
		sub("SKU1", "C", "c", "07", "02", "01", 2),
	})
	rec := ComputeCrossBranch(bySKU)[0]
	assert.Equal(t, Triple{"07", "02", "01"}, rec.Majority.Triple)
	assert.Equal(t, []string{"B", "C"}, rec.Majority.Branches)
	assert.Equal(t, Triple{"03", "02", "01"}, rec.Variants[1].Triple)
}

func TestQueueRowsAndFormatShare(t *testing.T) {
	e := UpdateQueueEntry{
		ID: "q1", SKU: "SKU1",
		OldTriple: Triple{"03", "02", "01"}, NewTriple: Triple{"07", "02", "01"},
		State: QueueStatePending, DecidedBy: "admin@x.cl", DecidedAt: t0,
	}
	rows := QueueRows([]UpdateQueueEntry{e})
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(QueueColumns))
	assert.Equal(t, "pending", rows[0][8])
	assert.Equal(t, "2026-03-01T09:00:00Z", rows[0][10])
	assert.Equal(t, "false", rows[0][11])

	assert.Equal(t, "0.667", FormatShare(2.0/3.0))
	assert.Equal(t, "1.000", FormatShare(1))
	assert.Equal(t, "0.000", FormatShare(0))
}

func TestProposalRows(t *testing.T) {
	res := Aggregate([]ScanSubmission{
		sub("SKU1", "A", "a", "07", "02", "01", 0),
		sub("SKU1", "B", "b", "03", "02", "01", 1),
	}, nil)
	rows := res.ProposalRows()
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(ProposalColumns))
	assert.Equal(t, "0.500", rows[0][5])
	assert.Equal(t, "undecided", rows[0][8])
}
