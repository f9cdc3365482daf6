package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/mmdatafocus/maestro_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newTestStore(t *testing.T) *models.Store {
	t.Helper()
	db, err := config.OpenDatabase(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.MigrateTable(db))
	return models.NewStore(db)
}

func openCampaign(t *testing.T, store *models.Store, name string) *models.Campaign {
	t.Helper()
	now := time.Now().UTC()
	c, err := store.CreateCampaign(context.Background(), &models.NewCampaign{
		Name:     name,
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
	}, "admin@example.com")
	require.NoError(t, err)
	return c
}

func TestCampaignLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	c := openCampaign(t, store, "Spring")
	assert.True(t, *c.IsActive)

	_, err := store.CreateCampaign(ctx, &models.NewCampaign{Name: " Spring ", StartsAt: c.StartsAt, EndsAt: c.EndsAt}, "x")
	assert.ErrorIs(t, err, consensus.ErrInvalidState)

	_, err = store.CreateCampaign(ctx, &models.NewCampaign{Name: "Bad", StartsAt: c.EndsAt, EndsAt: c.StartsAt}, "x")
	assert.ErrorIs(t, err, consensus.ErrValidation)

	active, err := store.ActiveCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	toggled, err := store.ToggleCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, *toggled.IsActive)

	active, err = store.ActiveCampaigns(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = store.GetCampaign(ctx, 999)
	assert.ErrorIs(t, err, consensus.ErrNotFound)

	history, err := store.ListHistory(ctx, c.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCreateScanSubmission(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := openCampaign(t, store, "Scan")

	sub, err := store.CreateScanSubmission(ctx, c.ID, &models.NewScanSubmission{Sku: "abc-123 x", Category: "7", Type: "2", Classification: "1"}, "Ana@Example.com", "North")
	require.NoError(t, err)
	assert.Equal(t, "ABC", sub.Sku)
	assert.Equal(t, "07", sub.ProposedCategory)
	assert.Equal(t, "ana@example.com", sub.UserEmail)

	_, err = store.CreateScanSubmission(ctx, c.ID, &models.NewScanSubmission{Sku: "-1", Category: "1"}, "ana@example.com", "North")
	assert.ErrorIs(t, err, consensus.ErrValidation)

	_, err = store.CreateScanSubmission(ctx, c.ID, &models.NewScanSubmission{Sku: "ABC"}, "ana@example.com", "North")
	assert.ErrorIs(t, err, consensus.ErrValidation)

	subs, err := store.ListSubmissions(ctx, c.ID, models.SubmissionQuery{Branch: "North"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, consensus.NewTriple("07", "02", "01"), subs[0].Triple())

	mine, err := store.ListUserSubmissions(ctx, c.ID, "ana@example.com")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = store.ToggleCampaign(ctx, c.ID)
	require.NoError(t, err)
	_, err = store.CreateScanSubmission(ctx, c.ID, &models.NewScanSubmission{Sku: "ABC", Category: "1"}, "ana@example.com", "North")
	assert.ErrorIs(t, err, consensus.ErrInvalidState)
}

func TestScanCodesCheckedAgainstDictionary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := openCampaign(t, store, "Dict")

	_, err := store.ImportDictionary(ctx, []models.CodeDictionary{
		{Kind: models.DictionaryKindCategory, Code: "7", Label: "Personal care"},
	})
	require.NoError(t, err)

	_, err = store.CreateScanSubmission(ctx, c.ID, &models.NewScanSubmission{Sku: "A1", Category: "08"}, "e@example.com", "")
	assert.ErrorIs(t, err, consensus.ErrValidation)

	// the type dictionary is empty so any type passes
	_, err = store.CreateScanSubmission(ctx, c.ID, &models.NewScanSubmission{Sku: "A1", Category: "07", Type: "99"}, "e@example.com", "")
	assert.NoError(t, err)
}

func TestImportMasterRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	result, err := store.ImportMasterRecords(utils.SetUsernameInContext(ctx, "admin@example.com"), []models.MasterRecord{
		{Sku: "sku1", Category: "3", Type: "2", Classification: "1", Description: "Shampoo"},
		{Sku: "###"},
		{Sku: "SKU2", Category: "5"},
	}, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)

	result, err = store.ImportMasterRecords(ctx, []models.MasterRecord{{Sku: "SKU1", Category: "4", Type: "2", Classification: "1"}}, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	m, err := store.GetMasterRecord(ctx, 0, "sku1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, consensus.NewTriple("04", "02", "01"), m.Triple())

	missing, err := store.GetMasterRecord(ctx, 0, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	many, err := store.GetMasterRecords(ctx, 0, []string{"SKU1", "sku2", "NOPE"})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	history, err := store.ListHistory(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "system", history[0].UserName)
	assert.Equal(t, "admin@example.com", history[1].UserName)
}

func TestRevisionPersistence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := openCampaign(t, store, "Revision")
	t.Setenv("PUBLISH_MAESTRO_UPDATES", "true")

	_, err := store.ImportMasterRecords(ctx, []models.MasterRecord{{Sku: "SKU1", Category: "03", Type: "02", Classification: "01", Description: "Shampoo"}}, "admin")
	require.NoError(t, err)

	decidedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	triple := consensus.NewTriple("07", "02", "01")
	entry := consensus.UpdateQueueEntry{
		ID:         uuid.NewString(),
		CampaignID: c.ID,
		SKU:        "SKU1",
		OldTriple:  consensus.NewTriple("03", "02", "01"),
		NewTriple:  triple,
		State:      consensus.QueueStatePending,
		CreatedAt:  decidedAt,
	}
	decision := consensus.Decision{
		SKU:          "SKU1",
		Triple:       triple,
		State:        consensus.DecisionStateAcceptedPending,
		DecidedBy:    "admin",
		DecidedAt:    decidedAt,
		QueueEntryID: entry.ID,
	}
	require.NoError(t, store.PersistDecision(ctx, c.ID, decision, &entry))

	err = store.PersistDecision(ctx, c.ID, decision, nil)
	assert.ErrorIs(t, err, consensus.ErrInvalidState)

	decisions, entries, err := store.LoadRevisionState(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, decisions[0].QueueEntryID)
	assert.Equal(t, consensus.QueueStatePending, entries[0].State)

	applied := entries[0]
	applied.State = consensus.QueueStateApplied
	applied.DecidedBy = "admin"
	applied.DecidedAt = decidedAt.Add(time.Hour)
	appliedDecision := decisions[0]
	appliedDecision.State = consensus.DecisionStateAcceptedApplied
	change := models.QueueChange{
		Op:        models.QueueOpApply,
		Entries:   []consensus.UpdateQueueEntry{applied},
		Decisions: []consensus.Decision{appliedDecision},
	}
	require.NoError(t, store.PersistQueueChanges(ctx, c.ID, change))

	m, err := store.GetMasterRecord(ctx, c.ID, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, triple, m.Triple())
	assert.Equal(t, "Shampoo", m.Description)

	// already applied: the pending guard rejects a second writer
	err = store.PersistQueueChanges(ctx, c.ID, change)
	assert.ErrorIs(t, err, consensus.ErrInvalidState)

	decisions, _, err = store.LoadRevisionState(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, consensus.DecisionStateAcceptedApplied, decisions[0].State)

	stats, err := store.OutboxStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, models.OutboxPublishStatusPending, stats[0].PublishStatus)
	assert.Equal(t, int64(1), stats[0].Count)

	archived := applied
	archived.Archived = true
	require.NoError(t, store.PersistQueueChanges(ctx, c.ID, models.QueueChange{Op: models.QueueOpArchive, Entries: []consensus.UpdateQueueEntry{archived}}))
	_, entries, err = store.LoadRevisionState(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, entries[0].Archived)
	assert.Equal(t, consensus.QueueStateApplied, entries[0].State)
}

func TestRejectedDecisionIsFinal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := openCampaign(t, store, "Rejected")

	decidedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	triple := consensus.NewTriple("05", "01", "02")
	rejected := consensus.Decision{SKU: "SKU5", Triple: triple, State: consensus.DecisionStateRejected, DecidedBy: "ana", DecidedAt: decidedAt}
	require.NoError(t, store.PersistDecision(ctx, c.ID, rejected, nil))

	entry := consensus.UpdateQueueEntry{
		ID:         uuid.NewString(),
		CampaignID: c.ID,
		SKU:        "SKU5",
		NewTriple:  triple,
		State:      consensus.QueueStatePending,
		CreatedAt:  decidedAt.Add(time.Hour),
	}
	accepted := consensus.Decision{
		SKU:          "SKU5",
		Triple:       triple,
		State:        consensus.DecisionStateAcceptedPending,
		DecidedBy:    "admin",
		DecidedAt:    decidedAt.Add(time.Hour),
		QueueEntryID: entry.ID,
	}
	err := store.PersistDecision(ctx, c.ID, accepted, &entry)
	assert.ErrorIs(t, err, consensus.ErrInvalidState)

	decisions, entries, err := store.LoadRevisionState(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Empty(t, entries)
	assert.Equal(t, consensus.DecisionStateRejected, decisions[0].State)
	assert.Equal(t, "ana", decisions[0].DecidedBy)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	admin, created, err := store.UpsertAdmin(ctx, "Admin@Example.com", "Admin", "secret-pass")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.UserRoleAdmin, admin.Role)
	assert.Empty(t, admin.Password)

	_, created, err = store.UpsertAdmin(ctx, "admin@example.com", "Admin", "new-pass-1")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = store.Authenticate(ctx, "admin@example.com", "secret-pass")
	assert.Error(t, err)
	u, err := store.Authenticate(ctx, " ADMIN@example.com", "new-pass-1")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, u.ID)

	emp, err := store.CreateUser(ctx, &models.NewUser{Email: "ana@example.com", Name: "Ana", Password: "password1", Role: models.UserRoleEmployee, Branch: "North"})
	require.NoError(t, err)
	assert.Equal(t, "North", emp.Branch)

	_, err = store.CreateUser(ctx, &models.NewUser{Email: "ana@example.com", Name: "Ana", Password: "password1", Role: models.UserRoleEmployee})
	assert.ErrorIs(t, err, consensus.ErrInvalidState)

	_, err = store.Authenticate(ctx, "nobody@example.com", "x")
	assert.Error(t, err)
}
