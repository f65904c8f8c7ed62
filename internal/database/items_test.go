package database

import (
	"context"
	"testing"

	"rentloop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestItem(t *testing.T, db *DB, ownerID int64, name, description string, available bool) *models.Item {
	t.Helper()
	item := &models.Item{
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Available:   available,
	}
	require.NoError(t, db.CreateItem(context.Background(), item))
	return item
}

func TestCreateAndGetItem(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	item := createTestItem(t, db, 1, "Drill", "Cordless drill", true)
	assert.NotZero(t, item.ID)

	got, err := db.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drill", got.Name)
	assert.Equal(t, int64(1), got.OwnerID)
	assert.True(t, got.Available)
}

func TestGetItem_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetItem(context.Background(), 404)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateItem(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	item := createTestItem(t, db, 1, "Drill", "Cordless drill", true)

	item.Name = "Hammer drill"
	item.Available = false
	require.NoError(t, db.UpdateItem(ctx, item))

	got, err := db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hammer drill", got.Name)
	assert.False(t, got.Available)

	missing := &models.Item{ID: 404, Name: "ghost"}
	assert.ErrorIs(t, db.UpdateItem(ctx, missing), ErrItemNotFound)
}

func TestSeedItem_PreservesIDAndSkipsExisting(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	seed := &models.Item{ID: 42, OwnerID: 1, Name: "Ladder", Available: true}
	require.NoError(t, db.SeedItem(ctx, seed))

	got, err := db.GetItem(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Ladder", got.Name)

	// Seeding again must not overwrite.
	again := &models.Item{ID: 42, OwnerID: 1, Name: "Stepladder", Available: true}
	require.NoError(t, db.SeedItem(ctx, again))

	got, err = db.GetItem(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Ladder", got.Name)
}

func TestItemsByOwnerAndIDs(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	first := createTestItem(t, db, 1, "Drill", "", true)
	second := createTestItem(t, db, 1, "Saw", "", true)
	createTestItem(t, db, 2, "Tent", "", true)

	items, err := db.ItemsByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)

	ids, err := db.ItemIDsOwnedBy(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{first.ID, second.ID}, ids)
}

func TestSearchItems(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	drill := createTestItem(t, db, 1, "Power Drill", "800W hammer function", true)
	createTestItem(t, db, 1, "Drill bits", "for metal", false)
	saw := createTestItem(t, db, 2, "Circular saw", "includes a drilling adapter", true)

	// Case-insensitive, matches name or description, available only.
	items, err := db.SearchItems(ctx, "dRiLl")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.ElementsMatch(t, []int64{drill.ID, saw.ID},
		[]int64{items[0].ID, items[1].ID})

	// Blank text yields nothing.
	items, err = db.SearchItems(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestItemsByRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	request := &models.ItemRequest{RequestorID: 1, Description: "need a drill"}
	require.NoError(t, db.CreateRequest(ctx, request))

	answer := &models.Item{OwnerID: 2, Name: "Drill", Available: true, RequestID: request.ID}
	require.NoError(t, db.CreateItem(ctx, answer))
	createTestItem(t, db, 2, "Saw", "", true)

	items, err := db.ItemsByRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, answer.ID, items[0].ID)
}

func TestDeleteItem(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	item := createTestItem(t, db, 1, "Drill", "", true)

	require.NoError(t, db.DeleteItem(ctx, item.ID))

	_, err := db.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}
