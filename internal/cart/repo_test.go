package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ovenfresh/bakeshop/internal/models"
)

func TestRepoUpsertOverwritesOnConflict(t *testing.T) {
	db := initTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	p := models.Product{Name: "cinnamon bun", Description: "sticky", Price: 1.75}
	require.NoError(t, db.Create(&p).Error)

	require.NoError(t, repo.Upsert(ctx, 1, p.ID, 2))
	require.NoError(t, repo.Upsert(ctx, 1, p.ID, 7))

	var items []models.CartItem
	require.NoError(t, db.Where("user_id = ?", 1).Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, uint(7), items[0].Quantity)
}

func TestRepoUpsertZeroQuantityDeletes(t *testing.T) {
	db := initTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	p := models.Product{Name: "scone", Description: "fruit", Price: 2.10}
	require.NoError(t, db.Create(&p).Error)

	require.NoError(t, repo.Upsert(ctx, 1, p.ID, 3))
	require.NoError(t, repo.Upsert(ctx, 1, p.ID, 0))

	lines, err := repo.Fetch(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestRepoFetchScopedByUser(t *testing.T) {
	db := initTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	p := models.Product{Name: "pretzel", Description: "salted", Price: 1.20}
	require.NoError(t, db.Create(&p).Error)

	require.NoError(t, repo.Upsert(ctx, 1, p.ID, 2))
	require.NoError(t, repo.Upsert(ctx, 2, p.ID, 9))

	lines, err := repo.Fetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, uint(2), lines[0].Quantity)
	require.Equal(t, "pretzel", lines[0].Name)
	require.InDelta(t, 1.20, lines[0].UnitPrice, 1e-9)
}

func TestRepoRejectsZeroProductID(t *testing.T) {
	db := initTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	require.ErrorIs(t, repo.Upsert(ctx, 1, 0, 1), ErrValidation)
	require.ErrorIs(t, repo.Delete(ctx, 1, 0), ErrValidation)
}
