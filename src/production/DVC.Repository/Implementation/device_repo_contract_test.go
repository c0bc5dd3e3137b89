package implementation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
	interfaces "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Repository/Interfaces"
)

// runRepositoryContract exercises the behaviour every DeviceRepository must share.
// newRepo must return an empty store.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) interfaces.DeviceRepository) {
	ctx := context.Background()

	seed := func(t *testing.T, repo interfaces.DeviceRepository, name, brand string, state dvcmodels.State) *dvcmodels.Device {
		t.Helper()
		d := dvcmodels.NewDevice(name, brand)
		d.State = state
		saved, err := repo.Save(ctx, d)
		require.NoError(t, err)
		return saved
	}

	t.Run("SaveAssignsIdAndCreationTime", func(t *testing.T) {
		repo := newRepo(t)
		before := time.Now().UTC().Add(-time.Second)

		saved, err := repo.Save(ctx, dvcmodels.NewDevice("iPhone 14", "Apple"))
		require.NoError(t, err)

		assert.NotZero(t, saved.ID)
		assert.Equal(t, "iPhone 14", saved.Name)
		assert.Equal(t, "Apple", saved.Brand)
		assert.Equal(t, dvcmodels.StateAvailable, saved.State)
		assert.True(t, saved.CreationTime.After(before), "creation time %v should be after %v", saved.CreationTime, before)

		found, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, saved.Name, found.Name)
		assert.Equal(t, saved.Brand, found.Brand)
		assert.Equal(t, saved.State, found.State)
		assert.WithinDuration(t, saved.CreationTime, found.CreationTime, time.Millisecond)
	})

	t.Run("SaveDefaultsEmptyState", func(t *testing.T) {
		repo := newRepo(t)

		saved, err := repo.Save(ctx, &dvcmodels.Device{Name: "Pixel 8", Brand: "Google"})
		require.NoError(t, err)
		assert.Equal(t, dvcmodels.StateAvailable, saved.State)
	})

	t.Run("SaveOverwritesExisting", func(t *testing.T) {
		repo := newRepo(t)
		saved := seed(t, repo, "Galaxy S23", "Samsung", dvcmodels.StateAvailable)

		changed := *saved
		changed.Name = "Galaxy S24"
		changed.State = dvcmodels.StateInactive
		changed.CreationTime = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

		updated, err := repo.Save(ctx, &changed)
		require.NoError(t, err)
		assert.Equal(t, saved.ID, updated.ID)
		assert.Equal(t, "Galaxy S24", updated.Name)
		assert.Equal(t, dvcmodels.StateInactive, updated.State)
		assert.WithinDuration(t, saved.CreationTime, updated.CreationTime, time.Millisecond, "creation time must not change")

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("SaveUnknownIdIsNotFound", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Save(ctx, &dvcmodels.Device{ID: 999, Name: "Ghost", Brand: "None", State: dvcmodels.StateAvailable})
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("FindByIdMissing", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByID(ctx, 12345)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("FindAllInInsertionOrder", func(t *testing.T) {
		repo := newRepo(t)

		empty, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		a := seed(t, repo, "A", "Apple", dvcmodels.StateAvailable)
		b := seed(t, repo, "B", "Samsung", dvcmodels.StateInUse)
		c := seed(t, repo, "C", "Nokia", dvcmodels.StateInactive)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []int64{a.ID, b.ID, c.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})
	})

	t.Run("FindByBrandContainingIgnoresCase", func(t *testing.T) {
		repo := newRepo(t)
		iphone := seed(t, repo, "iPhone 14", "Apple", dvcmodels.StateAvailable)
		watch := seed(t, repo, "Watch", "APPLE Inc", dvcmodels.StateInUse)
		seed(t, repo, "Galaxy", "Samsung", dvcmodels.StateAvailable)
		pine := seed(t, repo, "Phone", "Pineapple Labs", dvcmodels.StateInactive)

		found, err := repo.FindByBrandContaining(ctx, "apple")
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{iphone.ID, watch.ID, pine.ID}, ids(found))

		found, err = repo.FindByBrandContaining(ctx, "SUNG")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Samsung", found[0].Brand)

		found, err = repo.FindByBrandContaining(ctx, "motorola")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("FindByBrandContainingIsLiteral", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo, "Plain", "Apple", dvcmodels.StateAvailable)
		pct := seed(t, repo, "Odd", "100% Brand", dvcmodels.StateAvailable)

		found, err := repo.FindByBrandContaining(ctx, "%")
		require.NoError(t, err)
		assert.Equal(t, []int64{pct.ID}, ids(found))

		found, err = repo.FindByBrandContaining(ctx, "_")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("FindByStateExact", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo, "A", "Apple", dvcmodels.StateAvailable)
		inUse1 := seed(t, repo, "B", "Apple", dvcmodels.StateInUse)
		seed(t, repo, "C", "Nokia", dvcmodels.StateInactive)
		inUse2 := seed(t, repo, "D", "Nokia", dvcmodels.StateInUse)

		found, err := repo.FindByState(ctx, dvcmodels.StateInUse)
		require.NoError(t, err)
		assert.Equal(t, []int64{inUse1.ID, inUse2.ID}, ids(found))
		for _, d := range found {
			assert.Equal(t, dvcmodels.StateInUse, d.State)
		}
	})

	t.Run("DeleteByIdAndNoReuse", func(t *testing.T) {
		repo := newRepo(t)
		first := seed(t, repo, "Old", "Apple", dvcmodels.StateAvailable)

		require.NoError(t, repo.DeleteByID(ctx, first.ID))

		_, err := repo.FindByID(ctx, first.ID)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.ErrorIs(t, repo.DeleteByID(ctx, first.ID), sql.ErrNoRows)

		second := seed(t, repo, "New", "Apple", dvcmodels.StateAvailable)
		assert.Greater(t, second.ID, first.ID, "ids must not be reused")
	})
}

func ids(devices []dvcmodels.Device) []int64 {
	out := make([]int64, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.ID)
	}
	return out
}
