package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"anchord/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoFactory func(t *testing.T) Repository

func repositories() map[string]repoFactory {
	return map[string]repoFactory{
		"memory": func(t *testing.T) Repository {
			return NewMemoryRepository()
		},
		"sqlite": func(t *testing.T) Repository {
			repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "anchord.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		},
	}
}

func anchor(n int64) *models.AnchorRecord {
	return &models.AnchorRecord{
		TransactionNumber:   n,
		TransactionTime:     n >> 32,
		TransactionTimeHash: "block-hash",
		AnchorString:        "anchor",
		TransactionFeePaid:  170000,
		Writer:              "addr_test1writer",
	}
}

func metadataTx(n int64) models.LedgerTransaction {
	meta := "sidetree:anchor"
	return models.LedgerTransaction{
		Hash:              "tx-hash",
		Fee:               170000,
		BlockHash:         "block-hash",
		BlockHeight:       n >> 32,
		BlockIndex:        n & 0xffffffff,
		Metadata:          &meta,
		Confirmations:     10,
		TransactionNumber: n,
		Inputs:            []models.Input{{Address: "addr_test1writer", Amount: 5_000_000}},
		Outputs:           []models.Output{{Address: "addr_test1writer", Amount: 4_830_000}},
	}
}

func numbers(records []models.AnchorRecord) []int64 {
	out := []int64{}
	for _, r := range records {
		out = append(out, r.TransactionNumber)
	}
	return out
}

func ptr(n int64) *int64 { return &n }

func TestRepositoryAnchors(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			checkAnchors(t, factory(t))
		})
	}
}

func checkAnchors(t *testing.T, repo Repository) {
	ctx := context.Background()

	for _, n := range []int64{30, 10, 20} {
		require.NoError(t, repo.AddAnchor(ctx, anchor(n)))
	}

	duplicate := anchor(20)
	duplicate.AnchorString = "other"
	require.NoError(t, repo.AddAnchor(ctx, duplicate))

	got, err := repo.GetAnchor(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, *anchor(20), *got)

	_, err = repo.GetAnchor(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.ListAnchors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, numbers(all))

	later, err := repo.ListAnchorsLaterThan(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 30}, numbers(later))

	limited, err := repo.ListAnchorsLaterThan(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, numbers(limited))

	require.NoError(t, repo.RemoveAnchorsLaterThan(ctx, ptr(15)))
	all, err = repo.ListAnchors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, numbers(all))

	require.NoError(t, repo.RemoveAnchorsLaterThan(ctx, nil))
	all, err = repo.ListAnchors(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepositoryMetadata(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			checkMetadata(t, factory(t))
		})
	}
}

func checkMetadata(t *testing.T, repo Repository) {
	ctx := context.Background()

	last, err := repo.GetLastTransactionMetadata(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, repo.AddTransactionMetadata(ctx, metadataTx(5<<32), metadataTx(3<<32|1)))
	require.NoError(t, repo.AddTransactionMetadata(ctx, metadataTx(5<<32)))
	require.NoError(t, repo.AddTransactionMetadata(ctx))

	last, err = repo.GetLastTransactionMetadata(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, metadataTx(5<<32), *last)

	listed, err := repo.ListTransactionMetadata(ctx, 0, 5<<32)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, int64(3<<32|1), listed[0].TransactionNumber)

	require.NoError(t, repo.RemoveTransactionMetadataLaterThan(ctx, ptr(3<<32|1)))
	last, err = repo.GetLastTransactionMetadata(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, int64(3<<32|1), last.TransactionNumber)

	require.NoError(t, repo.RemoveTransactionMetadataLaterThan(ctx, nil))
	last, err = repo.GetLastTransactionMetadata(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRepositoryMetadataWithoutPayload(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			checkMetadataWithoutPayload(t, factory(t))
		})
	}
}

func checkMetadataWithoutPayload(t *testing.T, repo Repository) {
	ctx := context.Background()

	tx := metadataTx(7)
	tx.Metadata = nil
	require.NoError(t, repo.AddTransactionMetadata(ctx, tx))

	last, err := repo.GetLastTransactionMetadata(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Nil(t, last.Metadata)
}

func TestRepositoryServiceState(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			checkServiceState(t, factory(t))
		})
	}
}

func checkServiceState(t *testing.T, repo Repository) {
	ctx := context.Background()

	state, err := repo.GetServiceState(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.PutServiceState(ctx, &models.ServiceState{DatabaseVersion: "1.0.0", UpdatedAt: now}))
	require.NoError(t, repo.PutServiceState(ctx, &models.ServiceState{DatabaseVersion: "1.1.0", UpdatedAt: now}))

	state, err = repo.GetServiceState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "1.1.0", state.DatabaseVersion)
	assert.True(t, now.Equal(state.UpdatedAt))

	assert.NoError(t, repo.Ping(ctx))
}

func TestNewSQLiteRepositoryRequiresPath(t *testing.T) {
	_, err := NewSQLiteRepository(context.Background(), "  ")
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)

			for _, n := range []int64{10, 20, 30} {
				require.NoError(t, repo.AddAnchor(ctx, anchor(n)))
				require.NoError(t, repo.AddTransactionMetadata(ctx, metadataTx(n)))
			}

			require.NoError(t, Reset(ctx, repo, ptr(15)))
			anchors, err := repo.ListAnchors(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int64{10}, numbers(anchors))
			last, err := repo.GetLastTransactionMetadata(ctx)
			require.NoError(t, err)
			require.NotNil(t, last)
			assert.Equal(t, int64(10), last.TransactionNumber)

			require.NoError(t, Reset(ctx, repo, nil))
			anchors, err = repo.ListAnchors(ctx)
			require.NoError(t, err)
			assert.Empty(t, anchors)
			last, err = repo.GetLastTransactionMetadata(ctx)
			require.NoError(t, err)
			assert.Nil(t, last)
		})
	}
}
