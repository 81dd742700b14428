package processor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"anchord/internal/apperr"
	"anchord/internal/ledger"
	"anchord/internal/models"
	"anchord/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	tip     *models.Block
	blocks  map[string]*models.Block
	balance int64
	err     error
}

func (f *fakeLedger) GetTip(ctx context.Context) (*models.Block, error) {
	return f.tip, f.err
}

func (f *fakeLedger) GetBlock(ctx context.Context, hash string) (*models.Block, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.blocks[hash]
	if !ok {
		return nil, ledger.ApplicationError("fake", "get_block", ledger.ErrNotFound)
	}
	return b, nil
}

func (f *fakeLedger) GetBalance(ctx context.Context, address string) (int64, error) {
	return f.balance, f.err
}

type fakeWriter struct {
	written []string
	err     error
}

func (f *fakeWriter) Write(ctx context.Context, anchorString string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.written = append(f.written, anchorString)
	return "txid", nil
}

func newTestProcessor(t *testing.T) (*Processor, *storage.MemoryRepository, *fakeLedger, *fakeWriter) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	l := &fakeLedger{
		tip:    &models.Block{Height: 120, Hash: "tip"},
		blocks: map[string]*models.Block{"old": {Height: 80, Hash: "old"}},
	}
	w := &fakeWriter{}
	return New(l, w, repo, "addr_test1me"), repo, l, w
}

func seedAnchors(t *testing.T, repo *storage.MemoryRepository, numbers ...int64) {
	t.Helper()
	for _, n := range numbers {
		require.NoError(t, repo.AddAnchor(context.Background(), &models.AnchorRecord{
			TransactionNumber:   n,
			TransactionTimeHash: "hash-" + string(rune('a'+n)),
			AnchorString:        "anchor",
		}))
	}
}

func ptr(n int64) *int64 { return &n }

func TestInitializeWritesVersion(t *testing.T) {
	p, repo, _, _ := newTestProcessor(t)
	ctx := context.Background()

	require.NoError(t, p.Initialize(ctx))
	state, err := repo.GetServiceState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, DatabaseVersion, state.DatabaseVersion)

	// a second start is a no-op
	require.NoError(t, p.Initialize(ctx))
}

func TestInitializeUpgradesOlderVersion(t *testing.T) {
	p, repo, _, _ := newTestProcessor(t)
	ctx := context.Background()
	require.NoError(t, repo.PutServiceState(ctx, &models.ServiceState{DatabaseVersion: "0.9.0", UpdatedAt: time.Now()}))

	require.NoError(t, p.Initialize(ctx))
	state, err := repo.GetServiceState(ctx)
	require.NoError(t, err)
	assert.Equal(t, DatabaseVersion, state.DatabaseVersion)
}

func TestInitializeRefusesDowngrade(t *testing.T) {
	p, repo, _, _ := newTestProcessor(t)
	ctx := context.Background()
	require.NoError(t, repo.PutServiceState(ctx, &models.ServiceState{DatabaseVersion: "2.0.0"}))

	err := p.Initialize(ctx)
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeDatabaseDowngradeNotAllowed, code)

	state, _ := repo.GetServiceState(ctx)
	assert.Equal(t, "2.0.0", state.DatabaseVersion)
}

func TestInitializeRejectsGarbageVersion(t *testing.T) {
	p, repo, _, _ := newTestProcessor(t)
	ctx := context.Background()
	require.NoError(t, repo.PutServiceState(ctx, &models.ServiceState{DatabaseVersion: "latest"}))

	assert.Error(t, p.Initialize(ctx))
}

func TestTransactions(t *testing.T) {
	p, repo, _, _ := newTestProcessor(t)
	ctx := context.Background()

	empty, err := p.Transactions(ctx, nil, "")
	require.NoError(t, err)
	assert.NotNil(t, empty.Transactions)
	assert.Empty(t, empty.Transactions)

	seedAnchors(t, repo, 1, 2, 3)

	all, err := p.Transactions(ctx, nil, "")
	require.NoError(t, err)
	assert.Len(t, all.Transactions, 3)
	assert.False(t, all.MoreTransactions)

	later, err := p.Transactions(ctx, ptr(1), "hash-b")
	require.NoError(t, err)
	require.Len(t, later.Transactions, 2)
	assert.Equal(t, int64(2), later.Transactions[0].TransactionNumber)

	// an unknown since is not checked against the hash
	none, err := p.Transactions(ctx, ptr(10), "whatever")
	require.NoError(t, err)
	assert.Empty(t, none.Transactions)
}

func TestTransactionsRejectsBadParameters(t *testing.T) {
	p, repo, _, _ := newTestProcessor(t)
	ctx := context.Background()
	seedAnchors(t, repo, 1, 2)

	tests := []struct {
		name  string
		since *int64
		hash  string
	}{
		{name: "since without hash", since: ptr(1)},
		{name: "zero since without hash", since: ptr(0)},
		{name: "hash without since", hash: "hash-b"},
		{name: "hash mismatch", since: ptr(1), hash: "hash-z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Transactions(ctx, tt.since, tt.hash)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
		})
	}
}

func TestTime(t *testing.T) {
	p, _, l, _ := newTestProcessor(t)
	ctx := context.Background()

	now, err := p.Time(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, &models.BlockchainTime{Time: 120, Hash: "tip"}, now)

	past, err := p.Time(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, &models.BlockchainTime{Time: 80, Hash: "old"}, past)

	_, err = p.Time(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))

	l.err = ledger.NetworkError("fake", "get_tip", errors.New("connection refused"))
	_, err = p.Time(ctx, "")
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusOf(err))
}

func TestWriteForwardsErrors(t *testing.T) {
	p, _, _, w := newTestProcessor(t)
	ctx := context.Background()

	require.NoError(t, p.Write(ctx, "anchor"))
	assert.Equal(t, []string{"anchor"}, w.written)

	w.err = apperr.New(http.StatusBadRequest, apperr.CodeNotEnoughBalanceForWrite, apperr.ErrInsufficientFunds)
	err := p.Write(ctx, "anchor")
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
}

func TestWriterLockAndFee(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.WriterLock(ctx)
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
	code, _ := apperr.CodeOf(err)
	assert.Equal(t, apperr.CodeValueTimeLockNotFound, code)

	fee, err := p.NormalizedFee(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fee.NormalizedTransactionFee)

	assert.Equal(t, ServiceName, p.ServiceVersion().Name)
}

func TestWalletBalance(t *testing.T) {
	p, _, l, _ := newTestProcessor(t)
	ctx := context.Background()

	l.balance = 2_500_000
	balance, err := p.WalletBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.5", balance.WalletBalanceInAda.String())

	l.balance = 1
	balance, err = p.WalletBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.000001", balance.WalletBalanceInAda.String())
}
