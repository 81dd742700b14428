package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anchord/internal/apperr"
	"anchord/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	since    *int64
	hash     string
	written  []string
	writeErr error
	timeErr  error
}

func (f *fakeService) Transactions(ctx context.Context, since *int64, hash string) (*models.TransactionsResponse, error) {
	f.since, f.hash = since, hash
	if (since == nil) != (hash == "") {
		return nil, apperr.BadRequest(apperr.CodeInvalidTransactionNumberOrTimeHash)
	}
	return &models.TransactionsResponse{
		Transactions: []models.AnchorRecord{{TransactionNumber: 7, AnchorString: "a"}},
	}, nil
}

func (f *fakeService) Write(ctx context.Context, anchorString string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, anchorString)
	return nil
}

func (f *fakeService) Time(ctx context.Context, hash string) (*models.BlockchainTime, error) {
	if f.timeErr != nil {
		return nil, f.timeErr
	}
	if hash == "" {
		return &models.BlockchainTime{Time: 100, Hash: "tip"}, nil
	}
	return &models.BlockchainTime{Time: 50, Hash: hash}, nil
}

func (f *fakeService) WriterLock(ctx context.Context) (any, error) {
	return nil, apperr.NotFound(apperr.CodeValueTimeLockNotFound)
}

func (f *fakeService) NormalizedFee(ctx context.Context, blockchainTime string) (*models.TransactionFee, error) {
	return &models.TransactionFee{NormalizedTransactionFee: 1}, nil
}

func (f *fakeService) ServiceVersion() models.ServiceVersion {
	return models.ServiceVersion{Name: "anchord", Version: "test"}
}

func (f *fakeService) WalletBalance(ctx context.Context) (*models.WalletBalance, error) {
	return &models.WalletBalance{WalletBalanceInAda: "2.5"}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestGetTransactions(t *testing.T) {
	svc := &fakeService{}
	s := NewServer(0, svc, nil, Options{})

	rec := do(t, s, http.MethodGet, "/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Nil(t, svc.since)

	var resp models.TransactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 1)
	assert.False(t, resp.MoreTransactions)

	rec = do(t, s, http.MethodGet, "/transactions?since=42&transaction-time-hash=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.since)
	assert.Equal(t, int64(42), *svc.since)
	assert.Equal(t, "abc", svc.hash)
}

func TestGetTransactionsBadParameters(t *testing.T) {
	s := NewServer(0, &fakeService{}, nil, Options{})

	rec := do(t, s, http.MethodGet, "/transactions?since=42", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperr.CodeInvalidTransactionNumberOrTimeHash), errorCode(t, rec))

	rec = do(t, s, http.MethodGet, "/transactions?since=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperr.CodeInvalidTransactionNumberOrTimeHash), errorCode(t, rec))

	rec = do(t, s, http.MethodGet, "/transactions?since=abc&transaction-time-hash=h", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperr.CodeInvalidTransactionNumber), errorCode(t, rec))
}

func TestWriteTransaction(t *testing.T) {
	svc := &fakeService{}
	s := NewServer(0, svc, nil, Options{})

	rec := do(t, s, http.MethodPost, "/transactions", `{"anchorString":"1.QmHash"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, []string{"1.QmHash"}, svc.written)

	rec = do(t, s, http.MethodPost, "/transactions", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperr.CodeInvalidRequestBody), errorCode(t, rec))

	rec = do(t, s, http.MethodPost, "/transactions", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteErrorsMapToStatus(t *testing.T) {
	svc := &fakeService{
		writeErr: apperr.New(http.StatusBadRequest, apperr.CodeNotEnoughBalanceForWrite, apperr.ErrInsufficientFunds),
	}
	s := NewServer(0, svc, nil, Options{LogRequestError: true})

	rec := do(t, s, http.MethodPost, "/transactions", `{"anchorString":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperr.CodeNotEnoughBalanceForWrite), errorCode(t, rec))

	svc.writeErr = errors.New("ledger unreachable")
	rec = do(t, s, http.MethodPost, "/transactions", `{"anchorString":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestTimeRoutes(t *testing.T) {
	s := NewServer(0, &fakeService{}, nil, Options{})

	rec := do(t, s, http.MethodGet, "/time", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"time":100,"hash":"tip"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/time/blk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"time":50,"hash":"blk"}`, rec.Body.String())
}

func TestOtherRoutes(t *testing.T) {
	s := NewServer(0, &fakeService{}, fakePinger{}, Options{})

	rec := do(t, s, http.MethodGet, "/writerlock", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(apperr.CodeValueTimeLockNotFound), errorCode(t, rec))

	rec = do(t, s, http.MethodGet, "/monitors/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"walletBalanceInAda":2.5}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/version", "")
	assert.JSONEq(t, `{"name":"anchord","version":"test"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/fee/12345", "")
	assert.JSONEq(t, `{"normalizedTransactionFee":1}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoutesAreBadRequests(t *testing.T) {
	s := NewServer(0, &fakeService{}, nil, Options{})

	for _, target := range []string{"/", "/nope", "/transactions/1"} {
		rec := do(t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	rec := do(t, s, http.MethodDelete, "/transactions", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthReportsStoreFailure(t *testing.T) {
	s := NewServer(0, &fakeService{}, fakePinger{err: errors.New("down")}, Options{})

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestID(t *testing.T) {
	s := NewServer(0, &fakeService{}, nil, Options{})

	rec := do(t, s, http.MethodGet, "/version", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set(requestIDHeader, "3b241101-e2bb-4255-8caf-4136c566a962")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "3b241101-e2bb-4255-8caf-4136c566a962", rec.Header().Get(requestIDHeader))
}
