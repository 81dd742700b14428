package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"anchord/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMetadata(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected *string
	}{
		{"null", `null`, nil},
		{"empty", ``, nil},
		{"hex bytes", `"0x73696465747265653a616263"`, strPtr("sidetree:abc")},
		{"plain text", `"sidetree:abc"`, strPtr("sidetree:abc")},
		{"chunked bytes", `["0x7369646574726565", "0x3a616263"]`, strPtr("sidetree:abc")},
		{"chunked text", `["sidetree:", "abc"]`, strPtr("sidetree:abc")},
		{"invalid hex kept literal", `"0xzz"`, strPtr("0xzz")},
		// "é" is c3 a9, split across the two chunks
		{"rune split across chunks", `["0x73696465747265653ac3", "0xa974"]`, strPtr("sidetree:ét")},
		{"invalid utf8 list kept literal", `["0x61ff", "0x62"]`, strPtr("0x61ff0x62")},
		{"hex-looking text decodes as bytes", `"0x6869"`, strPtr("hi")},
		{"odd-length hex text kept literal", `"0x686"`, strPtr("0x686")},
		{"map is not a payload", `{"k": "v"}`, nil},
		{"number is not a payload", `42`, nil},
		{"list of maps", `[{"k": "v"}]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeMetadata(json.RawMessage(tt.raw))
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func TestSelectUTXOs(t *testing.T) {
	utxos := []models.UTXO{
		{TxHash: "c", Amount: 3_000_000},
		{TxHash: "a", Amount: 500_000},
		{TxHash: "b", Amount: 1_000_000},
	}

	selected := SelectUTXOs(utxos, 1_500_000)
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].TxHash)
	assert.Equal(t, "b", selected[1].TxHash)

	all := SelectUTXOs(utxos, 100_000_000)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(4_500_000), SumUTXOs(all))

	assert.Len(t, SelectUTXOs(utxos, 0), 3)
	assert.Empty(t, SelectUTXOs(nil, 1_500_000))

	// input slice is left untouched
	assert.Equal(t, "c", utxos[0].TxHash)
}

func TestQuantityUnmarshal(t *testing.T) {
	var v struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
		C Quantity `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "170000", "b": 42, "c": null}`), &v))
	assert.Equal(t, int64(170000), v.A.Int64())
	assert.Equal(t, int64(42), v.B.Int64())
	assert.Equal(t, int64(0), v.C.Int64())

	assert.Error(t, json.Unmarshal([]byte(`{"a": "abc"}`), &v))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		network     bool
		application bool
		notFound    bool
	}{
		{"server error", StatusError("blockfrost", "get_tip", http.StatusBadGateway, "bad gateway"), true, false, false},
		{"throttled", StatusError("blockfrost", "get_tip", http.StatusTooManyRequests, ""), true, false, false},
		{"not found", StatusError("blockfrost", "get_tx", http.StatusNotFound, ""), false, true, true},
		{"bad request", StatusError("blockfrost", "submit", http.StatusBadRequest, "bad tx"), false, true, false},
		{"wrapped network", fmt.Errorf("tick: %w", NetworkError("graphql", "get_tip", errors.New("dial tcp"))), true, false, false},
		{"plain", errors.New("plain"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.network, IsNetwork(tt.err))
			assert.Equal(t, tt.application, IsApplication(tt.err))
			assert.Equal(t, tt.notFound, errors.Is(tt.err, ErrNotFound))
		})
	}
}

func strPtr(s string) *string {
	return &s
}
