package wallet

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"anchord/internal/apperr"
	"anchord/internal/ledger"
	"anchord/internal/models"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var testParams = &models.ProtocolParameters{
	MinFeeA:   44,
	MinFeeB:   155381,
	MaxTxSize: 16384,
	MinUTxO:   1_000_000,
}

func testUTXOs(amounts ...int64) []models.UTXO {
	var out []models.UTXO
	for i, a := range amounts {
		out = append(out, models.UTXO{
			Amount:      a,
			TxHash:      strings.Repeat(string(rune('a'+i)), 64),
			OutputIndex: uint32(i),
		})
	}
	return out
}

func TestNewRejectsInvalidMnemonic(t *testing.T) {
	for _, m := range []string{"", "not a mnemonic", strings.Replace(testMnemonic, "about", "abandon", 1)} {
		_, err := New(m, Preprod)
		assert.ErrorIs(t, err, ErrIncorrectImportString, "mnemonic %q", m)
	}
}

func TestAddressIsDeterministicPerNetwork(t *testing.T) {
	a, err := New(testMnemonic, Preprod)
	require.NoError(t, err)
	b, err := New("  "+strings.ReplaceAll(testMnemonic, " ", "  ")+"\n", Preprod)
	require.NoError(t, err)
	mainnet, err := New(testMnemonic, Mainnet)
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
	assert.True(t, strings.HasPrefix(a.Address(), "addr_test1"))
	assert.True(t, strings.HasPrefix(mainnet.Address(), "addr1"))

	raw, err := DecodeAddress(a.Address())
	require.NoError(t, err)
	require.Len(t, raw, 29)
	assert.Equal(t, byte(0x60), raw[0])

	raw, err = DecodeAddress(mainnet.Address())
	require.NoError(t, err)
	assert.Equal(t, byte(0x61), raw[0])
}

func TestBuildAndSign(t *testing.T) {
	w, err := New(testMnemonic, Preprod)
	require.NoError(t, err)

	payload := "sidetree:" + strings.Repeat("Qm", 60)
	signed, err := w.BuildAndSign(21000, payload, testParams, testUTXOs(3_000_000, 2_000_000), &models.Block{Slot: 1000})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, signed.Fee, testParams.MinFeeA*int64(len(signed.CBOR))+testParams.MinFeeB)
	assert.Less(t, signed.Fee, testParams.MinFeeA*int64(len(signed.CBOR)+16)+testParams.MinFeeB)

	var parts []cbor.RawMessage
	require.NoError(t, cbor.Unmarshal(signed.CBOR, &parts))
	require.Len(t, parts, 4)

	bodyHash := blake2b.Sum256(parts[0])
	assert.Equal(t, hex.EncodeToString(bodyHash[:]), signed.Hash)

	var body map[uint64]cbor.RawMessage
	require.NoError(t, cbor.Unmarshal(parts[0], &body))
	var fee, ttl uint64
	require.NoError(t, cbor.Unmarshal(body[2], &fee))
	require.NoError(t, cbor.Unmarshal(body[3], &ttl))
	assert.Equal(t, uint64(signed.Fee), fee)
	assert.Equal(t, uint64(1000+TTLSlots), ttl)

	var outputs [][]cbor.RawMessage
	require.NoError(t, cbor.Unmarshal(body[1], &outputs))
	require.Len(t, outputs, 1)
	var outAddr []byte
	var outAmount uint64
	require.NoError(t, cbor.Unmarshal(outputs[0][0], &outAddr))
	require.NoError(t, cbor.Unmarshal(outputs[0][1], &outAmount))
	assert.Equal(t, w.addressBytes, outAddr)
	assert.Equal(t, uint64(5_000_000-signed.Fee), outAmount)

	var witnesses map[uint64][][][]byte
	require.NoError(t, cbor.Unmarshal(parts[1], &witnesses))
	vkey := witnesses[0][0]
	assert.True(t, ed25519.Verify(ed25519.PublicKey(vkey[0]), bodyHash[:], vkey[1]))

	var aux map[uint64][][]byte
	require.NoError(t, cbor.Unmarshal(parts[3], &aux))
	var joined []byte
	for _, chunk := range aux[21000] {
		assert.LessOrEqual(t, len(chunk), MaxMetadataChunk)
		joined = append(joined, chunk...)
	}
	assert.Equal(t, payload, string(joined))
}

func TestBuildAndSignInsufficientInputs(t *testing.T) {
	w, err := New(testMnemonic, Preprod)
	require.NoError(t, err)

	_, err = w.BuildAndSign(21000, "sidetree:x", testParams, testUTXOs(1_100_000), &models.Block{Slot: 1})
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	_, err = w.BuildAndSign(21000, "sidetree:x", testParams, nil, &models.Block{Slot: 1})
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)
}

func TestBuildAndSignRejectsBadUTXOHash(t *testing.T) {
	w, err := New(testMnemonic, Preprod)
	require.NoError(t, err)

	_, err = w.BuildAndSign(21000, "sidetree:x", testParams, []models.UTXO{{TxHash: "zz", Amount: 5_000_000}}, &models.Block{})
	assert.Error(t, err)
}

func TestMetadatum(t *testing.T) {
	short := Metadatum([]byte("sidetree:abc"))
	assert.Equal(t, []byte("sidetree:abc"), short)

	long := Metadatum([]byte(strings.Repeat("x", 130)))
	chunks, ok := long.([][]byte)
	require.True(t, ok)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 64)
	assert.Len(t, chunks[2], 2)
}

// metadataJSON renders a metadatum the way Blockfrost serves byte metadata
func metadataJSON(t *testing.T, metadatum any) json.RawMessage {
	t.Helper()
	var raw []byte
	var err error
	switch m := metadatum.(type) {
	case []byte:
		raw, err = json.Marshal("0x" + hex.EncodeToString(m))
	case [][]byte:
		parts := make([]string, len(m))
		for i, chunk := range m {
			parts[i] = "0x" + hex.EncodeToString(chunk)
		}
		raw, err = json.Marshal(parts)
	default:
		t.Fatalf("unexpected metadatum type %T", metadatum)
	}
	require.NoError(t, err)
	return raw
}

func TestMetadatumRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"short", "sidetree:abc"},
		{"ascii across chunks", "sidetree:" + strings.Repeat("a", 200)},
		{"two-byte rune on the boundary", "sidetree:" + strings.Repeat("a", 54) + "é" + "tail"},
		{"four-byte rune on the boundary", "sidetree:" + strings.Repeat("a", 53) + "😀" + strings.Repeat("b", 70)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := ledger.DecodeMetadata(metadataJSON(t, Metadatum([]byte(tt.payload))))
			require.NotNil(t, decoded)
			assert.Equal(t, tt.payload, *decoded)
		})
	}
}
