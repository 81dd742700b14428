package wallet

import (
	"encoding/hex"
	"fmt"

	"anchord/internal/apperr"
	"anchord/internal/models"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

const (
	// TTLSlots is how far past the tip a built transaction stays valid
	TTLSlots = 600

	// MaxMetadataChunk is the largest byte string a metadatum may hold
	MaxMetadataChunk = 64

	// DefaultMinUTxO applies when the protocol parameters carry no minimum
	DefaultMinUTxO int64 = 1_000_000

	maxFeeIterations = 8
)

// transaction body keys
const (
	bodyInputs        = 0
	bodyOutputs       = 1
	bodyFee           = 2
	bodyTTL           = 3
	bodyAuxiliaryHash = 7
)

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// BuildAndSign spends utxos back to the wallet address, attaching payload as
// metadata under label. The fee follows the linear model
// minFeeA * size + minFeeB of the serialized transaction.
func (w *Wallet) BuildAndSign(label uint64, payload string, params *models.ProtocolParameters, utxos []models.UTXO, tip *models.Block) (*models.SignedTransaction, error) {
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: wallet %s has no spendable outputs", apperr.ErrInsufficientFunds, w.address)
	}

	inputs := make([]any, 0, len(utxos))
	var total int64
	for _, u := range utxos {
		hash, err := hex.DecodeString(u.TxHash)
		if err != nil {
			return nil, fmt.Errorf("invalid utxo hash %q: %w", u.TxHash, err)
		}
		inputs = append(inputs, []any{hash, uint64(u.OutputIndex)})
		total += u.Amount
	}

	auxData, err := encMode.Marshal(map[uint64]any{label: Metadatum([]byte(payload))})
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	auxHash := blake2b.Sum256(auxData)

	minUTxO := params.MinUTxO
	if minUTxO <= 0 {
		minUTxO = DefaultMinUTxO
	}
	ttl := uint64(tip.Slot + TTLSlots)

	// size the transaction with a placeholder signature until the fee covers it
	fee := params.MinFeeB
	var body []byte
	for i := 0; ; i++ {
		if total-fee < minUTxO {
			return nil, fmt.Errorf("%w: inputs %d cannot cover fee %d and minimum output %d",
				apperr.ErrInsufficientFunds, total, fee, minUTxO)
		}

		body, err = w.encodeBody(inputs, total-fee, fee, ttl, auxHash[:])
		if err != nil {
			return nil, err
		}
		sized, err := w.assemble(body, make([]byte, ed25519.SignatureSize), auxData)
		if err != nil {
			return nil, err
		}

		required := params.MinFeeA*int64(len(sized)) + params.MinFeeB
		if required <= fee {
			break
		}
		if i == maxFeeIterations {
			return nil, fmt.Errorf("fee did not converge after %d iterations", maxFeeIterations)
		}
		fee = required
	}

	bodyHash := blake2b.Sum256(body)
	signature := ed25519.Sign(w.privateKey, bodyHash[:])

	signed, err := w.assemble(body, signature, auxData)
	if err != nil {
		return nil, err
	}
	if params.MaxTxSize > 0 && int64(len(signed)) > params.MaxTxSize {
		return nil, fmt.Errorf("transaction size %d exceeds maximum %d", len(signed), params.MaxTxSize)
	}

	return &models.SignedTransaction{
		Hash: hex.EncodeToString(bodyHash[:]),
		Fee:  fee,
		CBOR: signed,
	}, nil
}

func (w *Wallet) encodeBody(inputs []any, change, fee int64, ttl uint64, auxHash []byte) ([]byte, error) {
	body, err := encMode.Marshal(map[uint64]any{
		bodyInputs:        inputs,
		bodyOutputs:       []any{[]any{w.addressBytes, uint64(change)}},
		bodyFee:           uint64(fee),
		bodyTTL:           ttl,
		bodyAuxiliaryHash: auxHash,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction body: %w", err)
	}
	return body, nil
}

func (w *Wallet) assemble(body, signature, auxData []byte) ([]byte, error) {
	witnesses := map[uint64]any{
		0: []any{[]any{[]byte(w.publicKey), signature}},
	}
	tx, err := encMode.Marshal([]any{
		cbor.RawMessage(body),
		witnesses,
		true,
		cbor.RawMessage(auxData),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	return tx, nil
}

// Metadatum returns the metadata value for payload: a single byte string when
// it fits, otherwise a list of chunks of at most MaxMetadataChunk bytes.
func Metadatum(payload []byte) any {
	if len(payload) <= MaxMetadataChunk {
		return payload
	}
	chunks := make([][]byte, 0, (len(payload)+MaxMetadataChunk-1)/MaxMetadataChunk)
	for start := 0; start < len(payload); start += MaxMetadataChunk {
		end := min(start+MaxMetadataChunk, len(payload))
		chunks = append(chunks, payload[start:end])
	}
	return chunks
}
