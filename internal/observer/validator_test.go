package observer

import (
	"testing"

	"anchord/internal/models"

	"github.com/stretchr/testify/assert"
)

func anchorTx(metadata *string, inAddr, outAddr string, confirmations int64) *models.LedgerTransaction {
	tx := &models.LedgerTransaction{
		Hash:          "h",
		Metadata:      metadata,
		Confirmations: confirmations,
	}
	if inAddr != "" {
		tx.Inputs = []models.Input{{Address: inAddr, Amount: 2_000_000}}
	}
	if outAddr != "" {
		tx.Outputs = []models.Output{{Address: outAddr, Amount: 1_800_000}}
	}
	return tx
}

func strPtr(s string) *string {
	return &s
}

func TestCheck(t *testing.T) {
	const prefix = "sidetree:"

	tests := []struct {
		name     string
		tx       *models.LedgerTransaction
		reason   Rejection
		accepted bool
	}{
		{"accepted", anchorTx(strPtr("sidetree:QmAnchor"), "addr1", "addr1", 6), "", true},
		{"deeply buried", anchorTx(strPtr("sidetree:QmAnchor"), "addr1", "addr1", 600), "", true},
		{"null metadata", anchorTx(nil, "addr1", "addr1", 10), RejectNoMetadata, false},
		{"other prefix", anchorTx(strPtr("ion:QmAnchor"), "addr1", "addr1", 10), RejectMissingPrefix, false},
		{"prefix not at start", anchorTx(strPtr("x sidetree:QmAnchor"), "addr1", "addr1", 10), RejectMissingPrefix, false},
		{"writer pays someone else", anchorTx(strPtr("sidetree:QmAnchor"), "addr1", "addr2", 10), RejectWriterMismatch, false},
		{"no outputs", anchorTx(strPtr("sidetree:QmAnchor"), "addr1", "", 10), RejectNoInputsOrOutputs, false},
		{"too shallow", anchorTx(strPtr("sidetree:QmAnchor"), "addr1", "addr1", 3), RejectConfirmations, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := Check(tt.tx, prefix, 6)
			assert.Equal(t, tt.accepted, ok)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.accepted, Validate(tt.tx, prefix, 6))
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	tx := anchorTx(strPtr("sidetree:QmAnchor"), "addr1", "addr1", 7)
	for i := 0; i < 3; i++ {
		assert.True(t, Validate(tx, "sidetree:", 6))
	}
}
