package observer

import (
	"strings"

	"anchord/internal/models"
)

// Rejection names the rule a candidate transaction failed
type Rejection string

const (
	RejectNoMetadata        Rejection = "no_metadata"
	RejectMissingPrefix     Rejection = "missing_prefix"
	RejectNoInputsOrOutputs Rejection = "no_inputs_or_outputs"
	RejectWriterMismatch    Rejection = "writer_mismatch"
	RejectConfirmations     Rejection = "insufficient_confirmations"
)

// Validate reports whether tx is an acceptable anchor
func Validate(tx *models.LedgerTransaction, prefix string, minConfirmations int64) bool {
	_, ok := Check(tx, prefix, minConfirmations)
	return ok
}

// Check is Validate that also returns the first failed rule.
// A transaction is accepted when its metadata carries the prefix, its first
// input and first output share an address, and it is buried deep enough.
func Check(tx *models.LedgerTransaction, prefix string, minConfirmations int64) (Rejection, bool) {
	if tx.Metadata == nil {
		return RejectNoMetadata, false
	}
	if !strings.HasPrefix(*tx.Metadata, prefix) {
		return RejectMissingPrefix, false
	}
	if len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
		return RejectNoInputsOrOutputs, false
	}
	if tx.Inputs[0].Address != tx.Outputs[0].Address {
		return RejectWriterMismatch, false
	}
	if tx.Confirmations < minConfirmations {
		return RejectConfirmations, false
	}
	return "", true
}
