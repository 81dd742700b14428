package ledger

import (
	"sort"

	"anchord/internal/models"
)

// DefaultSpendThreshold is the cumulative amount at which UTXO selection stops
const DefaultSpendThreshold int64 = 1_500_000

// SelectUTXOs orders utxos ascending by amount and keeps the shortest prefix
// whose sum reaches threshold. When the total is below threshold every utxo is
// returned. A threshold <= 0 keeps everything.
func SelectUTXOs(utxos []models.UTXO, threshold int64) []models.UTXO {
	sorted := make([]models.UTXO, len(utxos))
	copy(sorted, utxos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount < sorted[j].Amount
	})

	if threshold <= 0 {
		return sorted
	}

	var total int64
	for i, u := range sorted {
		total += u.Amount
		if total >= threshold {
			return sorted[:i+1]
		}
	}
	return sorted
}

// SumUTXOs returns the total amount held by utxos
func SumUTXOs(utxos []models.UTXO) int64 {
	var total int64
	for _, u := range utxos {
		total += u.Amount
	}
	return total
}
