package observer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"anchord/internal/metrics"
	"anchord/internal/models"
)

const (
	// InitialBatchSize is the page size of the first request of a tick
	InitialBatchSize = 10

	// EscalatedBatchSize is used once the checkpoint is not on the first small page
	EscalatedBatchSize = 100
)

// Cursor is the discovery state: which page to request next, at what size,
// and whether the scan is over. The zero value is not usable, see NewCursor.
type Cursor struct {
	Page      int
	BatchSize int
	Found     bool

	// entries of the newest-first stream already scanned
	consumed int
}

// NewCursor starts a scan at page 1 with the small batch size
func NewCursor() Cursor {
	return Cursor{Page: 1, BatchSize: InitialBatchSize}
}

// Step consumes the entries fetched at (c.Page, c.BatchSize) and returns the
// next cursor together with the hashes newer than checkpoint found on the page.
//
// The scan stops at the checkpoint or at a short page. Otherwise the batch size
// is escalated once from small to large, re-reading from the first unscanned
// entry, and after that pages simply advance.
func (c Cursor) Step(entries []models.MetadataEntry, checkpoint string) (Cursor, []string) {
	next := c
	offset := (c.Page - 1) * c.BatchSize

	var fresh []string
	for i, entry := range entries {
		pos := offset + i
		if pos < c.consumed {
			continue
		}
		if checkpoint != "" && entry.TxHash == checkpoint {
			next.Found = true
			break
		}
		fresh = append(fresh, entry.TxHash)
		next.consumed = pos + 1
	}

	if !next.Found && len(entries) < c.BatchSize {
		next.Found = true
	}
	if next.Found {
		return next, fresh
	}

	if c.BatchSize == InitialBatchSize {
		next.BatchSize = EscalatedBatchSize
		next.Page = next.consumed/EscalatedBatchSize + 1
	} else {
		next.Page = c.Page + 1
	}
	return next, fresh
}

// PageReader fetches newest-first pages of label-tagged transactions
type PageReader interface {
	GetMetadataPage(ctx context.Context, label string, page, batchSize int) ([]models.MetadataEntry, error)
}

// Discover returns the hashes of transactions tagged with label that are newer
// than checkpoint, oldest first. An empty checkpoint scans the whole history.
func Discover(ctx context.Context, reader PageReader, label, checkpoint string) ([]string, error) {
	cursor := NewCursor()
	seen := make(map[string]struct{})
	var candidates []string

	for !cursor.Found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := reader.GetMetadataPage(ctx, label, cursor.Page, cursor.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch metadata page %d (batch %d): %w", cursor.Page, cursor.BatchSize, err)
		}
		metrics.MetadataPagesFetched.Inc()

		next, fresh := cursor.Step(entries, checkpoint)
		for _, hash := range fresh {
			// the list shifts when new transactions land between page requests
			if _, dup := seen[hash]; dup {
				continue
			}
			seen[hash] = struct{}{}
			candidates = append(candidates, hash)
		}

		slog.Debug("Metadata page scanned",
			"page", cursor.Page,
			"batch_size", cursor.BatchSize,
			"entries", len(entries),
			"new", len(fresh),
			"checkpoint_found", next.Found,
		)
		cursor = next
	}

	slices.Reverse(candidates)
	metrics.CandidatesDiscovered.Add(float64(len(candidates)))
	return candidates, nil
}
