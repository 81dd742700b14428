package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"anchord/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Repository on an embedded SQLite file, for
// single-node deployments without a database server
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at path.
// ":memory:" gives a throwaway database.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path required")
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS transaction_metadata (
			transaction_number INTEGER PRIMARY KEY,
			hash TEXT NOT NULL,
			fees INTEGER NOT NULL DEFAULT 0,
			block_hash TEXT NOT NULL,
			block_height INTEGER NOT NULL,
			block_index INTEGER NOT NULL,
			metadata TEXT,
			confirmations INTEGER NOT NULL DEFAULT 0,
			inputs TEXT NOT NULL DEFAULT '[]',
			outputs TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS anchors (
			transaction_number INTEGER PRIMARY KEY,
			transaction_time INTEGER NOT NULL,
			transaction_time_hash TEXT NOT NULL,
			anchor_string TEXT NOT NULL,
			transaction_fee_paid INTEGER NOT NULL,
			writer TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS service_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			database_version TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create sqlite schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) AddTransactionMetadata(ctx context.Context, txs ...models.LedgerTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, t := range txs {
		inputsJSON, err := json.Marshal(t.Inputs)
		if err != nil {
			return fmt.Errorf("failed to marshal inputs: %w", err)
		}
		outputsJSON, err := json.Marshal(t.Outputs)
		if err != nil {
			return fmt.Errorf("failed to marshal outputs: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO transaction_metadata (
				transaction_number, hash, fees, block_hash, block_height,
				block_index, metadata, confirmations, inputs, outputs
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.TransactionNumber, t.Hash, t.Fee, t.BlockHash, t.BlockHeight,
			t.BlockIndex, t.Metadata, t.Confirmations, string(inputsJSON), string(outputsJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to save transaction metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metadata transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMetadata(row rowScanner) (*models.LedgerTransaction, error) {
	var t models.LedgerTransaction
	var metadata sql.NullString
	var inputsJSON, outputsJSON string

	if err := row.Scan(
		&t.TransactionNumber, &t.Hash, &t.Fee, &t.BlockHash, &t.BlockHeight,
		&t.BlockIndex, &metadata, &t.Confirmations, &inputsJSON, &outputsJSON,
	); err != nil {
		return nil, err
	}
	if metadata.Valid {
		t.Metadata = &metadata.String
	}
	if err := json.Unmarshal([]byte(inputsJSON), &t.Inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(outputsJSON), &t.Outputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outputs: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) GetLastTransactionMetadata(ctx context.Context) (*models.LedgerTransaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+metadataColumns+` FROM transaction_metadata
		ORDER BY transaction_number DESC LIMIT 1`)
	t, err := scanSQLiteMetadata(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last transaction metadata: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactionMetadata(ctx context.Context, from, to int64) ([]models.LedgerTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+metadataColumns+` FROM transaction_metadata
		WHERE transaction_number >= ? AND transaction_number < ?
		ORDER BY transaction_number ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction metadata: %w", err)
	}
	defer rows.Close()

	var txs []models.LedgerTransaction
	for rows.Next() {
		t, err := scanSQLiteMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction metadata: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction metadata: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) RemoveTransactionMetadataLaterThan(ctx context.Context, after *int64) error {
	var err error
	if after == nil {
		_, err = r.db.ExecContext(ctx, `DELETE FROM transaction_metadata`)
	} else {
		_, err = r.db.ExecContext(ctx, `DELETE FROM transaction_metadata WHERE transaction_number > ?`, *after)
	}
	if err != nil {
		return fmt.Errorf("failed to remove transaction metadata: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AddAnchor(ctx context.Context, record *models.AnchorRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO anchors (
			transaction_number, transaction_time, transaction_time_hash,
			anchor_string, transaction_fee_paid, writer
		) VALUES (?, ?, ?, ?, ?, ?)`,
		record.TransactionNumber, record.TransactionTime, record.TransactionTimeHash,
		record.AnchorString, record.TransactionFeePaid, record.Writer,
	)
	if err != nil {
		return fmt.Errorf("failed to save anchor: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAnchor(ctx context.Context, transactionNumber int64) (*models.AnchorRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+anchorColumns+` FROM anchors WHERE transaction_number = ?`, transactionNumber)
	record, err := scanAnchor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anchor: %w", err)
	}
	return record, nil
}

func (r *SQLiteRepository) ListAnchors(ctx context.Context) ([]models.AnchorRecord, error) {
	return r.queryAnchors(ctx, `SELECT `+anchorColumns+` FROM anchors ORDER BY transaction_number ASC`)
}

func (r *SQLiteRepository) ListAnchorsLaterThan(ctx context.Context, since int64, limit int) ([]models.AnchorRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.queryAnchors(ctx, `SELECT `+anchorColumns+` FROM anchors
		WHERE transaction_number > ?
		ORDER BY transaction_number ASC
		LIMIT ?`, since, limit)
}

func (r *SQLiteRepository) queryAnchors(ctx context.Context, query string, args ...any) ([]models.AnchorRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list anchors: %w", err)
	}
	defer rows.Close()

	var records []models.AnchorRecord
	for rows.Next() {
		record, err := scanAnchor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anchor: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating anchors: %w", err)
	}
	return records, nil
}

func (r *SQLiteRepository) RemoveAnchorsLaterThan(ctx context.Context, after *int64) error {
	var err error
	if after == nil {
		_, err = r.db.ExecContext(ctx, `DELETE FROM anchors`)
	} else {
		_, err = r.db.ExecContext(ctx, `DELETE FROM anchors WHERE transaction_number > ?`, *after)
	}
	if err != nil {
		return fmt.Errorf("failed to remove anchors: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetServiceState(ctx context.Context) (*models.ServiceState, error) {
	var state models.ServiceState
	var updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT database_version, updated_at FROM service_state WHERE id = 1`,
	).Scan(&state.DatabaseVersion, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service state: %w", err)
	}
	if state.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse service state time: %w", err)
	}
	return &state, nil
}

func (r *SQLiteRepository) PutServiceState(ctx context.Context, state *models.ServiceState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_state (id, database_version, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			database_version = excluded.database_version,
			updated_at = excluded.updated_at`,
		state.DatabaseVersion, state.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save service state: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
