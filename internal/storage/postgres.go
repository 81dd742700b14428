package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"anchord/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// AddTransactionMetadata stores ledger transactions in a single batch
func (r *PostgresRepository) AddTransactionMetadata(ctx context.Context, txs ...models.LedgerTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	query := `
		INSERT INTO transaction_metadata (
			transaction_number, hash, fees, block_hash, block_height,
			block_index, metadata, confirmations, inputs, outputs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (transaction_number) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, tx := range txs {
		inputsJSON, err := json.Marshal(tx.Inputs)
		if err != nil {
			return fmt.Errorf("failed to marshal inputs: %w", err)
		}
		outputsJSON, err := json.Marshal(tx.Outputs)
		if err != nil {
			return fmt.Errorf("failed to marshal outputs: %w", err)
		}

		batch.Queue(query,
			tx.TransactionNumber,
			tx.Hash,
			tx.Fee,
			tx.BlockHash,
			tx.BlockHeight,
			tx.BlockIndex,
			tx.Metadata,
			tx.Confirmations,
			inputsJSON,
			outputsJSON,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range txs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save transaction metadata: %w", err)
		}
	}

	return nil
}

const metadataColumns = `
	transaction_number, hash, fees, block_hash, block_height,
	block_index, metadata, confirmations, inputs, outputs
`

func scanMetadata(row pgx.Row) (*models.LedgerTransaction, error) {
	var tx models.LedgerTransaction
	var inputsJSON, outputsJSON []byte

	err := row.Scan(
		&tx.TransactionNumber,
		&tx.Hash,
		&tx.Fee,
		&tx.BlockHash,
		&tx.BlockHeight,
		&tx.BlockIndex,
		&tx.Metadata,
		&tx.Confirmations,
		&inputsJSON,
		&outputsJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(inputsJSON, &tx.Inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal(outputsJSON, &tx.Outputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outputs: %w", err)
	}

	return &tx, nil
}

// GetLastTransactionMetadata returns the checkpoint, or nil for an empty store
func (r *PostgresRepository) GetLastTransactionMetadata(ctx context.Context) (*models.LedgerTransaction, error) {
	query := `SELECT ` + metadataColumns + ` FROM transaction_metadata
		ORDER BY transaction_number DESC
		LIMIT 1`

	tx, err := scanMetadata(r.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last transaction metadata: %w", err)
	}

	return tx, nil
}

// ListTransactionMetadata lists metadata entries in [from, to)
func (r *PostgresRepository) ListTransactionMetadata(ctx context.Context, from, to int64) ([]models.LedgerTransaction, error) {
	query := `SELECT ` + metadataColumns + ` FROM transaction_metadata
		WHERE transaction_number >= $1 AND transaction_number < $2
		ORDER BY transaction_number ASC`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction metadata: %w", err)
	}
	defer rows.Close()

	var txs []models.LedgerTransaction
	for rows.Next() {
		tx, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction metadata: %w", err)
		}
		txs = append(txs, *tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction metadata: %w", err)
	}

	return txs, nil
}

// RemoveTransactionMetadataLaterThan deletes metadata newer than after
func (r *PostgresRepository) RemoveTransactionMetadataLaterThan(ctx context.Context, after *int64) error {
	var err error
	if after == nil {
		_, err = r.pool.Exec(ctx, `DELETE FROM transaction_metadata`)
	} else {
		_, err = r.pool.Exec(ctx, `DELETE FROM transaction_metadata WHERE transaction_number > $1`, *after)
	}
	if err != nil {
		return fmt.Errorf("failed to remove transaction metadata: %w", err)
	}
	return nil
}

// AddAnchor appends a record to the anchor log
func (r *PostgresRepository) AddAnchor(ctx context.Context, record *models.AnchorRecord) error {
	query := `
		INSERT INTO anchors (
			transaction_number, transaction_time, transaction_time_hash,
			anchor_string, transaction_fee_paid, writer
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transaction_number) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		record.TransactionNumber,
		record.TransactionTime,
		record.TransactionTimeHash,
		record.AnchorString,
		record.TransactionFeePaid,
		record.Writer,
	)
	if err != nil {
		return fmt.Errorf("failed to save anchor: %w", err)
	}

	if tag.RowsAffected() == 0 {
		slog.Debug("Anchor already stored", "transaction_number", record.TransactionNumber)
	}

	return nil
}

const anchorColumns = `
	transaction_number, transaction_time, transaction_time_hash,
	anchor_string, transaction_fee_paid, writer
`

func scanAnchor(row pgx.Row) (*models.AnchorRecord, error) {
	var record models.AnchorRecord
	err := row.Scan(
		&record.TransactionNumber,
		&record.TransactionTime,
		&record.TransactionTimeHash,
		&record.AnchorString,
		&record.TransactionFeePaid,
		&record.Writer,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetAnchor retrieves an anchor by transaction number
func (r *PostgresRepository) GetAnchor(ctx context.Context, transactionNumber int64) (*models.AnchorRecord, error) {
	query := `SELECT ` + anchorColumns + ` FROM anchors WHERE transaction_number = $1`

	record, err := scanAnchor(r.pool.QueryRow(ctx, query, transactionNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anchor: %w", err)
	}

	return record, nil
}

// ListAnchors lists the whole anchor log
func (r *PostgresRepository) ListAnchors(ctx context.Context) ([]models.AnchorRecord, error) {
	query := `SELECT ` + anchorColumns + ` FROM anchors ORDER BY transaction_number ASC`
	return r.queryAnchors(ctx, query)
}

// ListAnchorsLaterThan lists anchors after since, oldest first
func (r *PostgresRepository) ListAnchorsLaterThan(ctx context.Context, since int64, limit int) ([]models.AnchorRecord, error) {
	if limit <= 0 {
		query := `SELECT ` + anchorColumns + ` FROM anchors
			WHERE transaction_number > $1
			ORDER BY transaction_number ASC`
		return r.queryAnchors(ctx, query, since)
	}

	query := `SELECT ` + anchorColumns + ` FROM anchors
		WHERE transaction_number > $1
		ORDER BY transaction_number ASC
		LIMIT $2`
	return r.queryAnchors(ctx, query, since, limit)
}

func (r *PostgresRepository) queryAnchors(ctx context.Context, query string, args ...any) ([]models.AnchorRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
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

// RemoveAnchorsLaterThan truncates the anchor log after the given number
func (r *PostgresRepository) RemoveAnchorsLaterThan(ctx context.Context, after *int64) error {
	var err error
	if after == nil {
		_, err = r.pool.Exec(ctx, `DELETE FROM anchors`)
	} else {
		_, err = r.pool.Exec(ctx, `DELETE FROM anchors WHERE transaction_number > $1`, *after)
	}
	if err != nil {
		return fmt.Errorf("failed to remove anchors: %w", err)
	}
	return nil
}

// GetServiceState returns the schema record, or nil before the first write
func (r *PostgresRepository) GetServiceState(ctx context.Context) (*models.ServiceState, error) {
	var state models.ServiceState
	err := r.pool.QueryRow(ctx,
		`SELECT database_version, updated_at FROM service_state WHERE id = 1`,
	).Scan(&state.DatabaseVersion, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service state: %w", err)
	}
	return &state, nil
}

// PutServiceState replaces the schema record
func (r *PostgresRepository) PutServiceState(ctx context.Context, state *models.ServiceState) error {
	query := `
		INSERT INTO service_state (id, database_version, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			database_version = EXCLUDED.database_version,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.pool.Exec(ctx, query, state.DatabaseVersion, state.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save service state: %w", err)
	}
	return nil
}

// Ping checks if the database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
