// Package postgres persists contracts in PostgreSQL. Mutations to a single
// contract are serialized with row locks; the envelope-id assignment is a
// single conditional UPDATE so readers observe the id and the status advance
// together or not at all.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentalsign/internal/contract"
)

// Store implements contract.Store on database/sql.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed contract store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Dates live in DATE columns but travel as YYYY-MM-DD strings in the model,
// so selects format them explicitly.
const contractColumns = `
	id, owner_name, client_name, equipment,
	to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), status,
	total_value, contract_text, envelope_id, sent_at, completed_at,
	declined_at, created_at, updated_at`

func (s *Store) Create(ctx context.Context, c *contract.Contract) error {
	query := `
		INSERT INTO contracts (
			id, owner_name, client_name, equipment, start_date, end_date,
			status, total_value, contract_text, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.OwnerName, c.ClientName, c.Equipment,
		nullString(c.StartDate), nullString(c.EndDate),
		string(c.Status), c.TotalValue, c.ContractText,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	return scanContract(row)
}

func (s *Store) GetByEnvelope(ctx context.Context, envelopeID string) (*contract.Contract, error) {
	if envelopeID == "" {
		return nil, contract.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE envelope_id = $1`, envelopeID)
	return scanContract(row)
}

func (s *Store) List(ctx context.Context, f contract.Filter) ([]*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE 1=1`
	args := []any{}
	if f.OwnerName != "" {
		args = append(args, f.OwnerName)
		query += fmt.Sprintf(" AND owner_name = $%d", len(args))
	}
	if f.ClientName != "" {
		args = append(args, f.ClientName)
		query += fmt.Sprintf(" AND client_name = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []*contract.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return out, nil
}

// SetEnvelope is the pipeline's commit point. The id write and the status
// advance happen in one row write guarded by envelope_id IS NULL, which both
// keeps the id immutable and makes the pair atomic for concurrent readers.
func (s *Store) SetEnvelope(ctx context.Context, id uuid.UUID, envelopeID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE contracts
		SET envelope_id = $2, status = $3, updated_at = now()
		WHERE id = $1 AND envelope_id IS NULL
	`, id, envelopeID, string(contract.StatusSentForSigning))
	if err != nil {
		return fmt.Errorf("assign envelope: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign envelope: %w", err)
	}
	if affected == 1 {
		return nil
	}
	// Zero rows: either the contract is missing or the envelope is already set.
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return contract.ErrEnvelopeAssigned
}

// ApplyEvent locks the row, folds the event through the pure state machine,
// and writes the result back. The FOR UPDATE lock serializes concurrent
// webhook deliveries and the submission flow on the same contract.
func (s *Store) ApplyEvent(ctx context.Context, ev contract.SigningEvent) (*contract.Contract, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin apply event: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE envelope_id = $1 FOR UPDATE`,
		ev.EnvelopeID)
	c, err := scanContract(row)
	if err != nil {
		return nil, false, err
	}

	changed := c.Apply(ev)
	if !changed {
		return c, false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE contracts
		SET status = $2, sent_at = $3, completed_at = $4, declined_at = $5, updated_at = $6
		WHERE id = $1
	`, c.ID, string(c.Status), nullTime(c.SentAt), nullTime(c.CompletedAt), nullTime(c.DeclinedAt), c.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("apply signing event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit signing event: %w", err)
	}
	return c, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*contract.Contract, error) {
	var (
		c          contract.Contract
		status     string
		total      decimal.Decimal
		startDate  sql.NullString
		endDate    sql.NullString
		envelopeID sql.NullString
		sentAt     sql.NullTime
		completed  sql.NullTime
		declined   sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.OwnerName, &c.ClientName, &c.Equipment,
		&startDate, &endDate, &status, &total, &c.ContractText,
		&envelopeID, &sentAt, &completed, &declined,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contract.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan contract: %w", err)
	}
	c.Status = contract.Status(status)
	c.TotalValue = total
	c.StartDate = startDate.String
	c.EndDate = endDate.String
	c.EnvelopeID = envelopeID.String
	c.SentAt = timePtr(sentAt)
	c.CompletedAt = timePtr(completed)
	c.DeclinedAt = timePtr(declined)
	return &c, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
