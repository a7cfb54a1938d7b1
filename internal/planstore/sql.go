package planstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/plan"
)

// SQL keeps CBOR plan documents in the plans table.
type SQL struct {
	db  *sql.DB
	reg *block.Registry
	now func() time.Time
}

// NewSQL creates the plans table when missing.
func NewSQL(ctx context.Context, db *sql.DB, reg *block.Registry) (*SQL, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS plans (
		name       TEXT PRIMARY KEY,
		document   BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("creating plans table: %w", err)
	}
	return &SQL{db: db, reg: reg, now: time.Now}, nil
}

// Save stores p under its name, replacing any previous version.
func (s *SQL) Save(ctx context.Context, p *plan.Plan) error {
	if err := checkName(p.Meta.Name); err != nil {
		return err
	}
	doc, err := p.MarshalCBOR()
	if err != nil {
		return fmt.Errorf("encoding plan %q: %w", p.Meta.Name, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO plans (name, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		p.Meta.Name, doc, s.now().Unix())
	if err != nil {
		return fmt.Errorf("saving plan %q: %w", p.Meta.Name, err)
	}
	return nil
}

// Load implements Store.
func (s *SQL) Load(ctx context.Context, name string) (*plan.Plan, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM plans WHERE name = ?`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading plan %q: %w", name, err)
	}
	return plan.UnmarshalCBOR(s.reg, doc)
}

// Names implements Store.
func (s *SQL) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM plans ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
