package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kbanson/bankcore/internal/domain"
)

const movementColumns = `id, seq, username, kind, amount, created_at`

type MovementRepository struct {
	db *sql.DB
}

func NewMovementRepository(db *sql.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Create appends one operation-log entry inside tx. Seq is assigned by the
// database; entries are never updated or deleted.
func (r *MovementRepository) Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO movements (id, username, kind, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Username, m.Kind, m.Amount, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ListByUsername returns the account's full history, oldest first. Ordering
// is by insertion sequence, not timestamp.
func (r *MovementRepository) ListByUsername(ctx context.Context, username string) ([]domain.Movement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements
		 WHERE username = $1 ORDER BY seq`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUsername: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByUsername: scan: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByUsername: rows: %w", err)
	}
	return movements, nil
}

func scanMovement(s scanner) (*domain.Movement, error) {
	var m domain.Movement
	err := s.Scan(
		&m.ID, &m.Seq, &m.Username, &m.Kind, &m.Amount, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
