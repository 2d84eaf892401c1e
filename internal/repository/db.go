package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxBeginner starts database transactions for operations that span multiple
// repositories.
type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// txBeginner is a pool-backed TxBeginner.
type txBeginner struct {
	pool *pgxpool.Pool
}

// NewTxBeginner creates a TxBeginner over the connection pool.
func NewTxBeginner(pool *pgxpool.Pool) TxBeginner {
	return &txBeginner{pool: pool}
}

// BeginTx starts a new database transaction.
func (b *txBeginner) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}
