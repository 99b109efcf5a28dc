// Package register_repo provides the PostgreSQL stock ledger.
package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/id"
	"novaerp/internal/domain/registers/stock"
	"novaerp/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "stock_movements"

var movementColumns = []string{
	"id", "product_id", "warehouse_id", "movement_type", "quantity",
	"cost_at_time", "note", "created_by", "created_at", "reference_id",
}

var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository.
// Rows carry a bigserial seq that fixes their creation order for replay.
type StockRepo struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateMovements appends movements with COPY inside the caller's transaction.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []stock.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	if r.txManager.GetTx(ctx) == nil {
		return apperror.NewInternal(errors.New("CreateMovements requires a transaction"))
	}

	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{
			m.ID, m.ProductID, m.WarehouseID, string(m.Type), m.Quantity,
			m.CostAtTime, m.Note, m.CreatedBy, m.CreatedAt, m.ReferenceID,
		})
	}

	if _, err := r.inserter.CopyFromSlice(ctx, stockMovementsTable, movementColumns, rows); err != nil {
		return postgres.TranslateError(fmt.Errorf("copy movements: %w", err))
	}
	return nil
}

// GetMovementHistory returns movements matching filter, newest first.
func (r *StockRepo) GetMovementHistory(ctx context.Context, filter stock.MovementFilter) ([]stock.StockMovement, error) {
	return r.selectMovements(ctx, r.historyQuery(filter))
}

// GetMovementsByProduct returns every movement of a product in creation order.
func (r *StockRepo) GetMovementsByProduct(ctx context.Context, productID id.ID) ([]stock.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("seq ASC")
	return r.selectMovements(ctx, q)
}

func (r *StockRepo) historyQuery(filter stock.MovementFilter) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).From(stockMovementsTable)

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": string(*filter.Type)})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("seq DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func (r *StockRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]stock.StockMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	movements := []stock.StockMovement{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("select movements: %w", err))
	}
	return movements, nil
}
