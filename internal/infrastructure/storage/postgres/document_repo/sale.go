// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/id"
	"novaerp/internal/domain"
	"novaerp/internal/domain/documents/sale"
	"novaerp/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "sales"
	saleItemsTable = "sale_items"
)

var (
	saleColumns     = postgres.ExtractDBColumns[sale.Sale]()
	saleItemColumns = postgres.ExtractDBColumns[sale.Item]()
)

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchExecutor
	builder   squirrel.StatementBuilderType
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		batch:     postgres.NewBatchExecutor(txManager),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the header and every item in one round-trip.
// It must run inside the caller's transaction.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	if r.txManager.GetTx(ctx) == nil {
		return apperror.NewInternal(errors.New("sale Create requires a transaction"))
	}

	queries, err := r.insertQueries(s)
	if err != nil {
		return err
	}
	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return postgres.TranslateError(fmt.Errorf("insert sale %s: %w", s.Number, err))
	}
	return nil
}

func (r *SaleRepo) insertQueries(s *sale.Sale) ([]postgres.BatchQuery, error) {
	queries := make([]postgres.BatchQuery, 0, len(s.Items)+1)

	header := r.builder.Insert(salesTable).Columns(saleColumns...).Values(
		s.ID, s.Version, s.CreatedAt, s.UpdatedAt,
		s.Number, s.SaleDate, string(s.Status),
		s.TotalAmount, s.DiscountAmount, s.FinalAmount,
		s.CustomerID, s.UserID, s.Notes,
	)
	sql, args, err := header.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert sale: %w", err)
	}
	queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})

	for _, item := range s.Items {
		sql, args, err := r.builder.Insert(saleItemsTable).Columns(saleItemColumns...).Values(
			item.ID, s.ID, item.LineNo, item.ProductID, item.Quantity,
			item.UnitPrice, item.DiscountAmount, item.LineTotal, item.CostAtTime,
		).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert sale item: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	return queries, nil
}

// GetByID loads a sale with its items ordered by line number.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	querier := r.txManager.GetQuerier(ctx)

	sql, args, err := r.builder.Select(saleColumns...).
		From(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	s := &sale.Sale{}
	if err := pgxscan.Get(ctx, querier, s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, postgres.TranslateError(fmt.Errorf("get sale: %w", err))
	}

	sql, args, err = r.builder.Select(saleItemColumns...).
		From(saleItemsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	s.Items = []sale.Item{}
	if err := pgxscan.Select(ctx, querier, &s.Items, sql, args...); err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("get sale items: %w", err))
	}
	return s, nil
}

// List returns sale headers, newest first.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result := domain.ListResult[*sale.Sale]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Items:  []*sale.Sale{},
	}
	querier := r.txManager.GetQuerier(ctx)

	q := r.filtered(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, postgres.TranslateError(fmt.Errorf("count sales: %w", err))
	}

	sql, args, err := r.paged(q, filter).ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, postgres.TranslateError(fmt.Errorf("list sales: %w", err))
	}
	return result, nil
}

func (r *SaleRepo) filtered(filter sale.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(saleColumns...).From(salesTable)

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.UserID != "" {
		q = q.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"sale_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"sale_date": *filter.ToDate})
	}
	return q
}

func (r *SaleRepo) paged(q squirrel.SelectBuilder, filter sale.ListFilter) squirrel.SelectBuilder {
	q = q.OrderBy("sale_date DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}
