// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/id"
	"novaerp/internal/domain"
	"novaerp/internal/infrastructure/storage/postgres"
)

// Versioned is a catalog row carrying an optimistic-lock version.
type Versioned interface {
	GetID() id.ID
	GetVersion() int
	SetVersion(v int)
}

// BaseCatalogRepo provides common CRUD operations for catalog entities.
// Embed this in specific catalog repositories.
type BaseCatalogRepo[T Versioned] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string

	// searchCols are matched with ILIKE by ListFilter.Search
	searchCols []string

	newFn func() T
}

// BaseConfig configures a BaseCatalogRepo.
type BaseConfig[T Versioned] struct {
	TxManager  *postgres.TxManager
	TableName  string
	EntityName string
	SelectCols []string
	SearchCols []string
	NewFn      func() T
}

// NewBaseCatalogRepo creates a new base catalog repository.
func NewBaseCatalogRepo[T Versioned](cfg BaseConfig[T]) *BaseCatalogRepo[T] {
	searchCols := cfg.SearchCols
	if len(searchCols) == 0 {
		searchCols = []string{"name"}
	}
	return &BaseCatalogRepo[T]{
		txManager:  cfg.TxManager,
		tableName:  cfg.TableName,
		entityName: cfg.EntityName,
		selectCols: cfg.SelectCols,
		searchCols: searchCols,
		newFn:      cfg.NewFn,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseCatalogRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts a new entity using its "db" tags.
func (r *BaseCatalogRepo[T]) Create(ctx context.Context, entity T) error {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %s", r.entityName)
	}

	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(fmt.Errorf("insert %s: %w", r.tableName, err))
	}
	return nil
}

// Update modifies an existing entity with optimistic locking and advances
// the entity's version on success.
func (r *BaseCatalogRepo[T]) Update(ctx context.Context, entity T) error {
	sql, args, err := r.updateQuery(entity).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(fmt.Errorf("update %s: %w", r.tableName, err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entityName, entity.GetID().String())
	}

	entity.SetVersion(entity.GetVersion() + 1)
	return nil
}

func (r *BaseCatalogRepo[T]) updateQuery(entity T) squirrel.UpdateBuilder {
	data := postgres.StructToMap(entity)

	// id and created_at are immutable; version is managed here
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		switch col {
		case "id", "version", "created_at":
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	return r.Builder().
		Update(r.tableName).
		SetMap(filtered).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entity.GetID()}).
		Where(squirrel.Eq{"version": entity.GetVersion()})
}

// Delete removes an entity. Rows still referenced by documents or ledger
// movements are protected by ON DELETE RESTRICT and yield ENTITY_IN_USE.
func (r *BaseCatalogRepo[T]) Delete(ctx context.Context, entityID id.ID) error {
	sql, args, err := r.deleteQuery(entityID).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewInUse(r.entityName, entityID.String()).WithCause(err)
		}
		return postgres.TranslateError(fmt.Errorf("delete %s: %w", r.tableName, err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

func (r *BaseCatalogRepo[T]) deleteQuery(entityID id.ID) squirrel.DeleteBuilder {
	return r.Builder().Delete(r.tableName).Where(squirrel.Eq{"id": entityID})
}

func (r *BaseCatalogRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// GetByID retrieves entity by ID.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Limit(1), entityID)
}

// GetForUpdate retrieves entity by ID and locks the row until the
// surrounding transaction ends.
func (r *BaseCatalogRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	if r.txManager.GetTx(ctx) == nil {
		var zero T
		return zero, apperror.NewInternal(fmt.Errorf("lock %s outside a transaction", r.entityName))
	}
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"), entityID)
}

// FindOne executes a SELECT query and returns a single entity.
func (r *BaseCatalogRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, entityID id.ID) (T, error) {
	entity := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, entityID.String())
		}
		return entity, postgres.TranslateError(fmt.Errorf("get %s: %w", r.entityName, err))
	}
	return entity, nil
}

// FindAll executes a SELECT query and returns every matching entity.
func (r *BaseCatalogRepo[T]) FindAll(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("select %s: %w", r.tableName, err))
	}
	return items, nil
}

// List retrieves entities with filtering and pagination.
func (r *BaseCatalogRepo[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Items:  []T{},
	}

	q := r.filtered(filter)

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, postgres.TranslateError(fmt.Errorf("count %s: %w", r.tableName, err))
	}

	q, err = r.paged(q, filter)
	if err != nil {
		return result, err
	}

	items, err := r.FindAll(ctx, q)
	if err != nil {
		return result, err
	}
	if items != nil {
		result.Items = items
	}
	return result, nil
}

// filtered applies the WHERE part of a list filter.
func (r *BaseCatalogRepo[T]) filtered(filter domain.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()

	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		or := make(squirrel.Or, 0, len(r.searchCols))
		for _, col := range r.searchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	return q
}

// paged applies ordering and pagination.
func (r *BaseCatalogRepo[T]) paged(q squirrel.SelectBuilder, filter domain.ListFilter) (squirrel.SelectBuilder, error) {
	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return q, err
	}
	q = q.OrderBy(orderBy, "id ASC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q, nil
}

func (r *BaseCatalogRepo[T]) parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		return "name ASC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}
	field = strings.TrimSpace(field)

	allowed := field == "created_at" || field == "updated_at"
	for _, col := range r.selectCols {
		if col == field {
			allowed = true
			break
		}
	}
	if field == "" || !allowed {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	return field + " " + direction, nil
}
