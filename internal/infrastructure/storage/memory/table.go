package memory

import (
	"context"
	"slices"
	"strings"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/entity"
	"novaerp/internal/core/id"
	"novaerp/internal/domain"
)

// record is a catalog row with an optimistic-lock version.
type record interface {
	entity.Validatable
	GetID() id.ID
	GetVersion() int
	SetVersion(v int)
}

// stage holds one transaction's pending writes to a table.
type stage[T record] struct {
	rows map[id.ID]T

	// base is the committed version a row had when first written;
	// rows inserted by the transaction have no entry
	base     map[id.ID]int
	inserted []id.ID
	deleted  map[id.ID]struct{}
}

func newStage[T record]() *stage[T] {
	return &stage[T]{
		rows:    make(map[id.ID]T),
		base:    make(map[id.ID]int),
		deleted: make(map[id.ID]struct{}),
	}
}

type catalogTable[T record] struct {
	entity string
	rows   map[id.ID]T
	order  []id.ID
	clone  func(T) T
	staged func(*txState) *stage[T]

	// referenced reports whether committed or t's staged rows of another
	// table point at key; nil means the table is never referenced.
	// Caller holds the store lock.
	referenced func(t *txState, key id.ID) bool
}

func newCatalogTable[T record](entity string, clone func(T) T, staged func(*txState) *stage[T]) *catalogTable[T] {
	return &catalogTable[T]{
		entity: entity,
		rows:   make(map[id.ID]T),
		clone:  clone,
		staged: staged,
	}
}

// get reads a row as seen by t. Caller holds the store read lock.
func (tb *catalogTable[T]) get(t *txState, key id.ID) (T, bool) {
	if t != nil {
		st := tb.staged(t)
		if _, gone := st.deleted[key]; gone {
			var zero T
			return zero, false
		}
		if row, ok := st.rows[key]; ok {
			return tb.clone(row), true
		}
	}
	row, ok := tb.rows[key]
	if !ok {
		var zero T
		return zero, false
	}
	return tb.clone(row), true
}

// all returns every row visible to t in creation order.
func (tb *catalogTable[T]) all(t *txState) []T {
	keys := tb.order
	if t != nil {
		keys = append(slices.Clip(keys), tb.staged(t).inserted...)
	}
	out := make([]T, 0, len(keys))
	for _, key := range keys {
		if row, ok := tb.get(t, key); ok {
			out = append(out, row)
		}
	}
	return out
}

// check verifies that nothing t updated or deleted was committed by someone
// else meanwhile, and that no row t deletes has gained a reference.
func (tb *catalogTable[T]) check(t *txState) error {
	st := tb.staged(t)
	for key, base := range st.base {
		if cur, ok := tb.rows[key]; !ok || cur.GetVersion() != base {
			return apperror.NewConcurrentModification(tb.entity, key.String())
		}
	}
	for key := range st.deleted {
		if tb.referenced != nil && tb.referenced(t, key) {
			return apperror.NewInUse(tb.entity, key.String())
		}
	}
	for _, key := range st.inserted {
		if _, exists := tb.rows[key]; exists {
			return apperror.NewDuplicate(tb.entity, "id", key.String())
		}
	}
	return nil
}

func (tb *catalogTable[T]) apply(t *txState) {
	st := tb.staged(t)
	for key, row := range st.rows {
		tb.rows[key] = row
	}
	tb.order = append(tb.order, st.inserted...)
	if len(st.deleted) > 0 {
		for key := range st.deleted {
			delete(tb.rows, key)
		}
		tb.order = slices.DeleteFunc(tb.order, func(key id.ID) bool {
			_, gone := st.deleted[key]
			return gone
		})
	}
}

// catalogRepo implements domain.CatalogRepository over a catalogTable.
type catalogRepo[T record] struct {
	store *Store
	table *catalogTable[T]

	name   func(T) string
	active func(T) bool

	// search matches fields beyond the name (SKU, email)
	search func(T, string) bool
}

func (r *catalogRepo[T]) Create(ctx context.Context, e T) error {
	return r.store.write(ctx, func(t *txState) error {
		r.store.mu.RLock()
		_, exists := r.table.get(t, e.GetID())
		r.store.mu.RUnlock()
		if exists {
			return apperror.NewDuplicate(r.table.entity, "id", e.GetID().String())
		}

		st := r.table.staged(t)
		st.rows[e.GetID()] = r.table.clone(e)
		st.inserted = append(st.inserted, e.GetID())
		return nil
	})
}

func (r *catalogRepo[T]) GetByID(ctx context.Context, key id.ID) (T, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row, ok := r.table.get(txFrom(ctx), key)
	if !ok {
		return row, apperror.NewNotFound(r.table.entity, key.String())
	}
	return row, nil
}

func (r *catalogRepo[T]) Update(ctx context.Context, e T) error {
	return r.store.write(ctx, func(t *txState) error {
		key := e.GetID()

		r.store.mu.RLock()
		current, ok := r.table.get(t, key)
		r.store.mu.RUnlock()
		if !ok {
			return apperror.NewNotFound(r.table.entity, key.String())
		}
		if current.GetVersion() != e.GetVersion() {
			return apperror.NewConcurrentModification(r.table.entity, key.String())
		}

		st := r.table.staged(t)
		_, staged := st.rows[key]
		if !staged && !slices.Contains(st.inserted, key) {
			st.base[key] = current.GetVersion()
		}

		e.SetVersion(e.GetVersion() + 1)
		st.rows[key] = r.table.clone(e)
		return nil
	})
}

func (r *catalogRepo[T]) Delete(ctx context.Context, key id.ID) error {
	return r.store.write(ctx, func(t *txState) error {
		r.store.mu.RLock()
		current, ok := r.table.get(t, key)
		inUse := ok && r.table.referenced != nil && r.table.referenced(t, key)
		r.store.mu.RUnlock()
		if !ok {
			return apperror.NewNotFound(r.table.entity, key.String())
		}
		if inUse {
			return apperror.NewInUse(r.table.entity, key.String())
		}

		st := r.table.staged(t)
		if slices.Contains(st.inserted, key) {
			delete(st.rows, key)
			st.inserted = slices.DeleteFunc(st.inserted, func(k id.ID) bool { return k == key })
			return nil
		}
		if _, staged := st.rows[key]; !staged {
			st.base[key] = current.GetVersion()
		}
		delete(st.rows, key)
		st.deleted[key] = struct{}{}
		return nil
	})
}

func (r *catalogRepo[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	r.store.mu.RLock()
	rows := r.table.all(txFrom(ctx))
	r.store.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := rows[:0]
	for _, row := range rows {
		if filter.ActiveOnly && !r.active(row) {
			continue
		}
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, row.GetID()) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.name(row)), search) &&
			(r.search == nil || !r.search(row, search)) {
			continue
		}
		matched = append(matched, row)
	}

	switch filter.OrderBy {
	case "", "name":
		slices.SortStableFunc(matched, func(a, b T) int { return strings.Compare(r.name(a), r.name(b)) })
	case "-name":
		slices.SortStableFunc(matched, func(a, b T) int { return strings.Compare(r.name(b), r.name(a)) })
	case "-created_at":
		slices.Reverse(matched)
	}

	return paginate(matched, filter.Limit, filter.Offset), nil
}

func paginate[T any](items []T, limit, offset int) domain.ListResult[T] {
	total := len(items)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return domain.ListResult[T]{
		Items:      items[offset:end],
		TotalCount: int64(total),
		Limit:      limit,
		Offset:     offset,
	}
}
