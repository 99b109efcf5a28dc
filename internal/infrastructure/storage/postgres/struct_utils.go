package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// column is a db-tagged field, reached through any embedded structs.
type column struct {
	name  string
	index []int
}

// columnCache holds []column per struct type.
var columnCache sync.Map

func columnsOf(t reflect.Type) []column {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}
	cols := collectColumns(t, nil)
	columnCache.Store(t, cols)
	return cols
}

// collectColumns lists columns in declaration order, with the fields of an
// embedded struct such as entity.BaseEntity in place of the struct itself.
func collectColumns(t reflect.Type, prefix []int) []column {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []column
	for i := range t.NumField() {
		f := t.Field(i)
		index := append(slices.Clip(prefix), i)
		if f.Anonymous {
			cols = append(cols, collectColumns(f.Type, index)...)
			continue
		}
		if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
			cols = append(cols, column{name: tag, index: index})
		}
	}
	return cols
}

// ExtractDBColumns returns the column list of a row type, e.g. the
// SELECT list of a catalog table.
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeFor[T]())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap returns the column values of a row, keyed by column name.
// v is a struct or a pointer to one; anything else yields nil.
func StructToMap(v any) map[string]any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		// a nil embedded pointer contributes no columns
		fv, err := rv.FieldByIndexErr(c.index)
		if err != nil {
			continue
		}
		res[c.name] = fv.Interface()
	}
	return res
}
