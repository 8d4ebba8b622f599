package store

import (
	"reflect"

	"github.com/syssam/linkage/entity"
)

// Columns returns the storable fields of r: association properties (records,
// sequences and maps) are left out, byte slices are kept.
func Columns(r *entity.Record) map[string]any {
	fields := r.Fields()
	for k, v := range fields {
		if !Storable(v) {
			delete(fields, k)
		}
	}
	return fields
}

// Storable reports whether v can be written to a column.
func Storable(v any) bool {
	switch v.(type) {
	case nil, []byte:
		return true
	case *entity.Record, []*entity.Record:
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return false
	}
	return true
}
