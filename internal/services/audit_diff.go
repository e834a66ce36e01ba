package services

import (
	"reflect"
	"strings"
	"time"

	"spendwise/internal/models"
)

// untrackedFields are bookkeeping columns left out of update diffs.
var untrackedFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"created_by": true,
	"updated_by": true,
}

type fieldValue struct {
	name  string
	value any
}

// snapshot flattens record into its JSON-named fields in declaration order.
// Fields tagged json:"-" are skipped and embedded structs are inlined.
func snapshot(record any) []fieldValue {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	var fields []fieldValue
	collectFields(v, &fields)
	return fields
}

func collectFields(v reflect.Value, fields *[]fieldValue) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectFields(v.Field(i), fields)
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		*fields = append(*fields, fieldValue{name: name, value: deref(v.Field(i))})
	}
}

// deref follows pointers; a nil pointer becomes nil.
func deref(v reflect.Value) any {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

func sameValue(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func createChanges(record any) models.AuditChanges {
	fields := snapshot(record)
	changes := make(models.AuditChanges, 0, len(fields))
	for _, f := range fields {
		changes = append(changes, models.AuditChange{Field: f.name, NewValue: f.value})
	}
	return changes
}

func deleteChanges(record any) models.AuditChanges {
	fields := snapshot(record)
	changes := make(models.AuditChanges, 0, len(fields))
	for _, f := range fields {
		changes = append(changes, models.AuditChange{Field: f.name, OldValue: f.value})
	}
	return changes
}

// diffChanges lists the tracked fields whose values differ between before
// and after. A field present on one side only is reported against nil.
func diffChanges(before, after any) models.AuditChanges {
	old := snapshot(before)
	oldByName := make(map[string]any, len(old))
	for _, f := range old {
		oldByName[f.name] = f.value
	}

	changes := models.AuditChanges{}
	seen := make(map[string]bool, len(old))
	for _, f := range snapshot(after) {
		seen[f.name] = true
		if untrackedFields[f.name] {
			continue
		}
		prev := oldByName[f.name]
		if sameValue(prev, f.value) {
			continue
		}
		changes = append(changes, models.AuditChange{Field: f.name, OldValue: prev, NewValue: f.value})
	}
	for _, f := range old {
		if seen[f.name] || untrackedFields[f.name] {
			continue
		}
		changes = append(changes, models.AuditChange{Field: f.name, OldValue: f.value})
	}
	return changes
}
