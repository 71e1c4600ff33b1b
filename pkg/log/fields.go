package log

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Common field keys
const (
	ComponentKey = "component"
	OperationKey = "operation"
	TenantKey    = "tenant"
)

// Field is a single structured logging attribute.
type Field struct {
	Key   string
	Value interface{}
}

// Str builds a string field.
func Str(key, value string) Field { return Field{Key: key, Value: value} }

// Int builds an int field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int32 builds an int32 field.
func Int32(key string, value int32) Field { return Field{Key: key, Value: value} }

// Int64 builds an int64 field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Uint64 builds a uint64 field.
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }

// Bool builds a bool field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration builds a duration field rendered as a string.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Any builds a field with an arbitrary value.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Err attaches an error under the conventional "error" key.
func Err(err error) Field { return Field{Key: logrus.ErrorKey, Value: err} }

// Component tags a logger or entry with a component name.
func Component(name string) Field { return Field{Key: ComponentKey, Value: name} }

// Operation tags an entry with the operation being performed.
func Operation(name string) Field { return Field{Key: OperationKey, Value: name} }

// Tenant tags an entry with the tenant it concerns.
func Tenant(name string) Field { return Field{Key: TenantKey, Value: name} }

func fieldsToLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
