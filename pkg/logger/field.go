package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// Field is one structured key/value. Value is what the collector aggregates on.
type Field struct {
	Key   string
	Value interface{}
	add   func(*zerolog.Event)
}

func String(key, value string) Field {
	return Field{Key: key, Value: value, add: func(e *zerolog.Event) { e.Str(key, value) }}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value, add: func(e *zerolog.Event) { e.Int(key, value) }}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value, add: func(e *zerolog.Event) { e.Int64(key, value) }}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value, add: func(e *zerolog.Event) { e.Uint64(key, value) }}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value, add: func(e *zerolog.Event) { e.Bool(key, value) }}
}

// Duration logs whole milliseconds; name the key accordingly (e.g. "latency_ms").
func Duration(key string, value time.Duration) Field {
	return Int64(key, value.Milliseconds())
}

// Error is nil-safe; a nil error logs nothing useful but never panics.
func Error(err error) Field {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Field{Key: zerolog.ErrorFieldName, Value: msg, add: func(e *zerolog.Event) { e.Err(err) }}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value, add: func(e *zerolog.Event) { e.Interface(key, value) }}
}

// Dashboard fields, so every package logs the same keys.

func SessionID(id string) Field { return String("session", id) }

func Ticker(t string) Field { return String("ticker", t) }

func Generation(g uint64) Field { return Uint64("generation", g) }
