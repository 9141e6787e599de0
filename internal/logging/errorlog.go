package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Kind names a class of non-fatal (or run-ending) condition in the error log
type Kind string

const (
	KindSourceUnavailable Kind = "source_unavailable"
	KindParseFailure      Kind = "annotation_parse_failure"
	KindQuotaExceeded     Kind = "quota_exceeded"
	KindValidation        Kind = "validation_failure"
	KindUnmatched         Kind = "unmatched_item"
	KindTransport         Kind = "transport_failure"
	KindBatchAbandoned    Kind = "batch_abandoned"
	KindSaveFailure       Kind = "save_failure"
)

// ErrorLog appends timestamped JSON lines describing problems met during a run
type ErrorLog struct {
	log    zerolog.Logger
	closer io.Closer
}

// OpenErrorLog opens (or creates) a size-rotated error log at path
func OpenErrorLog(path, runID string) (*ErrorLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     90, // days
	}
	el := NewErrorLog(rotator, runID)
	el.closer = rotator
	return el, nil
}

// NewErrorLog writes error log lines to w
func NewErrorLog(w io.Writer, runID string) *ErrorLog {
	ctx := zerolog.New(w).With().Timestamp()
	if runID != "" {
		ctx = ctx.Str("run_id", runID)
	}
	return &ErrorLog{log: ctx.Logger()}
}

// NopErrorLog discards everything
func NopErrorLog() *ErrorLog {
	return &ErrorLog{log: zerolog.Nop()}
}

// Record starts an entry of the given kind; finish it with Msg or Send
func (l *ErrorLog) Record(kind Kind) *zerolog.Event {
	if l == nil {
		return nil
	}
	return l.log.WithLevel(levelFor(kind)).Str("kind", string(kind))
}

// Close flushes and closes the underlying file, if any
func (l *ErrorLog) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func levelFor(kind Kind) zerolog.Level {
	switch kind {
	case KindSourceUnavailable, KindQuotaExceeded, KindSaveFailure:
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
