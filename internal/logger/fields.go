package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use them consistently so that log lines from the
// ingestion path, the workers and the API can be correlated.
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Transfers
	KeyTransferID  = "transfer_id"
	KeyEntityID    = "entity_id"
	KeyLocator     = "locator"
	KeyDestination = "destination"
	KeyDirection   = "direction"
	KeyStatus      = "status"
	KeyHandler     = "handler"
	KeyResult      = "result"
	KeyAsync       = "async"

	// Scheduler
	KeyTask     = "task"
	KeyPriority = "priority"
	KeyWorkers  = "workers"
	KeyPending  = "pending"

	// Storage
	KeyBackend = "backend"
	KeyPath    = "path"
	KeyBucket  = "bucket"
	KeyKey     = "key"
	KeyRegion  = "region"
	KeySize    = "size"

	// HTTP
	KeyMethod    = "method"
	KeyURL       = "url"
	KeyCode      = "code"
	KeyRequestID = "request_id"

	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// TransferID returns an attribute for a transfer record identifier.
func TransferID(id string) slog.Attr { return slog.String(KeyTransferID, id) }

// EntityID returns an attribute for a host entity identifier.
func EntityID(id string) slog.Attr { return slog.String(KeyEntityID, id) }

// Locator returns an attribute for a remote resource locator.
func Locator(l string) slog.Attr { return slog.String(KeyLocator, l) }

// Destination returns an attribute for a local cache path.
func Destination(p string) slog.Attr { return slog.String(KeyDestination, p) }

// Direction returns an attribute for a transfer direction.
func Direction(d string) slog.Attr { return slog.String(KeyDirection, d) }

// Status returns an attribute for a transfer status.
func Status(s string) slog.Attr { return slog.String(KeyStatus, s) }

// Handler returns an attribute naming a transfer handler.
func Handler(name string) slog.Attr { return slog.String(KeyHandler, name) }

func Backend(name string) slog.Attr { return slog.String(KeyBackend, name) }

func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

func Bucket(b string) slog.Attr { return slog.String(KeyBucket, b) }

func Key(k string) slog.Attr { return slog.String(KeyKey, k) }

func Size(n int64) slog.Attr { return slog.Int64(KeySize, n) }

// DurationMs returns an attribute holding d in milliseconds.
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}

// Err returns an attribute for err. A nil error yields an empty attribute,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
