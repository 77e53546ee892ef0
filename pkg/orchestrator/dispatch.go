package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/internal/telemetry"
	"github.com/marmos91/dittoio/pkg/handler"
	"github.com/marmos91/dittoio/pkg/transfer"
)

var (
	// ErrNilRecord is returned when Dispatch is handed no record.
	ErrNilRecord = errors.New("dispatch called with nil record")

	// ErrEntityNotFound is returned when the record's entity no longer exists.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrIncompleteRecord is returned when a record lacks what its direction
	// needs: a handler (a writer for uploads), a locator or a destination.
	ErrIncompleteRecord = errors.New("incomplete transfer record")
)

// Dispatch performs the transfer described by rec on the calling goroutine.
//
// The record's entity must still exist; otherwise Dispatch returns
// ErrEntityNotFound without touching the record. Records missing a piece
// return ErrIncompleteRecord, also untouched. Otherwise the record is moved
// to InProgress, the handler runs, and the record ends Completed or Failed.
// The handler's error is returned.
func (l *Logic) Dispatch(ctx context.Context, rec *transfer.Record) error {
	if rec == nil {
		logger.ErrorCtx(ctx, "Dispatch called with nil record")
		return ErrNilRecord
	}

	ctx, span := telemetry.StartTransferSpan(ctx, "dispatch",
		telemetry.TransferID(rec.ID.String()),
		telemetry.EntityID(rec.EntityID),
		telemetry.Direction(rec.Direction.String()),
		telemetry.Async(l.Async()))
	defer span.End()

	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = logger.NewLogContext(rec.ID.String(), rec.EntityID, rec.Direction.String())
	} else {
		lc = lc.Clone()
		lc.TransferID, lc.EntityID, lc.Direction = rec.ID.String(), rec.EntityID, rec.Direction.String()
	}
	ctx = logger.WithContext(ctx, lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))

	defer l.release(inflightKey{entityID: rec.EntityID, direction: rec.Direction})

	if _, ok := l.model.ResolveByID(rec.EntityID); !ok {
		logger.InfoCtx(ctx, "Entity removed before dispatch, skipping transfer")
		telemetry.AddEvent(ctx, "entity_not_found")
		return fmt.Errorf("%w: %s", ErrEntityNotFound, rec.EntityID)
	}

	run, op, err := l.operation(rec)
	if err != nil {
		logger.WarnCtx(ctx, "Transfer record cannot be dispatched", logger.Err(err))
		telemetry.RecordError(ctx, err)
		return err
	}

	if _, err := l.tracker.SetStatus(ctx, rec.ID, transfer.InProgress, nil); err != nil {
		logger.WarnCtx(ctx, "Cannot start transfer", logger.Err(err))
		telemetry.RecordError(ctx, err)
		return err
	}

	logger.DebugCtx(ctx, "Transfer started",
		logger.Handler(rec.HandlerName),
		logger.Locator(rec.SourceLocator),
		logger.Destination(rec.DestinationPath))

	hctx, hspan := telemetry.StartHandlerSpan(ctx, rec.HandlerName, op,
		telemetry.Locator(rec.SourceLocator),
		telemetry.Destination(rec.DestinationPath))
	runErr := run(hctx)
	telemetry.RecordError(hctx, runErr)
	hspan.End()

	final := transfer.Completed
	if runErr != nil {
		final = transfer.Failed
	}
	done, err := l.tracker.SetStatus(ctx, rec.ID, final, runErr)
	if err != nil {
		logger.ErrorCtx(ctx, "Cannot finish transfer", logger.Err(err))
		return errors.Join(runErr, err)
	}
	telemetry.SetAttributes(ctx, telemetry.Status(final.String()))

	if runErr != nil {
		telemetry.RecordError(ctx, runErr)
		logger.WarnCtx(ctx, "Transfer failed",
			logger.Locator(rec.SourceLocator),
			logger.DurationMs(done.Duration()),
			logger.Err(runErr))
		return runErr
	}
	logger.InfoCtx(ctx, "Transfer completed",
		logger.Locator(rec.SourceLocator),
		logger.Destination(rec.DestinationPath),
		logger.DurationMs(done.Duration()))
	return nil
}

// operation returns the handler call for rec's direction.
func (l *Logic) operation(rec *transfer.Record) (func(context.Context) error, string, error) {
	if rec.Handler == nil {
		return nil, "", fmt.Errorf("%w: no handler", ErrIncompleteRecord)
	}
	if rec.SourceLocator == "" || rec.DestinationPath == "" {
		return nil, "", fmt.Errorf("%w: missing locator or destination", ErrIncompleteRecord)
	}

	switch rec.Direction {
	case transfer.Download:
		h := rec.Handler
		return func(ctx context.Context) error {
			return h.StageRead(ctx, rec.SourceLocator, rec.DestinationPath)
		}, "stage_read", nil
	case transfer.Upload:
		w, ok := rec.Handler.(handler.Writer)
		if !ok {
			return nil, "", fmt.Errorf("%w: handler %s cannot write", ErrIncompleteRecord, rec.HandlerName)
		}
		return func(ctx context.Context) error {
			return w.StageWrite(ctx, rec.DestinationPath, rec.SourceLocator)
		}, "stage_write", nil
	default:
		return nil, "", fmt.Errorf("%w: unknown direction %d", ErrIncompleteRecord, int(rec.Direction))
	}
}
