package daemon

import (
	"context"

	"curator/internal/events"
	"curator/internal/logging"
)

// logEvents mirrors every bus event into the structured log so a run's
// pipeline activity survives in the log files alongside component logs.
func (d *Daemon) logEvents(ctx context.Context, ch <-chan events.Event, unsubscribe func()) {
	defer d.wg.Done()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			d.logger.Info("pipeline event", logging.Args(eventAttrs(evt)...)...)
		}
	}
}

// eventAttrs flattens an event payload into log attributes.
func eventAttrs(evt events.Event) []logging.Attr {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, string(evt.Type))}
	switch p := evt.Payload.(type) {
	case events.BatchPayload:
		attrs = append(attrs,
			logging.String(logging.FieldBatchID, p.BatchID),
			logging.String("batch_type", p.BatchType),
			logging.Int("total", p.Total),
			logging.Int("completed", p.Completed),
			logging.Int("failed", p.Failed))
	case events.OperationPayload:
		attrs = append(attrs,
			logging.String(logging.FieldOperationID, p.OperationID),
			logging.String(logging.FieldBatchID, p.BatchID),
			logging.String("operation", p.Operation),
			logging.String("source", p.SourcePath))
		if p.TargetPath != "" {
			attrs = append(attrs, logging.String("target", p.TargetPath))
		}
		if p.Error != "" {
			attrs = append(attrs, logging.String("error", p.Error))
		}
	case events.CapacityPayload:
		attrs = append(attrs,
			logging.String("queue", p.Queue),
			logging.Int("size", p.Size),
			logging.Int("capacity", p.Capacity))
	case events.ProcessedPayload:
		attrs = append(attrs,
			logging.Int("auto_approved", p.AutoApproved),
			logging.Int("queued", p.Queued),
			logging.Int("rejected", p.Rejected))
	case events.ReviewPayload:
		attrs = append(attrs,
			logging.String(logging.FieldEntryID, p.EntryID),
			logging.String("decision", p.Decision),
			logging.String("actor", p.Actor),
			logging.Bool("override", p.Override))
	case events.RollbackPayload:
		attrs = append(attrs,
			logging.String(logging.FieldTransactionID, p.TransactionID),
			logging.Int("applied", p.Applied),
			logging.Int("rolled_back", p.RolledBack),
			logging.Int("errors", p.Errors))
	}
	return attrs
}
