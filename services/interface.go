package services

import (
	"context"
	"time"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/events"
)

// Dispatcher hands background work to whatever runs it: the redis queue in
// production, the in-process runner in tests and single node setups.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *models.Task) error
}

// FieldTranslator is the part of the translation bridge the engines need.
type FieldTranslator interface {
	TranslateText(ctx context.Context, text, lang string) (string, error)
	TranslateFields(ctx context.Context, fields map[string]any, lang string) (map[string]any, error)
}

// emit publishes a progress event. Delivery is best effort: failures are
// logged and never stop the pipeline.
func emit(ctx context.Context, n events.Notifier, ev models.ProgressEvent) {
	if n == nil || ev.UserID == "" {
		return
	}
	ev.Timestamp = time.Now()
	if err := n.Publish(ctx, ev.UserID, &ev); err != nil {
		logging.Logger.Warn("fail publish progress", "error", err, "docID", ev.DocID, "step", ev.Step)
	}
}
