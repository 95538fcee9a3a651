// Package audit records the domain events the interaction flows emit as
// structured log lines.
package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/mimoto-id/mimoto/domain"
	"github.com/mimoto-id/mimoto/internal/interaction"
)

// Sink logs every emitted domain event as one JSON audit line. Emission is
// fire-and-forget; serialization failures are logged, never propagated.
type Sink struct {
	logger zerolog.Logger
}

// NewSink creates a Sink writing through the given logger.
func NewSink(logger zerolog.Logger) *Sink {
	return &Sink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *Sink) Emit(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Ctx(ctx).Err(err).
			Str("event_type", event.EventType()).
			Msg("failed to marshal audit event")
		return
	}
	s.logger.Info().Ctx(ctx).
		Str("event_type", event.EventType()).
		RawJSON("event", payload).
		Msg("audit event")
}

var _ interaction.EventSink = (*Sink)(nil)
