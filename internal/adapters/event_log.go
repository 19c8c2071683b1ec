package adapters

import (
	"github.com/rs/zerolog"

	"apim-schema-import/internal/ports"
)

// EventLogAdapter writes engine events as zerolog entries with an "event"
// field. Critical entries use the fatal level but never exit the process.
type EventLogAdapter struct {
	logger zerolog.Logger
}

func NewEventLogAdapter(logger zerolog.Logger) EventLogAdapter {
	return EventLogAdapter{logger: logger}
}

func (a EventLogAdapter) Verbose(event string, msg string) {
	a.logger.Debug().Str("event", event).Msg(msg)
}

func (a EventLogAdapter) Informational(event string, msg string) {
	a.logger.Info().Str("event", event).Msg(msg)
}

func (a EventLogAdapter) Warning(event string, msg string) {
	a.logger.Warn().Str("event", event).Msg(msg)
}

func (a EventLogAdapter) Error(event string, err error, msg string) {
	a.logger.Error().Err(err).Str("event", event).Msg(msg)
}

func (a EventLogAdapter) Critical(event string, err error, msg string) {
	a.logger.WithLevel(zerolog.FatalLevel).Err(err).Str("event", event).Msg(msg)
}

var _ ports.EventLogPort = EventLogAdapter{}
