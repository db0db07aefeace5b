package alert

import (
	"context"

	"github.com/rs/zerolog"
)

// Log writes alerts to the logger. It is used when no chat channel is configured.
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "alert").Logger()}
}

func (l *Log) Send(_ context.Context, text string) error {
	l.logger.Info().Str("alert", text).Msg("deposit alert")
	return nil
}
