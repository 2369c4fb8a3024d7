package observability

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologObserver emits events to a zerolog.Logger. Event levels map via
// zerologLevel, the event type becomes the log message, and Data keys are
// flattened as top-level structured fields.
type ZerologObserver struct {
	logger zerolog.Logger
}

// NewZerologObserver creates a ZerologObserver that emits to the given logger.
func NewZerologObserver(logger zerolog.Logger) *ZerologObserver {
	return &ZerologObserver{logger: logger}
}

func (o *ZerologObserver) OnEvent(ctx context.Context, event Event) {
	evt := o.logger.WithLevel(zerologLevel(event.Level))
	evt = evt.Str("source", event.Source).Time("timestamp", event.Timestamp)
	for k, v := range event.Data {
		evt = evt.Interface(k, v)
	}
	evt.Msg(string(event.Type))
}

// zerologLevel maps this package's severity Level to zerolog.Level.
func zerologLevel(l Level) zerolog.Level {
	switch {
	case l <= 8:
		return zerolog.DebugLevel
	case l <= 12:
		return zerolog.InfoLevel
	case l <= 16:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
