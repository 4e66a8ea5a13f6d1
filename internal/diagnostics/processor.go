package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Processor turns stream entries back into events and logs them.
type Processor struct {
	logger zerolog.Logger
	seen   map[string]int
}

func NewProcessor(logger zerolog.Logger) *Processor {
	return &Processor{
		logger: logger,
		seen:   make(map[string]int),
	}
}

func (p *Processor) Handle(_ context.Context, msg redis.XMessage) error {
	e, err := decode(msg.Values)
	if err != nil {
		return fmt.Errorf("decode %s: %w", msg.ID, err)
	}

	p.seen[e.Kind]++

	p.logger.Warn().
		Str("message_id", msg.ID).
		Str("session", e.Session).
		Str("kind", e.Kind).
		Str("cause", e.Cause).
		Time("at", e.At).
		Int("kind_total", p.seen[e.Kind]).
		Msg("generation failure")
	return nil
}

// Counts returns how many failures of each kind have been handled.
func (p *Processor) Counts() map[string]int {
	out := make(map[string]int, len(p.seen))
	for k, v := range p.seen {
		out[k] = v
	}
	return out
}

func decode(values map[string]interface{}) (Event, error) {
	str := func(key string) string {
		if v, ok := values[key].(string); ok {
			return v
		}
		return ""
	}

	e := Event{
		Session: str("session"),
		Kind:    str("kind"),
		Cause:   str("cause"),
	}
	if e.Kind == "" {
		return Event{}, fmt.Errorf("missing kind")
	}
	if at := str("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return Event{}, fmt.Errorf("parse at: %w", err)
		}
		e.At = parsed
	}
	return e, nil
}
