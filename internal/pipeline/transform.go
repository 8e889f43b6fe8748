package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/crime-map-service/internal/domain"
)

// Message headers set on every published redraw event.
const (
	HeaderTrigger    = "trigger"
	HeaderRenderedAt = "rendered_at"
	HeaderViewID     = "view_id"
	HeaderHasData    = "has_data"
)

// EventEncoder implements Transformer as JSON keyed by month, so every redraw
// of one month lands on the same partition.
type EventEncoder struct{}

// NewEncoder creates an EventEncoder.
func NewEncoder() *EventEncoder { return &EventEncoder{} }

func (EventEncoder) Transform(_ context.Context, ev domain.RedrawEvent) (domain.OutputEvent, error) {
	if ev.ID == "" {
		return domain.OutputEvent{}, errors.New("redraw event has no id")
	}
	if ev.Month == "" {
		return domain.OutputEvent{}, fmt.Errorf("redraw event %s has no month", ev.ID)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize redraw event: %w", err)
	}
	return domain.OutputEvent{
		Key:   []byte(ev.Month),
		Value: data,
		Headers: map[string]string{
			HeaderTrigger:    string(ev.Trigger),
			HeaderRenderedAt: ev.RenderedAt.UTC().Format(time.RFC3339),
			HeaderViewID:     ev.ViewID,
			HeaderHasData:    strconv.FormatBool(ev.HasData),
		},
	}, nil
}
