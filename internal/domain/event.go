package domain

import "time"

// Trigger names what caused a redraw.
type Trigger string

const (
	TriggerInitial     Trigger = "initial"
	TriggerMonthChange Trigger = "month_change"
	TriggerRedraw      Trigger = "redraw"
)

// RedrawEvent summarizes one redraw of the map for downstream consumers.
// It carries counts only, never shape geometry.
type RedrawEvent struct {
	ID                string    `json:"id"`
	ViewID            string    `json:"view_id"`
	Trigger           Trigger   `json:"trigger"`
	Month             string    `json:"month"`
	HasData           bool      `json:"has_data"`
	DomainMax         int       `json:"domain_max"`
	Features          int       `json:"features"`
	DistrictsWithData int       `json:"districts_with_data"`
	RenderedAt        time.Time `json:"rendered_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
