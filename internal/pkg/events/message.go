package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

const routingPrefix = "event.payroll-manager.payroll."

// Message is the wire envelope shared by every publisher.
type Message struct {
	Event       string          `json:"event"`
	RoutingKey  string          `json:"routing_key"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

func NewMessage(e payroll.DomainEvent) (Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s: %w", e.EventName(), err)
	}
	return Message{
		Event:       e.EventName(),
		RoutingKey:  RoutingKey(e.EventName()),
		AggregateID: e.AggregateID(),
		OccurredAt:  e.OccurredAt().UTC(),
		Data:        data,
	}, nil
}

// RoutingKey maps PayrollStatusChanged to event.payroll-manager.payroll.payroll-status-changed.
func RoutingKey(eventName string) string {
	return routingPrefix + kebab(eventName)
}

func kebab(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
