package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/sse"
)

// LogPublisher writes each event to the structured log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e payroll.DomainEvent) error {
	msg, err := NewMessage(e)
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "Domain event",
		"event", msg.Event,
		"routing_key", msg.RoutingKey,
		"aggregate_id", msg.AggregateID,
		"data", string(msg.Data),
	)
	return nil
}

// Topics used on the SSE hub.
const TopicAllPayrolls = "payrolls"

func EmployeeTopic(employeeID string) string {
	return "employee:" + employeeID
}

// HubPublisher forwards events to SSE subscribers of the all-payrolls topic
// and of the owning employee's topic.
type HubPublisher struct {
	hub *sse.Hub
}

func NewHubPublisher(hub *sse.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, e payroll.DomainEvent) error {
	msg, err := NewMessage(e)
	if err != nil {
		return err
	}
	topics := []string{TopicAllPayrolls}
	if employeeID := employeeOf(e); employeeID != "" {
		topics = append(topics, EmployeeTopic(employeeID))
	}
	p.hub.PublishToMany(topics, sse.Event{Event: msg.Event, Data: msg})
	return nil
}

func employeeOf(e payroll.DomainEvent) string {
	switch ev := e.(type) {
	case payroll.PayrollCreated:
		return ev.EmployeeID
	case payroll.PayrollCalculated:
		return ev.EmployeeID
	case payroll.PayrollApproved:
		return ev.EmployeeID
	case payroll.PayrollProcessed:
		return ev.EmployeeID
	case payroll.PayrollPaid:
		return ev.EmployeeID
	case payroll.PayrollStatusChanged:
		return ev.EmployeeID
	case payroll.StoredEvent:
		return ev.EmployeeID()
	}
	return ""
}

// MultiPublisher publishes to every publisher and joins their errors.
type MultiPublisher []payroll.EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, e payroll.DomainEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
