package publisher

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct {
	log logrus.FieldLogger
}

func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, msg domain.OutboxMessage) error {
	p.log.WithFields(logrus.Fields{
		"event":   msg.Name,
		"id":      msg.ID,
		"payload": string(msg.Payload),
	}).Info("Event published")

	return nil
}
