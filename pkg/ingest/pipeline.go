// Package ingest implements the message path: validate, durably persist,
// then attempt best-effort live delivery to the recipient's transport.
package ingest

import (
	"context"
	"fmt"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/registry"
	"chatrelay/pkg/store"
	"chatrelay/pkg/telemetry"
	"chatrelay/pkg/validation"
)

// PersistenceError wraps a store failure. The send did not happen; the
// caller may retry.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Pipeline validates send requests, persists them and pushes live delivery
// frames. Persistence success alone determines the result reported to the
// sender; live delivery is a side event.
type Pipeline struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Pipeline {
	return &Pipeline{reg: reg}
}

// Ingest processes one send request. The record is durably appended before
// any delivery attempt; a message observed via a live frame is therefore
// always retrievable through the history read path from that instant on.
//
// Returns *validation.Error when the request is rejected (no side effects)
// and *PersistenceError when the store refuses the append (no delivery
// attempt). A recipient that is offline, or whose transport closes between
// lookup and send, is not an error: the message stays persisted and is
// picked up by the next history fetch.
func (p *Pipeline) Ingest(ctx context.Context, sender, receiver, content string) (models.Message, error) {
	if err := validation.ValidateSend(sender, receiver, content); err != nil {
		return models.Message{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}

	m, err := store.AppendMessage(content, sender, receiver)
	if err != nil {
		return models.Message{}, &PersistenceError{Err: err}
	}
	telemetry.MessagesIngested.Inc()

	t, ok := p.reg.Lookup(receiver)
	if !ok {
		telemetry.DeliveryAttempts.WithLabelValues("offline").Inc()
		logger.Debug("delivery_skipped_offline", "id", m.ID, "receiver", receiver)
		return m, nil
	}
	if err := t.TrySend(models.NewDeliveryFrame(m)); err != nil {
		// transport closed or saturated between lookup and send; the
		// record is persisted and history covers the recipient
		telemetry.DeliveryAttempts.WithLabelValues("miss").Inc()
		logger.Debug("delivery_miss", "id", m.ID, "receiver", receiver, "error", err)
		return m, nil
	}
	telemetry.DeliveryAttempts.WithLabelValues("delivered").Inc()
	logger.Debug("delivery_pushed", "id", m.ID, "receiver", receiver)
	return m, nil
}
