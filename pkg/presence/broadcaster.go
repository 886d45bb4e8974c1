// Package presence pushes the current online set to every live transport
// whenever the registry changes.
package presence

import (
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/registry"
	"chatrelay/pkg/telemetry"
)

type Broadcaster struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Broadcaster {
	return &Broadcaster{reg: reg}
}

// Broadcast sends a users_list frame carrying the current online set to
// every live transport. A transport that cannot accept the frame (bounded
// queue full, or already closed) is treated as dead: it is closed, its
// registry entry removed, and the resulting smaller set broadcast again.
// Sends never block, so one stalled client cannot delay the others.
func (b *Broadcaster) Broadcast() {
	for {
		users := b.reg.Snapshot()
		frame := models.NewPresenceFrame(users)
		telemetry.PresenceBroadcasts.Inc()

		// independent snapshot of transports at send time; delivery
		// iterates connections, not the user-id list
		var dead []registry.Conn
		for _, c := range b.reg.Connections() {
			if err := c.Transport.TrySend(frame); err != nil {
				logger.Warn("presence_send_failed", "actor", c.Actor, "error", err)
				dead = append(dead, c)
			}
		}
		if len(dead) == 0 {
			return
		}
		for _, c := range dead {
			_ = c.Transport.Close()
			b.reg.Unregister(c.Actor, c.Transport)
		}
		// registry shrank; rebroadcast the updated set
	}
}
