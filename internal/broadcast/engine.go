// Package broadcast fans a staged admin message out to every user,
// allow-listed group and required channel. Sends are isolated: one
// failed target is counted and logged, the loop moves on.
package broadcast

import (
	"context"
	"log"
	"time"

	"lookup-bot/internal/ledger"
	"lookup-bot/internal/settings"
)

// Target is one delivery destination: either a numeric chat id or a
// channel username.
type Target struct {
	ChatID   int64
	Username string
}

// Sender delivers a single message; implemented by the chat transport.
type Sender interface {
	SendText(ctx context.Context, target Target, text string) error
}

type Result struct {
	Sent   int
	Failed int
	Total  int
}

type Engine struct {
	ledger   *ledger.Ledger
	settings *settings.Settings
	// delay between sends bounds the outbound rate
	delay time.Duration
}

func New(l *ledger.Ledger, cfg *settings.Settings) *Engine {
	return &Engine{ledger: l, settings: cfg, delay: 100 * time.Millisecond}
}

// Targets resolves the full delivery set: all user ids, then allowed
// groups, then required channels.
func (e *Engine) Targets() ([]Target, error) {
	ids, err := e.ledger.AllUserIDs()
	if err != nil {
		return nil, err
	}
	v := e.settings.Snapshot()
	targets := make([]Target, 0, len(ids)+len(v.AllowedGroups)+len(v.RequiredChannels))
	for _, id := range ids {
		targets = append(targets, Target{ChatID: id})
	}
	for _, id := range v.AllowedGroups {
		targets = append(targets, Target{ChatID: id})
	}
	for _, ch := range v.RequiredChannels {
		targets = append(targets, Target{Username: ch})
	}
	return targets, nil
}

// Send fans text out to targets. Failed targets are never retried; the
// context is checked between targets only, a send in flight completes.
func (e *Engine) Send(ctx context.Context, sender Sender, targets []Target, text string) Result {
	res := Result{Total: len(targets)}
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			log.Printf("Broadcast cancelled after %d of %d targets", i, len(targets))
			res.Failed += len(targets) - i
			return res
		}
		if err := sender.SendText(ctx, target, text); err != nil {
			log.Printf("Failed to send broadcast to %+v: %v", target, err)
			res.Failed++
		} else {
			res.Sent++
		}
		if e.delay > 0 && i < len(targets)-1 {
			time.Sleep(e.delay)
		}
	}
	return res
}
