// Package access composes every admission check that runs before a
// credit-consuming action. The gate is a pure decision: it reads, never
// mutates, and short-circuits on the first failed check so the caller
// can show the exact unmet condition.
package access

import (
	"context"

	"lookup-bot/internal/ledger"
	"lookup-bot/internal/settings"
)

type Reason int

const (
	ReasonNone Reason = iota
	ReasonInactive
	ReasonMaintenance
	ReasonLocked
	ReasonBanned
	ReasonInsufficientFunds
	ReasonUnauthorizedGroup
	ReasonGroupSearchesOff
	ReasonQuotaExceeded
	ReasonMembershipRequired
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "ok"
	case ReasonInactive:
		return "bot inactive"
	case ReasonMaintenance:
		return "maintenance mode"
	case ReasonLocked:
		return "bot locked"
	case ReasonBanned:
		return "banned"
	case ReasonInsufficientFunds:
		return "insufficient funds"
	case ReasonUnauthorizedGroup:
		return "unauthorized group"
	case ReasonGroupSearchesOff:
		return "group searches disabled"
	case ReasonQuotaExceeded:
		return "daily quota exceeded"
	case ReasonMembershipRequired:
		return "channel membership required"
	}
	return "denied"
}

type ChatKind int

const (
	ChatPrivate ChatKind = iota
	ChatGroup
)

type Request struct {
	UserID   int64
	ChatID   int64
	ChatKind ChatKind
	// Cost of the action in credits; checked against balance for
	// private chats only.
	Cost float64
}

type Verdict struct {
	OK     bool
	Reason Reason
}

func deny(r Reason) Verdict {
	return Verdict{Reason: r}
}

func allow() Verdict {
	return Verdict{OK: true, Reason: ReasonNone}
}

// MembershipChecker answers whether a user belongs to a required
// channel; implemented by the chat transport.
type MembershipChecker interface {
	IsMember(ctx context.Context, channel string, userID int64) (bool, error)
}

type Gate struct {
	settings   *settings.Settings
	ledger     *ledger.Ledger
	membership MembershipChecker
}

func NewGate(cfg *settings.Settings, l *ledger.Ledger, m MembershipChecker) *Gate {
	return &Gate{settings: cfg, ledger: l, membership: m}
}

// Check evaluates every admission rule in order: global active flag,
// maintenance mode (admins bypass), lock flag (admins bypass), ban
// flag, then per-chat-kind resource checks, then required-channel
// membership.
func (g *Gate) Check(ctx context.Context, req Request) Verdict {
	v := g.settings.Snapshot()
	isAdmin := g.settings.IsAdmin(req.UserID)

	if !v.BotActive {
		return deny(ReasonInactive)
	}
	if v.MaintenanceMode && !isAdmin {
		return deny(ReasonMaintenance)
	}
	if v.BotLocked && !isAdmin {
		return deny(ReasonLocked)
	}

	user, err := g.ledger.Get(req.UserID)
	if err != nil {
		// Unknown account: fall through on flags, fail balance later.
		user = nil
	}
	if user != nil && user.IsBanned {
		return deny(ReasonBanned)
	}

	switch req.ChatKind {
	case ChatPrivate:
		if user == nil || user.Credits < req.Cost {
			return deny(ReasonInsufficientFunds)
		}
	case ChatGroup:
		if !containsID(v.AllowedGroups, req.ChatID) {
			return deny(ReasonUnauthorizedGroup)
		}
		if v.GroupSearchesOff {
			return deny(ReasonGroupSearchesOff)
		}
		if user == nil || user.DailySearches >= v.DailyFreeSearches {
			return deny(ReasonQuotaExceeded)
		}
	}

	for _, channel := range v.RequiredChannels {
		ok, err := g.membership.IsMember(ctx, channel, req.UserID)
		if err != nil || !ok {
			return deny(ReasonMembershipRequired)
		}
	}

	return allow()
}

func containsID(ids []int64, target int64) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
