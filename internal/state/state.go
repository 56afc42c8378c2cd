// Package state tracks what input the bot expects next from each user.
// A user holds at most one state: setting a new one replaces the old,
// and consuming input clears it.
package state

import "context"

type Kind string

const (
	KindNone                  Kind = ""
	KindAwaitingPhone         Kind = "awaiting_phone"
	KindAwaitingVehicle       Kind = "awaiting_vehicle"
	KindAwaitingEmail         Kind = "awaiting_email"
	KindAwaitingRedeemCode    Kind = "awaiting_redeem_code"
	KindAwaitingGenCode       Kind = "awaiting_gen_code"
	KindAwaitingBroadcastText Kind = "awaiting_broadcast_text"
	// Payload carries the staged broadcast text.
	KindAwaitingBroadcastConfirm Kind = "awaiting_broadcast_confirm"
	// Payload carries the setting key being edited.
	KindAwaitingSettingValue Kind = "awaiting_setting_value"
	KindAwaitingGroupID      Kind = "awaiting_group_id"
	KindAwaitingChannel      Kind = "awaiting_channel"
	KindAwaitingBanID        Kind = "awaiting_ban_id"
	KindAwaitingUnbanID      Kind = "awaiting_unban_id"
	KindAwaitingAdminID      Kind = "awaiting_admin_id"
)

// State is the expected-next-input marker. Payload is only meaningful
// for the kinds documented above and empty otherwise.
type State struct {
	Kind    Kind   `json:"kind"`
	Payload string `json:"payload,omitempty"`
}

func None() State {
	return State{Kind: KindNone}
}

func (s State) IsNone() bool {
	return s.Kind == KindNone
}

// Store is the per-user conversation state store. Set always replaces
// any prior state; Get returns None for users with no state.
type Store interface {
	Set(ctx context.Context, userID int64, s State) error
	Get(ctx context.Context, userID int64) (State, error)
	Clear(ctx context.Context, userID int64) error
}
