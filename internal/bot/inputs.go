package bot

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"lookup-bot/internal/access"
	"lookup-bot/internal/ledger"
	"lookup-bot/internal/redeem"
	"lookup-bot/internal/settings"
	"lookup-bot/internal/state"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
)

// handleStateInput consumes one text message for a pending non-lookup
// state. Every branch clears the state before acting on the input.
func (b *Bot) handleStateInput(ctx *th.Context, message *telego.Message, st state.State) error {
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	switch st.Kind {
	case state.KindAwaitingRedeemCode:
		_ = b.States.Clear(ctx.Context(), userID)
		b.redeemInput(ctx, message, text)

	case state.KindAwaitingBroadcastConfirm:
		// Staged broadcast is resolved with buttons, keep the state.
		b.send(ctx, message.Chat.ID, "📣 A broadcast is staged. Use the Send or Cancel buttons.")

	case state.KindAwaitingGenCode:
		_ = b.States.Clear(ctx.Context(), userID)
		b.genCodeInput(ctx, message, text)

	case state.KindAwaitingBroadcastText:
		b.stageBroadcast(ctx, message, text)

	case state.KindAwaitingSettingValue:
		_ = b.States.Clear(ctx.Context(), userID)
		b.settingValueInput(ctx, message, st.Payload, text)

	case state.KindAwaitingGroupID:
		_ = b.States.Clear(ctx.Context(), userID)
		b.groupIDInput(ctx, message, text)

	case state.KindAwaitingChannel:
		_ = b.States.Clear(ctx.Context(), userID)
		b.channelInput(ctx, message, text)

	case state.KindAwaitingBanID:
		_ = b.States.Clear(ctx.Context(), userID)
		b.banInput(ctx, message, text, true)

	case state.KindAwaitingUnbanID:
		_ = b.States.Clear(ctx.Context(), userID)
		b.banInput(ctx, message, text, false)

	case state.KindAwaitingAdminID:
		_ = b.States.Clear(ctx.Context(), userID)
		b.adminIDInput(ctx, message, text)

	default:
		_ = b.States.Clear(ctx.Context(), userID)
	}
	return nil
}

func (b *Bot) redeemInput(ctx *th.Context, message *telego.Message, code string) {
	userID := message.From.ID

	if _, err := b.Ledger.GetOrCreate(userID, message.From.Username, message.From.FirstName); err != nil {
		log.Printf("Failed to get/create user %d: %v", userID, err)
		return
	}
	verdict := b.Gate.Check(ctx.Context(), access.Request{
		UserID:   userID,
		ChatID:   message.Chat.ID,
		ChatKind: chatKind(message),
	})
	if !verdict.OK {
		b.deny(ctx, message.Chat.ID, verdict)
		return
	}

	credits, err := b.Redeem.Redeem(code, userID)
	switch {
	case err == nil:
		user, _ := b.Ledger.Get(userID)
		balance := 0.0
		if user != nil {
			balance = user.Credits
		}
		b.sendKeyboard(ctx, message.Chat.ID,
			fmt.Sprintf("🎉 Code redeemed! +%.2f credits.\n💰 Balance: %.2f", credits, balance),
			backToMenuKeyboard())
	case errors.Is(err, redeem.ErrCodeNotFound):
		b.send(ctx, message.Chat.ID, "❌ Invalid or inactive code.")
	case errors.Is(err, redeem.ErrAlreadyRedeemed):
		b.send(ctx, message.Chat.ID, "⚠️ You have already redeemed this code.")
	case errors.Is(err, redeem.ErrCodeExhausted):
		b.send(ctx, message.Chat.ID, "😞 This code has reached its usage limit.")
	default:
		log.Printf("Failed to redeem %q for %d: %v", code, userID, err)
		b.send(ctx, message.Chat.ID, "❌ Redeem failed, try again later.")
	}
}

func (b *Bot) genCodeInput(ctx *th.Context, message *telego.Message, text string) {
	if !b.Settings.IsAdmin(message.From.ID) {
		return
	}
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		b.send(ctx, message.Chat.ID, "❌ Format: <credits>,<max_uses> (example: 10,5)")
		return
	}
	credits, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	maxUses, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || credits <= 0 || maxUses <= 0 {
		b.send(ctx, message.Chat.ID, "❌ Credits and max uses must be positive numbers.")
		return
	}

	code, err := b.Redeem.CreateCode(credits, maxUses)
	if err != nil {
		log.Printf("Failed to create redeem code: %v", err)
		b.send(ctx, message.Chat.ID, "❌ Failed to create the code.")
		return
	}
	b.send(ctx, message.Chat.ID, fmt.Sprintf(
		"🎁 Code created!\n\nCode: %s\nCredits: %.2f\nMax uses: %d", code.Code, code.Credits, code.MaxUses))
}

func (b *Bot) stageBroadcast(ctx *th.Context, message *telego.Message, text string) {
	userID := message.From.ID
	if !b.Settings.IsAdmin(userID) {
		_ = b.States.Clear(ctx.Context(), userID)
		return
	}
	if text == "" {
		b.send(ctx, message.Chat.ID, "❌ The broadcast text is empty, send it again.")
		return
	}
	b.setState(ctx, userID, state.KindAwaitingBroadcastConfirm, text)

	count := 0
	if targets, err := b.Broadcast.Targets(); err == nil {
		count = len(targets)
	}
	b.sendKeyboard(ctx, message.Chat.ID,
		fmt.Sprintf("📣 *Broadcast preview* (%d targets):\n\n%s", count, text),
		broadcastConfirmKeyboard())
}

func (b *Bot) settingValueInput(ctx *th.Context, message *telego.Message, key, value string) {
	if !b.Settings.IsAdmin(message.From.ID) {
		return
	}
	if err := b.Settings.Apply(key, value); err != nil {
		switch {
		case errors.Is(err, settings.ErrUnknownKey):
			b.send(ctx, message.Chat.ID, "❌ Unknown setting.")
		case errors.Is(err, settings.ErrInvalidValue):
			b.send(ctx, message.Chat.ID, fmt.Sprintf("❌ %q is not a valid value for %s.", value, key))
		default:
			log.Printf("Failed to apply setting %s=%s: %v", key, value, err)
			b.send(ctx, message.Chat.ID, "❌ Failed to save the setting.")
		}
		return
	}
	b.sendKeyboard(ctx, message.Chat.ID,
		fmt.Sprintf("✅ %s updated to %s.", key, value),
		settingsKeyboard(b.Settings.Snapshot()))
}

func (b *Bot) groupIDInput(ctx *th.Context, message *telego.Message, text string) {
	if !b.Settings.IsAdmin(message.From.ID) {
		return
	}
	groupID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		b.send(ctx, message.Chat.ID, "❌ Send a numeric chat id, for example -1001234567890.")
		return
	}
	if err := b.Settings.AddGroup(groupID, ""); err != nil {
		log.Printf("Failed to add group %d: %v", groupID, err)
		b.send(ctx, message.Chat.ID, "❌ Failed to add the group.")
		return
	}
	b.sendKeyboard(ctx, message.Chat.ID,
		fmt.Sprintf("✅ Group %d added to the allow list.", groupID),
		managementKeyboard(b.Settings.Snapshot()))
}

func (b *Bot) channelInput(ctx *th.Context, message *telego.Message, text string) {
	if !b.Settings.IsAdmin(message.From.ID) {
		return
	}
	if !strings.HasPrefix(text, "@") || len(text) < 2 {
		b.send(ctx, message.Chat.ID, "❌ Send the channel username starting with @.")
		return
	}
	if err := b.Settings.AddChannel(text); err != nil {
		log.Printf("Failed to add channel %s: %v", text, err)
		b.send(ctx, message.Chat.ID, "❌ Failed to add the channel.")
		return
	}
	b.sendKeyboard(ctx, message.Chat.ID,
		fmt.Sprintf("✅ Channel %s is now required.", text),
		requiredJoinKeyboard(b.Settings.Snapshot()))
}

func (b *Bot) banInput(ctx *th.Context, message *telego.Message, text string, ban bool) {
	if !b.Settings.IsAdmin(message.From.ID) {
		return
	}
	targetID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		b.send(ctx, message.Chat.ID, "❌ Send a numeric telegram id.")
		return
	}
	if err := b.Ledger.SetBanned(targetID, ban); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			b.send(ctx, message.Chat.ID, "❌ No such user.")
			return
		}
		log.Printf("Failed to set ban=%v for %d: %v", ban, targetID, err)
		b.send(ctx, message.Chat.ID, "❌ Update failed.")
		return
	}
	if ban {
		b.send(ctx, message.Chat.ID, fmt.Sprintf("🚫 User %d banned.", targetID))
	} else {
		b.send(ctx, message.Chat.ID, fmt.Sprintf("✅ User %d unbanned.", targetID))
	}
}

func (b *Bot) adminIDInput(ctx *th.Context, message *telego.Message, text string) {
	if !b.Settings.IsAdmin(message.From.ID) {
		return
	}
	targetID, err := strconv.ParseInt(strings.TrimPrefix(text, ".userid"), 10, 64)
	if err != nil {
		b.send(ctx, message.Chat.ID, "❌ Send a numeric telegram id.")
		return
	}
	if err := b.Ledger.SetAdmin(targetID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		log.Printf("Failed to persist admin flag for %d: %v", targetID, err)
		b.send(ctx, message.Chat.ID, "❌ Update failed.")
		return
	}
	b.Settings.AddAdmin(targetID)
	b.send(ctx, message.Chat.ID, fmt.Sprintf("👑 User %d is now an admin.", targetID))
}
