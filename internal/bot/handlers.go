package bot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lookup-bot/internal/access"
	"lookup-bot/internal/ledger"
	"lookup-bot/internal/lookup"
	"lookup-bot/internal/models"
	"lookup-bot/internal/state"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

func isPrivate(message *telego.Message) bool {
	return message.Chat.Type == telego.ChatTypePrivate
}

func chatKind(message *telego.Message) access.ChatKind {
	if isPrivate(message) {
		return access.ChatPrivate
	}
	return access.ChatGroup
}

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	message := update.Message
	userID := message.From.ID

	user, err := b.Ledger.GetOrCreate(userID, message.From.Username, message.From.FirstName)
	if err != nil {
		log.Printf("Failed to get/create user %d: %v", userID, err)
		return nil
	}
	if _, err := b.Ledger.ResetDailyQuotaIfNeeded(userID); err != nil {
		log.Printf("Failed to reset daily quota for %d: %v", userID, err)
	}

	if !isPrivate(message) {
		v := b.Settings.Snapshot()
		for _, id := range v.AllowedGroups {
			if id == message.Chat.ID {
				b.send(ctx, message.Chat.ID, "👋 This group is authorized. Send a 10-digit phone number, .RC number or email to search.")
				return nil
			}
		}
		b.send(ctx, message.Chat.ID, "⛔ This group is not authorized to use the bot.")
		return nil
	}

	verdict := b.Gate.Check(ctx.Context(), access.Request{
		UserID:   userID,
		ChatID:   message.Chat.ID,
		ChatKind: access.ChatPrivate,
	})
	if !verdict.OK {
		b.deny(ctx, message.Chat.ID, verdict)
		return nil
	}

	// Referral argument: /start <code>
	if parts := strings.Split(message.Text, " "); len(parts) > 1 {
		b.processReferral(ctx, userID, strings.TrimSpace(parts[1]))
	}

	v := b.Settings.Snapshot()
	if fresh, err := b.Ledger.Get(userID); err == nil {
		user = fresh
	}
	text := fmt.Sprintf(
		"👋 Welcome, %s!\n\n"+
			"💰 Credits: %.2f\n"+
			"🆓 Free group searches today: %d of %d used\n\n"+
			"Pick an option below to get started.",
		message.From.FirstName, user.Credits, user.DailySearches, v.DailyFreeSearches,
	)
	b.sendKeyboard(ctx, message.Chat.ID, text, mainMenuKeyboard())
	return nil
}

func (b *Bot) processReferral(ctx *th.Context, userID int64, code string) {
	if code == "" {
		return
	}
	inviter, err := b.Ledger.FindByReferralCode(code)
	if err != nil {
		return
	}
	awarded, err := b.Ledger.AwardReferral(userID, inviter.TelegramID)
	if err != nil {
		log.Printf("Failed to award referral %s for %d: %v", code, userID, err)
		return
	}
	if awarded {
		v := b.Settings.Snapshot()
		b.send(ctx, inviter.TelegramID, fmt.Sprintf("🎉 A friend joined with your link! +%.2f credits.", v.ReferralBonus))
	}
}

func (b *Bot) handleHelp(ctx *th.Context, update telego.Update) error {
	message := update.Message
	b.send(ctx, message.Chat.ID,
		"🔍 How to search:\n\n"+
			"📱 Phone: send a 10-digit number\n"+
			"🚗 Vehicle: send .RCNUMBER (dot prefix)\n"+
			"📧 Email: send the address\n\n"+
			"Private searches cost credits, group searches use your daily free quota.\n"+
			"Use /start to open the menu.")
	return nil
}

func (b *Bot) handleAdmin(ctx *th.Context, update telego.Update) error {
	message := update.Message
	userID := message.From.ID
	if !isPrivate(message) {
		return nil
	}
	if !b.Settings.IsAdmin(userID) {
		b.send(ctx, message.Chat.ID, "⛔ You are not authorized.")
		return nil
	}

	password := ""
	if parts := strings.SplitN(message.Text, " ", 2); len(parts) > 1 {
		password = strings.TrimSpace(parts[1])
	}
	if b.AdminPassword == "" || password != b.AdminPassword {
		b.send(ctx, message.Chat.ID, "🔑 Invalid password. Usage: /admin <password>")
		return nil
	}

	if err := b.Ledger.SetAdmin(userID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		log.Printf("Failed to persist admin flag for %d: %v", userID, err)
	}
	b.Settings.AddAdmin(userID)
	b.sendKeyboard(ctx, message.Chat.ID, "👑 *Admin Panel*", adminPanelKeyboard())
	return nil
}

func (b *Bot) handleText(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil || strings.HasPrefix(message.Text, "/") {
		return nil
	}
	userID := message.From.ID

	st, err := b.States.Get(ctx.Context(), userID)
	if err != nil {
		log.Printf("Failed to load state for %d: %v", userID, err)
		st = state.None()
	}

	shape, query := classify(message.Text)
	res := resolve(isPrivate(message), st, shape)

	switch res {
	case resIgnore:
		return nil
	case resState:
		return b.handleStateInput(ctx, message, st)
	}

	kind := lookupKind(res)
	if query == "" || shape == shapeNone {
		// State-driven lookup consumes the raw text as the query.
		query = strings.TrimSpace(message.Text)
		if kind == models.SearchKindVehicle {
			query = strings.ToUpper(strings.TrimPrefix(query, "."))
		}
	}
	if !st.IsNone() {
		_ = b.States.Clear(ctx.Context(), userID)
	}
	b.runLookup(ctx, message, kind, query)
	return nil
}

func (b *Bot) runLookup(ctx *th.Context, message *telego.Message, kind, query string) {
	userID := message.From.ID

	if _, err := b.Ledger.GetOrCreate(userID, message.From.Username, message.From.FirstName); err != nil {
		log.Printf("Failed to get/create user %d: %v", userID, err)
		return
	}
	if _, err := b.Ledger.ResetDailyQuotaIfNeeded(userID); err != nil {
		log.Printf("Failed to reset daily quota for %d: %v", userID, err)
	}

	v := b.Settings.Snapshot()
	verdict := b.Gate.Check(ctx.Context(), access.Request{
		UserID:   userID,
		ChatID:   message.Chat.ID,
		ChatKind: chatKind(message),
		Cost:     v.PrivateSearchCost,
	})
	if !verdict.OK {
		b.deny(ctx, message.Chat.ID, verdict)
		return
	}

	provider := b.provider(kind)
	if provider == nil {
		b.send(ctx, message.Chat.ID, "❌ This search type is not available right now.")
		return
	}

	b.send(ctx, message.Chat.ID, "🔍 Searching, please wait...")

	payload, err := provider.Fetch(ctx.Context(), query)
	if err != nil {
		log.Printf("Lookup %s %q failed: %v", kind, query, err)
		b.send(ctx, message.Chat.ID, "❌ No data found or the data source is unavailable. You were not charged.")
		return
	}

	// Charge only after a successful fetch.
	footer := ""
	if isPrivate(message) {
		balance, err := b.Ledger.DebitForSearch(userID, v.PrivateSearchCost, query, kind)
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				b.deny(ctx, message.Chat.ID, access.Verdict{Reason: access.ReasonInsufficientFunds})
				return
			}
			log.Printf("Failed to charge user %d: %v", userID, err)
			return
		}
		footer = fmt.Sprintf("💰 Charged %.2f credits. Balance: %.2f", v.PrivateSearchCost, balance)
	} else {
		if err := b.Ledger.IncrementGroupUsage(userID, query, kind); err != nil {
			log.Printf("Failed to count group search for %d: %v", userID, err)
		}
		user, _ := b.Ledger.Get(userID)
		if user != nil {
			footer = fmt.Sprintf("🆓 Free searches used today: %d of %d", user.DailySearches, v.DailyFreeSearches)
		}
	}

	report := renderReport(kind, query, payload, b.Settings.Location())
	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), report+"\n\n"+footer))

	if v.LogChannelID != 0 {
		logLine := fmt.Sprintf("🔍 %s search by %d (@%s): %s", kind, userID, message.From.Username, query)
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(v.LogChannelID), logLine))
	}
}

func (b *Bot) provider(kind string) lookup.Provider {
	switch kind {
	case models.SearchKindPhone:
		return b.Providers.Phone
	case models.SearchKindVehicle:
		return b.Providers.Vehicle
	case models.SearchKindEmail:
		return b.Providers.Email
	}
	return nil
}

func renderReport(kind, query string, payload []byte, loc *time.Location) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err != nil {
		pretty.Write(payload)
	}

	title := "Search"
	switch kind {
	case models.SearchKindPhone:
		title = "📱 Phone Report"
	case models.SearchKindVehicle:
		title = "🚗 Vehicle Report"
	case models.SearchKindEmail:
		title = "📧 Email Report"
	}

	return fmt.Sprintf("%s\n🔍 Query: %s\n\n%s\n\n🕐 Generated: %s",
		title, query, pretty.String(), time.Now().In(loc).Format("2006-01-02 15:04:05"))
}

func (b *Bot) deny(ctx *th.Context, chatID int64, verdict access.Verdict) {
	switch verdict.Reason {
	case access.ReasonInactive:
		b.send(ctx, chatID, "😴 The bot is currently switched off.")
	case access.ReasonMaintenance:
		b.send(ctx, chatID, "🔧 The bot is under maintenance. Please try again later.")
	case access.ReasonLocked:
		b.send(ctx, chatID, "🔒 The bot is locked by the admin.")
	case access.ReasonBanned:
		b.send(ctx, chatID, "🚫 You are banned from using this bot.")
	case access.ReasonInsufficientFunds:
		v := b.Settings.Snapshot()
		b.sendKeyboard(ctx, chatID,
			fmt.Sprintf("💸 Not enough credits. Each private search costs %.2f.\n\nEarn more by referring friends or redeeming a code.", v.PrivateSearchCost),
			mainMenuKeyboard())
	case access.ReasonUnauthorizedGroup:
		b.send(ctx, chatID, "⛔ This group is not authorized to use the bot.")
	case access.ReasonGroupSearchesOff:
		b.send(ctx, chatID, "⛔ Group searches are currently disabled.")
	case access.ReasonQuotaExceeded:
		v := b.Settings.Snapshot()
		b.send(ctx, chatID, fmt.Sprintf("⏳ Daily limit reached (%d free group searches). Try again tomorrow or search privately with credits.", v.DailyFreeSearches))
	case access.ReasonMembershipRequired:
		b.sendJoinPrompt(ctx, chatID)
	default:
		b.send(ctx, chatID, "⛔ Access denied.")
	}
}

func (b *Bot) sendJoinPrompt(ctx *th.Context, chatID int64) {
	v := b.Settings.Snapshot()
	b.sendKeyboard(ctx, chatID,
		"📢 You must join our channel(s) to use the bot.\n\nJoin below, then press *I Joined*.",
		joinKeyboard(v))
}
