package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"lookup-bot/internal/state"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

// requireAdmin answers the callback with an alert and returns false for
// non-admin users.
func (b *Bot) requireAdmin(ctx *th.Context, callback *telego.CallbackQuery) bool {
	if b.Settings.IsAdmin(callback.From.ID) {
		return true
	}
	b.answerAlert(ctx, callback.ID, "⛔ Admins only")
	return false
}

func (b *Bot) setState(ctx *th.Context, userID int64, kind state.Kind, payload string) {
	if err := b.States.Set(ctx.Context(), userID, state.State{Kind: kind, Payload: payload}); err != nil {
		log.Printf("Failed to set state for %d: %v", userID, err)
	}
}

func (b *Bot) cbVerifyMembership(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	v := b.Settings.Snapshot()

	for _, channel := range v.RequiredChannels {
		ok, err := b.IsMember(ctx.Context(), channel, userID)
		if err != nil || !ok {
			b.answerAlert(ctx, callback.ID, "❌ You have not joined all channels yet.")
			return nil
		}
	}

	b.answer(ctx, callback.ID)
	b.sendKeyboard(ctx, userID, "✅ Membership verified! Welcome.", mainMenuKeyboard())
	return nil
}

func (b *Bot) cbMainMenu(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	_ = b.States.Clear(ctx.Context(), userID)
	b.answer(ctx, callback.ID)

	user, err := b.Ledger.Get(userID)
	if err != nil {
		b.send(ctx, userID, "Use /start first.")
		return nil
	}
	v := b.Settings.Snapshot()
	text := fmt.Sprintf("🏠 *Main Menu*\n\n💰 Credits: %.2f\n🆓 Free group searches today: %d of %d used",
		user.Credits, user.DailySearches, v.DailyFreeSearches)
	b.sendKeyboard(ctx, userID, text, mainMenuKeyboard())
	return nil
}

func (b *Bot) cbStartLookup(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	b.answer(ctx, callback.ID)
	b.sendKeyboard(ctx, callback.From.ID, "🔍 *Choose a search type:*", lookupMenuKeyboard())
	return nil
}

func (b *Bot) cbLookupPhone(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	b.setState(ctx, callback.From.ID, state.KindAwaitingPhone, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "📱 Send the 10-digit phone number:")
	return nil
}

func (b *Bot) cbLookupVehicle(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	b.setState(ctx, callback.From.ID, state.KindAwaitingVehicle, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "🚗 Send the vehicle registration number:")
	return nil
}

func (b *Bot) cbLookupEmail(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	b.setState(ctx, callback.From.ID, state.KindAwaitingEmail, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "📧 Send the email address:")
	return nil
}

func (b *Bot) cbMyCredits(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	b.answer(ctx, callback.ID)

	user, err := b.Ledger.Get(userID)
	if err != nil {
		b.send(ctx, userID, "Use /start first.")
		return nil
	}
	v := b.Settings.Snapshot()
	text := fmt.Sprintf(
		"💰 *Your Credits*\n\n"+
			"Balance: %.2f\n"+
			"Private search cost: %.2f\n"+
			"Free group searches today: %d of %d used\n\n"+
			"Earn more: refer friends (+%.2f each) or redeem a code.",
		user.Credits, v.PrivateSearchCost, user.DailySearches, v.DailyFreeSearches, v.ReferralBonus)
	b.sendKeyboard(ctx, userID, text, backToMenuKeyboard())
	return nil
}

func (b *Bot) cbRedeemCode(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	b.setState(ctx, callback.From.ID, state.KindAwaitingRedeemCode, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "🎁 Send the redeem code:")
	return nil
}

func (b *Bot) cbReferFriends(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	b.answer(ctx, callback.ID)

	user, err := b.Ledger.Get(userID)
	if err != nil {
		b.send(ctx, userID, "Use /start first.")
		return nil
	}
	v := b.Settings.Snapshot()
	link := fmt.Sprintf("https://t.me/%s?start=%s", b.username, user.ReferralCode)
	text := fmt.Sprintf(
		"👥 *Refer Friends*\n\n"+
			"Your link:\n%s\n\n"+
			"You earn %.2f credits for every friend who joins.\n"+
			"Referrals so far: %d",
		link, v.ReferralBonus, user.ReferralCount)
	b.sendKeyboard(ctx, userID, text, backToMenuKeyboard())
	return nil
}

func (b *Bot) cbMyStats(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	b.answer(ctx, callback.ID)

	user, err := b.Ledger.Get(userID)
	if err != nil {
		b.send(ctx, userID, "Use /start first.")
		return nil
	}
	counts, err := b.Ledger.SearchCounts(userID)
	if err != nil {
		log.Printf("Failed to load search counts for %d: %v", userID, err)
		counts = map[string]int64{}
	}
	text := fmt.Sprintf(
		"📊 *Your Stats*\n\n"+
			"Total searches: %d\n"+
			"📱 Phone: %d\n🚗 Vehicle: %d\n📧 Email: %d\n\n"+
			"Referrals: %d\nMember since: %s",
		user.TotalSearches,
		counts["phone"], counts["vehicle"], counts["email"],
		user.ReferralCount,
		user.JoinedAt.In(b.Settings.Location()).Format("2006-01-02"))
	b.sendKeyboard(ctx, userID, text, backToMenuKeyboard())
	return nil
}

func (b *Bot) cbHowItWorks(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	b.answer(ctx, callback.ID)
	v := b.Settings.Snapshot()
	text := fmt.Sprintf(
		"❓ *How It Works*\n\n"+
			"🔍 Search phone numbers, vehicles and emails.\n\n"+
			"💰 Private searches cost %.2f credits each.\n"+
			"🆓 Group searches are free, %d per day.\n\n"+
			"Earn credits:\n"+
			"• %.2f for joining\n"+
			"• %.2f per referred friend\n"+
			"• redeem codes from the admin",
		v.PrivateSearchCost, v.DailyFreeSearches, v.JoiningBonus, v.ReferralBonus)
	b.sendKeyboard(ctx, callback.From.ID, text, backToMenuKeyboard())
	return nil
}

func (b *Bot) cbCloseMenu(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	b.answer(ctx, callback.ID)
	if msg := callback.Message; msg != nil {
		_ = ctx.Bot().DeleteMessage(ctx.Context(), &telego.DeleteMessageParams{
			ChatID:    tu.ID(msg.GetChat().ID),
			MessageID: msg.GetMessageID(),
		})
	}
	return nil
}

func (b *Bot) cbAdminPanel(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	_ = b.States.Clear(ctx.Context(), callback.From.ID)
	b.answer(ctx, callback.ID)
	b.sendKeyboard(ctx, callback.From.ID, "👑 *Admin Panel*", adminPanelKeyboard())
	return nil
}

func (b *Bot) cbAdminSettings(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.answer(ctx, callback.ID)
	b.sendKeyboard(ctx, callback.From.ID, "⚙️ *Settings*\n\nTap a value to edit it, or toggle the switches.",
		settingsKeyboard(b.Settings.Snapshot()))
	return nil
}

func (b *Bot) cbAdminStats(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.answer(ctx, callback.ID)

	stats, err := b.Ledger.CollectStats()
	if err != nil {
		log.Printf("Failed to collect stats: %v", err)
		b.send(ctx, callback.From.ID, "❌ Failed to collect statistics.")
		return nil
	}
	text := fmt.Sprintf(
		"📊 *Bot Statistics*\n\n"+
			"👥 Users: %d (verified: %d, admins: %d)\n"+
			"🚫 Banned: %d\n"+
			"🔍 Total searches: %d\n"+
			"🤝 Referrals: %d\n"+
			"🎁 Active codes: %d | redeemed: %d\n"+
			"💰 Credits in circulation: %.2f",
		stats.TotalUsers, stats.VerifiedUsers, stats.AdminUsers,
		stats.BannedUsers,
		stats.TotalSearches,
		stats.TotalReferrals,
		stats.ActiveCodes, stats.TotalRedeemed,
		stats.TotalCredits)
	b.sendKeyboard(ctx, callback.From.ID, text, adminPanelKeyboard())
	return nil
}

func (b *Bot) cbAdminGenCode(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.setState(ctx, callback.From.ID, state.KindAwaitingGenCode, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "🎁 Send: <credits>,<max_uses>\nExample: 10,5")
	return nil
}

func (b *Bot) cbAdminBroadcast(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.setState(ctx, callback.From.ID, state.KindAwaitingBroadcastText, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "📣 Send the broadcast message text:")
	return nil
}

func (b *Bot) cbBroadcastConfirm(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	userID := callback.From.ID

	st, err := b.States.Get(ctx.Context(), userID)
	if err != nil || st.Kind != state.KindAwaitingBroadcastConfirm || st.Payload == "" {
		b.answerAlert(ctx, callback.ID, "❌ No broadcast staged.")
		return nil
	}
	_ = b.States.Clear(ctx.Context(), userID)
	b.answer(ctx, callback.ID)

	targets, err := b.Broadcast.Targets()
	if err != nil {
		log.Printf("Failed to resolve broadcast targets: %v", err)
		b.send(ctx, userID, "❌ Failed to resolve broadcast targets.")
		return nil
	}
	b.send(ctx, userID, fmt.Sprintf("📣 Broadcasting to %d targets...", len(targets)))

	res := b.Broadcast.Send(ctx.Context(), b, targets, st.Payload)
	b.send(ctx, userID, fmt.Sprintf("✅ Broadcast done.\nSent: %d\nFailed: %d\nTotal: %d", res.Sent, res.Failed, res.Total))
	return nil
}

func (b *Bot) cbTopReferrers(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.answer(ctx, callback.ID)

	top, err := b.Ledger.TopReferrers(10)
	if err != nil {
		log.Printf("Failed to load top referrers: %v", err)
		return nil
	}
	var sb strings.Builder
	sb.WriteString("🏆 *Top Referrers*\n\n")
	if len(top) == 0 {
		sb.WriteString("Nobody has referred anyone yet.")
	}
	for i, u := range top {
		name := u.Username
		if name == "" {
			name = strconv.FormatInt(u.TelegramID, 10)
		}
		sb.WriteString(fmt.Sprintf("%d. %s: %d referrals\n", i+1, name, u.ReferralCount))
	}
	b.sendKeyboard(ctx, callback.From.ID, sb.String(), adminPanelKeyboard())
	return nil
}

func (b *Bot) cbBanMenu(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.answer(ctx, callback.ID)
	b.sendKeyboard(ctx, callback.From.ID, "🚫 *Ban Management*", banMenuKeyboard())
	return nil
}

func (b *Bot) cbBanUser(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.setState(ctx, callback.From.ID, state.KindAwaitingBanID, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "🚫 Send the telegram id of the user to ban:")
	return nil
}

func (b *Bot) cbUnbanUser(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.setState(ctx, callback.From.ID, state.KindAwaitingUnbanID, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "✅ Send the telegram id of the user to unban:")
	return nil
}

func (b *Bot) cbManagementPanel(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.answer(ctx, callback.ID)
	b.sendKeyboard(ctx, callback.From.ID, "🛠 *Management*\n\nAllowed groups and bot admins.",
		managementKeyboard(b.Settings.Snapshot()))
	return nil
}

func (b *Bot) cbRequiredJoin(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.answer(ctx, callback.ID)
	b.sendKeyboard(ctx, callback.From.ID, "📢 *Required Channels*\n\nUsers must join these before using the bot.",
		requiredJoinKeyboard(b.Settings.Snapshot()))
	return nil
}

func (b *Bot) cbAddGroup(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.setState(ctx, callback.From.ID, state.KindAwaitingGroupID, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "➕ Send the group chat id (negative number):")
	return nil
}

func (b *Bot) cbAddChannel(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.setState(ctx, callback.From.ID, state.KindAwaitingChannel, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "➕ Send the channel username, for example @mychannel:")
	return nil
}

func (b *Bot) cbAddAdmin(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	b.setState(ctx, callback.From.ID, state.KindAwaitingAdminID, "")
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, "👑 Send the telegram id of the new admin:")
	return nil
}

func (b *Bot) cbToggleGroupSearches(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	on, err := b.Settings.Toggle("group_searches_off")
	if err != nil {
		log.Printf("Failed to toggle group searches: %v", err)
		b.answerAlert(ctx, callback.ID, "❌ Toggle failed")
		return nil
	}
	b.answer(ctx, callback.ID)
	if on {
		b.send(ctx, callback.From.ID, "⛔ Group searches disabled.")
	} else {
		b.send(ctx, callback.From.ID, "✅ Group searches enabled.")
	}
	b.sendKeyboard(ctx, callback.From.ID, "🛠 *Management*", managementKeyboard(b.Settings.Snapshot()))
	return nil
}

func (b *Bot) cbToggleSetting(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	key := strings.TrimPrefix(callback.Data, "toggle_")
	on, err := b.Settings.Toggle(key)
	if err != nil {
		log.Printf("Failed to toggle %s: %v", key, err)
		b.answerAlert(ctx, callback.ID, "❌ Toggle failed")
		return nil
	}
	b.answer(ctx, callback.ID)
	stateWord := "OFF"
	if on {
		stateWord = "ON"
	}
	b.send(ctx, callback.From.ID, fmt.Sprintf("⚙️ %s is now %s.", key, stateWord))
	b.sendKeyboard(ctx, callback.From.ID, "⚙️ *Settings*", settingsKeyboard(b.Settings.Snapshot()))
	return nil
}

func (b *Bot) cbRemoveGroup(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	raw := strings.TrimPrefix(callback.Data, "remove_group_")
	groupID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		b.answerAlert(ctx, callback.ID, "❌ Bad group id")
		return nil
	}
	if err := b.Settings.RemoveGroup(groupID); err != nil {
		log.Printf("Failed to remove group %d: %v", groupID, err)
		b.answerAlert(ctx, callback.ID, "❌ Remove failed")
		return nil
	}
	b.answer(ctx, callback.ID)
	b.sendKeyboard(ctx, callback.From.ID, fmt.Sprintf("🗑 Group %d removed.", groupID),
		managementKeyboard(b.Settings.Snapshot()))
	return nil
}

func (b *Bot) cbRemoveChannel(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	channel := strings.TrimPrefix(callback.Data, "remove_channel_")
	if err := b.Settings.RemoveChannel(channel); err != nil {
		log.Printf("Failed to remove channel %s: %v", channel, err)
		b.answerAlert(ctx, callback.ID, "❌ Remove failed")
		return nil
	}
	b.answer(ctx, callback.ID)
	b.sendKeyboard(ctx, callback.From.ID, fmt.Sprintf("🗑 Channel %s removed.", channel),
		requiredJoinKeyboard(b.Settings.Snapshot()))
	return nil
}

func (b *Bot) cbEditSetting(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.requireAdmin(ctx, callback) {
		return nil
	}
	key := strings.TrimPrefix(callback.Data, "edit_")
	b.setState(ctx, callback.From.ID, state.KindAwaitingSettingValue, key)
	b.answer(ctx, callback.ID)
	b.send(ctx, callback.From.ID, fmt.Sprintf("⚙️ Send the new value for %s:", key))
	return nil
}
