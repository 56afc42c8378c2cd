package bot

import (
	"fmt"

	"lookup-bot/internal/settings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

func mainMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔍 Start Lookup").WithCallbackData("start_lookup"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💰 My Credits").WithCallbackData("my_credits"),
			tu.InlineKeyboardButton("🎁 Redeem Code").WithCallbackData("redeem_code"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("👥 Refer Friends").WithCallbackData("refer_friends"),
			tu.InlineKeyboardButton("📊 My Stats").WithCallbackData("my_stats"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("❓ How It Works").WithCallbackData("how_it_works"),
		),
	)
}

func lookupMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📱 Phone Number").WithCallbackData("lookup_phone"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🚗 Vehicle Number").WithCallbackData("lookup_vehicle"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📧 Email Address").WithCallbackData("lookup_email"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("« Back").WithCallbackData("main_menu"),
		),
	)
}

func backToMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("« Back to Menu").WithCallbackData("main_menu"),
		),
	)
}

// joinKeyboard lists one URL button per required channel plus the
// verification button. Links come first, channels without a configured
// link fall back to a t.me URL derived from the @username.
func joinKeyboard(v settings.Values) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(v.RequiredChannels)+1)
	for i, channel := range v.RequiredChannels {
		link := ""
		if i < len(v.ChannelLinks) {
			link = v.ChannelLinks[i]
		}
		if link == "" {
			link = "https://t.me/" + trimAt(channel)
		}
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("📢 Join %s", channel)).WithURL(link),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("✅ I Joined").WithCallbackData("verify_membership"),
	))
	return tu.InlineKeyboard(rows...)
}

func adminPanelKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📊 Statistics").WithCallbackData("admin_stats"),
			tu.InlineKeyboardButton("⚙️ Settings").WithCallbackData("admin_settings"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🎁 Generate Code").WithCallbackData("admin_gen_code"),
			tu.InlineKeyboardButton("📣 Broadcast").WithCallbackData("admin_broadcast"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🏆 Top Referrers").WithCallbackData("admin_top_referrers"),
			tu.InlineKeyboardButton("🚫 Ban / Unban").WithCallbackData("admin_ban_user"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🛠 Management").WithCallbackData("management_panel"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✖️ Close").WithCallbackData("close_menu"),
		),
	)
}

func settingsKeyboard(v settings.Values) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("🆓 Daily Free: %d", v.DailyFreeSearches)).
				WithCallbackData("edit_daily_free_searches"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("💳 Search Cost: %.2f", v.PrivateSearchCost)).
				WithCallbackData("edit_private_search_cost"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("🤝 Referral Bonus: %.2f", v.ReferralBonus)).
				WithCallbackData("edit_referral_bonus"),
			tu.InlineKeyboardButton(fmt.Sprintf("🎉 Joining Bonus: %.2f", v.JoiningBonus)).
				WithCallbackData("edit_joining_bonus"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("📋 Log Channel: %d", v.LogChannelID)).
				WithCallbackData("edit_log_channel_id"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(onOff("🔒 Locked", v.BotLocked)).
				WithCallbackData("toggle_bot_locked"),
			tu.InlineKeyboardButton(onOff("🔧 Maintenance", v.MaintenanceMode)).
				WithCallbackData("toggle_maintenance_mode"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("« Back").WithCallbackData("admin_panel"),
		),
	)
}

func managementKeyboard(v settings.Values) *telego.InlineKeyboardMarkup {
	rows := [][]telego.InlineKeyboardButton{
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("➕ Add Group").WithCallbackData("add_group"),
			tu.InlineKeyboardButton(onOff("👥 Group Searches", !v.GroupSearchesOff)).
				WithCallbackData("toggle_group_searches"),
		),
	}
	for _, id := range v.AllowedGroups {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("🗑 Remove group %d", id)).
				WithCallbackData(fmt.Sprintf("remove_group_%d", id)),
		))
	}
	rows = append(rows,
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📢 Required Channels").WithCallbackData("required_join"),
			tu.InlineKeyboardButton("👑 Add Admin").WithCallbackData("add_admin"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("« Back").WithCallbackData("admin_panel"),
		),
	)
	return tu.InlineKeyboard(rows...)
}

func requiredJoinKeyboard(v settings.Values) *telego.InlineKeyboardMarkup {
	rows := [][]telego.InlineKeyboardButton{
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("➕ Add Channel").WithCallbackData("add_channel"),
		),
	}
	for _, channel := range v.RequiredChannels {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("🗑 Remove %s", channel)).
				WithCallbackData("remove_channel_" + channel),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("« Back").WithCallbackData("management_panel"),
	))
	return tu.InlineKeyboard(rows...)
}

func banMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🚫 Ban User").WithCallbackData("ban_user"),
			tu.InlineKeyboardButton("✅ Unban User").WithCallbackData("unban_user"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("« Back").WithCallbackData("admin_panel"),
		),
	)
}

func broadcastConfirmKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Send").WithCallbackData("broadcast_confirm_send"),
			tu.InlineKeyboardButton("❌ Cancel").WithCallbackData("admin_panel"),
		),
	)
}

func onOff(label string, on bool) string {
	if on {
		return label + ": ON"
	}
	return label + ": OFF"
}

func trimAt(channel string) string {
	if len(channel) > 0 && channel[0] == '@' {
		return channel[1:]
	}
	return channel
}
