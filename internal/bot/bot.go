package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lookup-bot/internal/access"
	"lookup-bot/internal/broadcast"
	"lookup-bot/internal/ledger"
	"lookup-bot/internal/lookup"
	"lookup-bot/internal/redeem"
	"lookup-bot/internal/settings"
	"lookup-bot/internal/state"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

type Providers struct {
	Phone   lookup.Provider
	Vehicle lookup.Provider
	Email   lookup.Provider
}

type Bot struct {
	Instance      *telego.Bot
	Ledger        *ledger.Ledger
	Redeem        *redeem.Engine
	Gate          *access.Gate
	States        state.Store
	Settings      *settings.Settings
	Broadcast     *broadcast.Engine
	Providers     Providers
	AdminPassword string

	username string
}

func NewBot(token string, lg *ledger.Ledger, rd *redeem.Engine, states state.Store, st *settings.Settings, bc *broadcast.Engine, providers Providers, adminPassword string) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		Instance:      tgBot,
		Ledger:        lg,
		Redeem:        rd,
		States:        states,
		Settings:      st,
		Broadcast:     bc,
		Providers:     providers,
		AdminPassword: adminPassword,
	}
	b.Gate = access.NewGate(st, lg, b)
	return b, nil
}

func (b *Bot) Start() {
	if me, err := b.Instance.GetMe(context.Background()); err == nil {
		b.username = me.Username
	}

	updates, _ := b.Instance.UpdatesViaLongPolling(context.Background(), nil)
	handler, _ := th.NewBotHandler(b.Instance, updates)

	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleHelp, th.CommandEqual("help"))
	handler.Handle(b.handleAdmin, th.CommandEqual("admin"))

	handler.Handle(b.cbVerifyMembership, th.CallbackDataEqual("verify_membership"))
	handler.Handle(b.cbMainMenu, th.CallbackDataEqual("main_menu"))
	handler.Handle(b.cbStartLookup, th.CallbackDataEqual("start_lookup"))
	handler.Handle(b.cbLookupPhone, th.CallbackDataEqual("lookup_phone"))
	handler.Handle(b.cbLookupVehicle, th.CallbackDataEqual("lookup_vehicle"))
	handler.Handle(b.cbLookupEmail, th.CallbackDataEqual("lookup_email"))
	handler.Handle(b.cbMyCredits, th.CallbackDataEqual("my_credits"))
	handler.Handle(b.cbRedeemCode, th.CallbackDataEqual("redeem_code"))
	handler.Handle(b.cbReferFriends, th.CallbackDataEqual("refer_friends"))
	handler.Handle(b.cbMyStats, th.CallbackDataEqual("my_stats"))
	handler.Handle(b.cbHowItWorks, th.CallbackDataEqual("how_it_works"))
	handler.Handle(b.cbCloseMenu, th.CallbackDataEqual("close_menu"))

	handler.Handle(b.cbAdminPanel, th.CallbackDataEqual("admin_panel"))
	handler.Handle(b.cbAdminSettings, th.CallbackDataEqual("admin_settings"))
	handler.Handle(b.cbAdminStats, th.CallbackDataEqual("admin_stats"))
	handler.Handle(b.cbAdminGenCode, th.CallbackDataEqual("admin_gen_code"))
	handler.Handle(b.cbAdminBroadcast, th.CallbackDataEqual("admin_broadcast"))
	handler.Handle(b.cbBroadcastConfirm, th.CallbackDataEqual("broadcast_confirm_send"))
	handler.Handle(b.cbTopReferrers, th.CallbackDataEqual("admin_top_referrers"))
	handler.Handle(b.cbBanMenu, th.CallbackDataEqual("admin_ban_user"))
	handler.Handle(b.cbBanUser, th.CallbackDataEqual("ban_user"))
	handler.Handle(b.cbUnbanUser, th.CallbackDataEqual("unban_user"))
	handler.Handle(b.cbManagementPanel, th.CallbackDataEqual("management_panel"))
	handler.Handle(b.cbRequiredJoin, th.CallbackDataEqual("required_join"))
	handler.Handle(b.cbAddGroup, th.CallbackDataEqual("add_group"))
	handler.Handle(b.cbAddChannel, th.CallbackDataEqual("add_channel"))
	handler.Handle(b.cbAddAdmin, th.CallbackDataEqual("add_admin"))
	handler.Handle(b.cbToggleGroupSearches, th.CallbackDataEqual("toggle_group_searches"))
	handler.Handle(b.cbToggleSetting, th.CallbackDataPrefix("toggle_"))
	handler.Handle(b.cbRemoveGroup, th.CallbackDataPrefix("remove_group_"))
	handler.Handle(b.cbRemoveChannel, th.CallbackDataPrefix("remove_channel_"))
	handler.Handle(b.cbEditSetting, th.CallbackDataPrefix("edit_"))

	handler.Handle(b.handleText, th.AnyMessageWithText())

	handler.Start()
}

// IsMember reports whether the user has joined the given channel. A channel
// can be referenced either as @username or as a numeric chat id.
func (b *Bot) IsMember(ctx context.Context, channel string, userID int64) (bool, error) {
	member, err := b.Instance.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: chatRef(channel),
		UserID: userID,
	})
	if err != nil {
		return false, err
	}
	status := member.MemberStatus()
	return status != telego.MemberStatusLeft && status != telego.MemberStatusBanned, nil
}

// SendText delivers one broadcast message to a user, group or channel.
func (b *Bot) SendText(ctx context.Context, target broadcast.Target, text string) error {
	ref := tu.ID(target.ChatID)
	if target.ChatID == 0 && target.Username != "" {
		ref = tu.Username(target.Username)
	}
	_, err := b.Instance.SendMessage(ctx, tu.Message(ref, text))
	return err
}

func chatRef(channel string) telego.ChatID {
	if strings.HasPrefix(channel, "@") {
		return tu.Username(channel)
	}
	id, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return tu.Username(channel)
	}
	return tu.ID(id)
}

func (b *Bot) send(ctx *th.Context, chatID int64, text string) {
	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(chatID), text))
}

func (b *Bot) sendKeyboard(ctx *th.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) {
	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(chatID), text).
		WithParseMode(telego.ModeMarkdown).
		WithReplyMarkup(keyboard))
}

func (b *Bot) answer(ctx *th.Context, callbackID string) {
	_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callbackID))
}

func (b *Bot) answerAlert(ctx *th.Context, callbackID, text string) {
	_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callbackID).
		WithText(text).
		WithShowAlert())
}
