package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/redis/go-redis/v9"

	"lookup-bot/internal/ledger"
	"lookup-bot/internal/settings"
)

// Reporter periodically posts an aggregate usage summary to the
// configured log channel, at most once per calendar day. Redis keeps
// the sent marker so a restart does not repost.
type Reporter struct {
	Ledger   *ledger.Ledger
	Redis    *redis.Client
	Bot      *telego.Bot
	Settings *settings.Settings
}

func NewReporter(l *ledger.Ledger, rdb *redis.Client, bot *telego.Bot, cfg *settings.Settings) *Reporter {
	return &Reporter{
		Ledger:   l,
		Redis:    rdb,
		Bot:      bot,
		Settings: cfg,
	}
}

func (r *Reporter) Start() {
	ticker := time.NewTicker(1 * time.Hour)
	log.Println("Background stats reporter started")

	r.report()

	for range ticker.C {
		r.report()
	}
}

func (r *Reporter) report() {
	ctx := context.Background()

	channelID := r.Settings.Snapshot().LogChannelID
	if channelID == 0 {
		return
	}

	day := time.Now().In(r.Settings.Location()).Format("2006-01-02")
	key := fmt.Sprintf("stats_sent_%s", day)
	exists, _ := r.Redis.Exists(ctx, key).Result()
	if exists != 0 {
		return
	}

	stats, err := r.Ledger.CollectStats()
	if err != nil {
		log.Printf("Error collecting daily stats: %v", err)
		return
	}

	msg := fmt.Sprintf(
		"📊 Daily Summary (%s)\n\n"+
			"👥 Users: %d\n"+
			"🔍 Searches: %d\n"+
			"💰 Credits in circulation: %.2f\n"+
			"🎟 Active codes: %d\n"+
			"🤝 Referrals: %d\n"+
			"🎁 Redemptions: %d",
		day, stats.TotalUsers, stats.TotalSearches, stats.TotalCredits,
		stats.ActiveCodes, stats.TotalReferrals, stats.TotalRedeemed,
	)

	_, err = r.Bot.SendMessage(ctx, tu.Message(tu.ID(channelID), msg))
	if err != nil {
		log.Printf("Failed to send daily summary to %d: %v", channelID, err)
		return
	}
	r.Redis.Set(ctx, key, "true", 48*time.Hour)
	log.Printf("Sent daily summary for %s", day)
}
