// Package panel serves the minimal external control surface: a
// liveness probe and a password-gated switch for the global bot-active
// flag.
package panel

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lookup-bot/internal/settings"
	"lookup-bot/internal/utils"
)

type Panel struct {
	settings      *settings.Settings
	adminPassword string
	allowedCIDRs  []string
}

func New(cfg *settings.Settings, adminPassword string, allowedCIDRs []string) *Panel {
	return &Panel{
		settings:      cfg,
		adminPassword: adminPassword,
		allowedCIDRs:  allowedCIDRs,
	}
}

func (p *Panel) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(p.allowedCIDRs) > 0 {
		r.Use(p.ipFilter)
	}
	r.Get("/", p.handleStatus)
	r.Get("/ping", p.handlePing)
	r.Post("/toggle", p.handleToggle)
	return r
}

func (p *Panel) Serve(addr string) error {
	log.Printf("Control panel listening on %s", addr)
	return http.ListenAndServe(addr, p.Router())
}

func (p *Panel) ipFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.IsAllowedIP(utils.ClientIP(r), p.allowedCIDRs) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *Panel) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := "OFF"
	if p.settings.Snapshot().BotActive {
		status = "ON"
	}
	fmt.Fprintf(w, "Bot Status: %s\n", status)
}

// handlePing is the uptime-pinger endpoint.
func (p *Panel) handlePing(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "hi")
}

func (p *Panel) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if r.PostFormValue("password") != p.adminPassword {
		http.Error(w, "Invalid password", http.StatusForbidden)
		return
	}

	var active bool
	switch r.PostFormValue("action") {
	case "on":
		active = true
	case "off":
		active = false
	default:
		http.Error(w, "Invalid action", http.StatusBadRequest)
		return
	}

	if err := p.settings.SetBotActive(active); err != nil {
		log.Printf("Failed to persist bot_active: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	p.handleStatus(w, r)
}
