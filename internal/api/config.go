package api

import (
	"net/http"

	"github.com/dkemmer/servicegate/internal/audit"
	"github.com/dkemmer/servicegate/internal/security"
	"github.com/dkemmer/servicegate/internal/validate"
)

// configView is the masked configuration payload. Credentials pass
// through security.Mask so only the trailing characters survive.
type configView struct {
	Miro       miroView       `json:"miro"`
	Stripe     stripeView     `json:"stripe"`
	ClickHouse clickhouseView `json:"clickhouse"`
}

type miroView struct {
	AccessToken string `json:"access_token"`
	BoardID     string `json:"board_id"`
}

type stripeView struct {
	APIKey string `json:"api_key"`
}

type clickhouseView struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// handleConfigView returns the active configuration with every
// credential masked.
func (s *Server) handleConfigView(w http.ResponseWriter, r *http.Request) {
	view := configView{
		Miro: miroView{
			AccessToken: security.Mask(s.cfg.Miro.AccessToken.Reveal(), security.DefaultVisibleChars),
			BoardID:     s.cfg.Miro.BoardID,
		},
		Stripe: stripeView{
			APIKey: security.Mask(s.cfg.Stripe.APIKey.Reveal(), security.DefaultVisibleChars),
		},
		ClickHouse: clickhouseView{
			Host:     s.cfg.ClickHouse.Host,
			Port:     s.cfg.ClickHouse.Port,
			User:     s.cfg.ClickHouse.User,
			Password: security.Mask(s.cfg.ClickHouse.Password.Reveal(), security.DefaultVisibleChars),
			Database: s.cfg.ClickHouse.Database,
		},
	}

	s.recordAudit(r.Context(), &audit.Event{
		Action:  audit.ActionConfigViewed,
		Service: "config",
	})

	writeJSON(w, http.StatusOK, view)
}

// handleConfigValidation runs all service validators and returns the
// per-service results.
func (s *Server) handleConfigValidation(w http.ResponseWriter, r *http.Request) {
	results := validate.All(s.cfg)

	detail := make(map[string]any, len(results))
	for name, result := range results {
		detail[name] = result.Valid
	}
	s.recordAudit(r.Context(), &audit.Event{
		Action:  audit.ActionValidationRun,
		Service: "config",
		Detail:  detail,
	})

	writeJSON(w, http.StatusOK, results)
}
