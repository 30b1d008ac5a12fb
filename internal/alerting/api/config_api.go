package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/feedpulse/feedpulse/internal/alerting/service/ruleset"
)

type saveEmailConfigRequest struct {
	AdminRecipients  []uuid.UUID `json:"adminRecipients"`
	ExtraEmails      string      `json:"extraEmails"`
	SendMode         string      `json:"sendMode"`
	CriticalKeywords string      `json:"criticalKeywords"`
}

type emailConfigResponse struct {
	AdminRecipients  []string `json:"adminRecipients"`
	ExtraEmails      string   `json:"extraEmails"`
	SendMode         string   `json:"sendMode"`
	CriticalKeywords string   `json:"criticalKeywords"`
}

func emailConfigToResponse(cfg *ruleset.AlertEmailConfig) emailConfigResponse {
	ids := make([]string, 0, len(cfg.RecipientIDs))
	for _, id := range cfg.RecipientIDs {
		ids = append(ids, id.String())
	}
	return emailConfigResponse{
		AdminRecipients:  ids,
		ExtraEmails:      cfg.ExtraEmails,
		SendMode:         ruleset.NormalizeSendMode(cfg.SendMode),
		CriticalKeywords: cfg.CriticalKeywords,
	}
}

func (api *Api) GetEmailConfig(c *gin.Context) {
	cfg, err := api.rules.GetConfig(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, emailConfigToResponse(cfg))
}

func (api *Api) SaveEmailConfig(c *gin.Context) {
	var req saveEmailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON")
		return
	}

	ctx := c.Request.Context()
	cfg, err := api.rules.GetConfig(ctx)
	if err != nil {
		internalError(c, err)
		return
	}

	requested := make([]uuid.UUID, 0, len(req.AdminRecipients))
	seen := map[uuid.UUID]struct{}{}
	for _, id := range req.AdminRecipients {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		requested = append(requested, id)
	}

	if len(requested) > 0 {
		active, err := api.rules.FilterActiveAdmins(ctx, requested)
		if err != nil {
			internalError(c, err)
			return
		}
		if len(active) != len(requested) {
			badRequest(c, ruleset.ErrUnknownRecipient.Error())
			return
		}
		cfg.RecipientIDs = active
	} else {
		cfg.RecipientIDs = nil
	}

	cfg.ExtraEmails = strings.TrimSpace(req.ExtraEmails)
	cfg.SendMode = ruleset.NormalizeSendMode(req.SendMode)
	cfg.CriticalKeywords = strings.TrimSpace(req.CriticalKeywords)
	cfg.UpdatedAt = time.Now().UTC()

	if err := api.rules.SaveConfig(ctx, cfg); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, emailConfigToResponse(cfg))
}
