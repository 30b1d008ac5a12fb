package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/feedpulse/feedpulse/internal/alerting/service/ruleset"
)

type saveAlertRuleRequest struct {
	Nome        string     `json:"nome"`
	CategoriaID *uuid.UUID `json:"categoriaId"`
	NotaMinima  float64    `json:"notaMinima"`
	PeriodoDias int        `json:"periodoDias"`
	EnviarEmail bool       `json:"enviarEmail"`
	Ativa       bool       `json:"ativa"`
}

type toggleRuleStatusRequest struct {
	Ativa bool `json:"ativa"`
}

func (api *Api) ListRules(c *gin.Context) {
	rules, err := api.rules.ListRules(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (api *Api) CreateRule(c *gin.Context) {
	var req saveAlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON")
		return
	}

	rule := &ruleset.AlertRule{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(req.Nome),
		CategoryID: req.CategoriaID,
		MinRating:  req.NotaMinima,
		WindowDays: req.PeriodoDias,
		SendEmail:  req.EnviarEmail,
		Active:     req.Ativa,
		CreatedAt:  time.Now().UTC(),
	}
	if !api.validateRule(c, rule) {
		return
	}

	if err := api.rules.CreateRule(c.Request.Context(), rule); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (api *Api) UpdateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid rule id")
		return
	}
	var req saveAlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON")
		return
	}

	existing, err := api.rules.GetRule(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ruleset.ErrRuleNotFound) {
			notFound(c)
			return
		}
		internalError(c, err)
		return
	}

	now := time.Now().UTC()
	rule := &ruleset.AlertRule{
		ID:         id,
		Name:       strings.TrimSpace(req.Nome),
		CategoryID: req.CategoriaID,
		MinRating:  req.NotaMinima,
		WindowDays: req.PeriodoDias,
		SendEmail:  req.EnviarEmail,
		Active:     req.Ativa,
		CreatedAt:  existing.CreatedAt,
		UpdatedAt:  &now,
	}
	if !api.validateRule(c, rule) {
		return
	}

	if err := api.rules.UpdateRule(c.Request.Context(), rule); err != nil {
		if errors.Is(err, ruleset.ErrRuleNotFound) {
			notFound(c)
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (api *Api) ToggleRuleStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid rule id")
		return
	}
	var req toggleRuleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON")
		return
	}
	ok, err := api.rules.SetRuleActive(c.Request.Context(), id, req.Ativa)
	if err != nil {
		internalError(c, err)
		return
	}
	if !ok {
		notFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *Api) DeleteRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid rule id")
		return
	}
	ok, err := api.rules.DeleteRule(c.Request.Context(), id)
	if err != nil {
		internalError(c, err)
		return
	}
	if !ok {
		notFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

// validateRule applies the rule invariants plus the category existence check
// and writes the 400 response itself. Returns false when the request was
// rejected.
func (api *Api) validateRule(c *gin.Context, rule *ruleset.AlertRule) bool {
	if err := ruleset.ValidateRule(rule); err != nil {
		badRequest(c, err.Error())
		return false
	}
	if rule.CategoryID != nil {
		ok, err := api.rules.CategoryActive(c.Request.Context(), *rule.CategoryID)
		if err != nil {
			internalError(c, err)
			return false
		}
		if !ok {
			badRequest(c, ruleset.ErrCategoryInvalid.Error())
			return false
		}
	}
	return true
}
