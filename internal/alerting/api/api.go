package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feedpulse/feedpulse/internal/alerting/service/engine"
	"github.com/feedpulse/feedpulse/internal/alerting/service/notify"
	"github.com/feedpulse/feedpulse/internal/alerting/service/ruleset"
	"github.com/feedpulse/feedpulse/internal/middleware"
)

// Api bundles the handlers for the alerting surface: rule CRUD, the email
// config singleton, manual runs and the notification inbox.
type Api struct {
	rules       ruleset.Store
	coordinator *engine.Coordinator
	recorder    *notify.Recorder
	inbox       notify.InboxStore
}

func NewApi(router *gin.Engine, rules ruleset.Store, coordinator *engine.Coordinator, recorder *notify.Recorder, inbox notify.InboxStore, jwtSecret string) *Api {
	api := &Api{rules: rules, coordinator: coordinator, recorder: recorder, inbox: inbox}
	api.setupRouters(router, jwtSecret)
	return api
}

func (api *Api) setupRouters(router *gin.Engine, jwtSecret string) {
	authed := router.Group("/api", middleware.Authentication(jwtSecret))

	rules := authed.Group("/alert-rules")
	rules.GET("", api.ListRules)
	rules.POST("", api.CreateRule)
	rules.PUT("/:id", api.UpdateRule)
	rules.PATCH("/:id/status", api.ToggleRuleStatus)
	rules.DELETE("/:id", api.DeleteRule)
	rules.POST("/run", middleware.RequireRole(middleware.RoleMaster), api.RunNow)

	cfg := authed.Group("/alert-email-config")
	cfg.GET("", api.GetEmailConfig)
	cfg.PUT("", middleware.RequireRole(middleware.RoleMaster), api.SaveEmailConfig)

	inbox := authed.Group("/admin-notifications")
	inbox.GET("", api.ListNotifications)
	inbox.PATCH("/:id/read", api.MarkNotificationRead)
	inbox.POST("/read-all", api.MarkAllNotificationsRead)
	inbox.DELETE("/:id", api.DeleteNotification)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_PARAMETER", "message": msg}})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "resource not found"}})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL_ERROR", "message": err.Error()}})
}
