package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const inboxPageSize = 50

func (api *Api) ListNotifications(c *gin.Context) {
	items, err := api.inbox.List(c.Request.Context(), inboxPageSize)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (api *Api) MarkNotificationRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid notification id")
		return
	}
	ok, err := api.inbox.MarkRead(c.Request.Context(), id)
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

func (api *Api) MarkAllNotificationsRead(c *gin.Context) {
	if err := api.inbox.MarkAllRead(c.Request.Context()); err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *Api) DeleteNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid notification id")
		return
	}
	ok, err := api.inbox.Delete(c.Request.Context(), id)
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
