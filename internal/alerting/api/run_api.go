package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/feedpulse/feedpulse/internal/metrics"
)

// RunNow is the explicit administrative trigger: it runs the coordinator
// with the force-send override, records the outcome and returns the full
// run result.
func (api *Api) RunNow(c *gin.Context) {
	ctx := c.Request.Context()

	metrics.RunsTotal.WithLabelValues("manual").Inc()
	result, err := api.coordinator.Run(ctx, true)
	if err != nil {
		log.Error().Err(err).Msg("manual alert run failed")
		internalError(c, err)
		return
	}
	if err := api.recorder.RecordRun(ctx, result); err != nil {
		log.Error().Err(err).Msg("recording manual run failed")
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
