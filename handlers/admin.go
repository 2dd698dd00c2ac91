// File: handlers/admin.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"agendabot/models"
	"agendabot/utils"
)

// adminDateLayout keeps URL dates slash-free so they fit one path segment.
const adminDateLayout = "2006-01-02"

// AgendaDayHandler lists the bookings of one date for the owner dashboard.
func (hb *HandlerBundle) AgendaDayHandler(c *gin.Context) {
	date := c.Param("date")
	day, err := time.ParseInLocation(adminDateLayout, date, hb.Cfg.Location())
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", fmt.Sprintf("%q is not yyyy-mm-dd", date))
		return
	}

	bookings, err := hb.Agenda.BookingsOn(c.Request.Context(), day)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list bookings", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "bookings": bookings})
}

// MarkDayOffHandler blocks the remaining open slots of a date.
func (hb *HandlerBundle) MarkDayOffHandler(c *gin.Context) {
	date := c.Param("date")
	day, err := time.ParseInLocation(adminDateLayout, date, hb.Cfg.Location())
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", fmt.Sprintf("%q is not yyyy-mm-dd", date))
		return
	}

	blocked, err := hb.Agenda.MarkDayOff(c.Request.Context(), day.Format(models.DateLayout))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to mark day off", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "blocked": blocked})
}

// GenerateHorizonHandler forces a horizon regeneration.
func (hb *HandlerBundle) GenerateHorizonHandler(c *gin.Context) {
	inserted, err := hb.Agenda.GenerateHorizon(c.Request.Context())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to generate horizon", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"inserted": inserted})
}

// TriggerSummaryHandler sends today's summary on demand. The dedup marker
// still applies, so repeated calls are harmless.
func (hb *HandlerBundle) TriggerSummaryHandler(c *gin.Context) {
	if err := hb.Notify.SendDailySummary(c.Request.Context()); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to send summary", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthHandler reports liveness of the backing services.
func (hb *HandlerBundle) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}
