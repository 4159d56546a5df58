package api

import (
	"net/http"
	"strconv"

	"volumetracker/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /health
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/data?days=N
func (s *Server) getData(c *gin.Context) {
	days, ok := s.daysParam(c)
	if !ok {
		return
	}

	view, err := s.reader.View(c.Request.Context(), days)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /api/hourly
func (s *Server) getHourly(c *gin.Context) {
	records, err := s.reader.HourlyData(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GET /api/daily?days=N
func (s *Server) getDaily(c *gin.Context) {
	days, ok := s.daysParam(c)
	if !ok {
		return
	}

	records, err := s.reader.DailyData(c.Request.Context(), days)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GET /api/status
func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.reader.Status())
}

// daysParam parses ?days, defaulting to tracker.DefaultDailyDays. It writes
// a 400 and reports false for anything but a positive integer.
func (s *Server) daysParam(c *gin.Context) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return tracker.DefaultDailyDays, true
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return 0, false
	}
	return days, true
}

// fail reports a read failure. Unreadable data is an error, never an empty
// result.
func (s *Server) fail(c *gin.Context, err error) {
	kind := tracker.ErrorKind(err)
	s.logger.Error("read failed",
		zap.String("path", c.FullPath()),
		zap.String("error_kind", kind),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":      "failed to read tracker data",
		"error_kind": kind,
	})
}
