package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"earnings/models"
	"earnings/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	serviceVersion = "1.0.0"
	healthTimeout  = 2 * time.Second

	// Confirmation messages existing clients match on.
	msgDeleted = "Removido"
	msgCleared = "Zerado"
)

type server struct {
	cfg      Config
	store    store.Store
	log      zerolog.Logger
	limits   *rateLimits
	events   *hub
	upgrader *websocket.Upgrader
	started  time.Time
}

func newServer(cfg Config, st store.Store, log zerolog.Logger) *server {
	s := &server{
		cfg:     cfg,
		store:   st,
		log:     log,
		limits:  newRateLimits(cfg.RateLimit),
		events:  newHub(log),
		started: time.Now(),
	}
	s.upgrader = s.newUpgrader()
	return s
}

// router builds the gin engine with the full middleware chain. Recovery wraps
// everything after request-id assignment so a panic still gets a JSON 500
// carrying the request id.
func (s *server) router() *gin.Engine {
	registerValidators()
	r := gin.New()
	r.Use(
		requestIDMiddleware(),
		s.recoveryMiddleware(),
		s.requestLogger(),
		corsMiddleware(s.cfg.CORS),
		s.limit(s.limits.tier("general")),
	)
	r.NoRoute(func(c *gin.Context) {
		abortNotFound(c, "route not found")
	})
	s.setupRoutes(r)
	return r
}

func (s *server) setupRoutes(r *gin.Engine) {
	r.GET("/", s.infoHandler)
	r.GET("/health", s.healthHandler)
	r.GET("/ws", s.eventsHandler)

	writeLimit := s.limit(s.limits.tier("write"))
	clearLimit := s.limit(s.limits.tier("clear"))

	api := r.Group("/api/earnings")
	api.Use(s.sessionMiddleware())
	api.GET("", s.listEarningsHandler)
	api.POST("", writeLimit, s.createEarningHandler)
	api.GET("/statistics", s.statisticsHandler)
	api.GET("/date-range", s.dateRangeHandler)
	api.DELETE("/clear", clearLimit, s.clearEarningsHandler)
	api.GET("/:id", s.getEarningHandler)
	api.DELETE("/:id", writeLimit, s.deleteEarningHandler)
}

// listEarningsHandler returns every record, newest date first.
func (s *server) listEarningsHandler(c *gin.Context) {
	rows, err := session(c).List()
	if err != nil {
		s.abortStorage(c, "list earnings", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// createEarningHandler validates the body completely before touching the
// database, then stores it and echoes the record with its new id.
func (s *server) createEarningHandler(c *gin.Context) {
	var req models.EarningInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, "invalid earning", describeBindError(err))
		return
	}
	e := req.ToEarning()
	if err := session(c).Create(&e); err != nil {
		s.abortStorage(c, "create earning", err)
		return
	}
	s.broadcast(c, event{Type: evEarningAdded, Earning: &e})
	c.JSON(http.StatusCreated, e)
}

func (s *server) getEarningHandler(c *gin.Context) {
	id, ok := earningID(c)
	if !ok {
		return
	}
	e, err := session(c).Get(id)
	if errors.Is(err, store.ErrNotFound) {
		abortNotFound(c, "earning not found")
		return
	}
	if err != nil {
		s.abortStorage(c, "get earning", err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// deleteEarningHandler answers 200 whether or not the id existed; deleted
// tells the two cases apart.
func (s *server) deleteEarningHandler(c *gin.Context) {
	id, ok := earningID(c)
	if !ok {
		return
	}
	n, err := session(c).Delete(id)
	if err != nil {
		s.abortStorage(c, "delete earning", err)
		return
	}
	if n > 0 {
		s.broadcast(c, event{Type: evEarningDeleted, ID: id})
	}
	c.JSON(http.StatusOK, gin.H{"message": msgDeleted, "deleted": n})
}

func (s *server) clearEarningsHandler(c *gin.Context) {
	n, err := session(c).Clear()
	if err != nil {
		s.abortStorage(c, "clear earnings", err)
		return
	}
	s.log.Warn().Int64("deleted", n).Str("request_id", requestID(c)).Msg("all earnings cleared")
	s.broadcast(c, event{Type: evCleared, Deleted: &n})
	c.JSON(http.StatusOK, gin.H{"message": msgCleared, "deleted": n})
}

func (s *server) dateRangeHandler(c *gin.Context) {
	var details []fieldError
	start, err := models.ParseDate(c.Query("start"))
	if err != nil {
		details = append(details, fieldError{Field: "start", Message: "must be a YYYY-MM-DD date"})
	}
	end, err := models.ParseDate(c.Query("end"))
	if err != nil {
		details = append(details, fieldError{Field: "end", Message: "must be a YYYY-MM-DD date"})
	}
	if len(details) == 0 && end.Before(start) {
		details = append(details, fieldError{Field: "end", Message: "must not be before start"})
	}
	if len(details) > 0 {
		abortValidation(c, "invalid date range", details)
		return
	}
	rows, err := session(c).ListRange(start, end)
	if err != nil {
		s.abortStorage(c, "list earnings by date", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *server) statisticsHandler(c *gin.Context) {
	stats, err := session(c).Stats()
	if err != nil {
		s.abortStorage(c, "compute statistics", err)
		return
	}
	stats.ApplyGoal(s.cfg.EarningsGoal)
	c.JSON(http.StatusOK, stats)
}

func (s *server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	body := gin.H{
		"status":         "ok",
		"database":       "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"version":        serviceVersion,
		"environment":    s.cfg.Env,
		"request_id":     requestID(c),
	}
	if err := s.store.Ping(ctx); err != nil {
		s.log.Error().Err(err).Msg("health check: database unreachable")
		body["status"] = "degraded"
		body["database"] = "unreachable"
		body["error"] = codeUnavailable
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "earnings",
		"version": serviceVersion,
		"endpoints": []string{
			"GET /api/earnings",
			"POST /api/earnings",
			"GET /api/earnings/{id}",
			"DELETE /api/earnings/{id}",
			"DELETE /api/earnings/clear",
			"GET /api/earnings/date-range?start=YYYY-MM-DD&end=YYYY-MM-DD",
			"GET /api/earnings/statistics",
			"GET /health",
		},
	})
}

// earningID parses the :id path segment, answering 422 when it is not a
// non-negative integer.
func earningID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, strconv.IntSize)
	if err != nil {
		abortValidation(c, "invalid earning id", []fieldError{{Field: "id", Message: "must be a non-negative integer"}})
		return 0, false
	}
	return uint(id), true
}
