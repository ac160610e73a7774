package main

import (
	"net/http"
	"time"

	"earnings/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	sessionKey      = "db_session"
)

// requestIDMiddleware reuses the caller's X-Request-ID or mints a new one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// requestLogger writes one line per request; 5xx log as errors and 4xx as
// warnings.
func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = s.log.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("error", c.Errors.Last().Error())
			}
		case status >= http.StatusBadRequest:
			ev = s.log.Warn()
		default:
			ev = s.log.Info()
		}
		ev.Str("request_id", requestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("API")
	}
}

// recoveryMiddleware turns a panic into a JSON 500 instead of a dropped
// connection.
func (s *server) recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		s.log.Error().Interface("panic", recovered).Str("request_id", requestID(c)).Msg("handler panicked")
		abortWithError(c, http.StatusInternalServerError, apiError{Error: codeInternal, Message: "internal server error"})
	})
}

func corsMiddleware(cfg CORSConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.AllowCredentials,
		ExposeHeaders:    []string{requestIDHeader},
		MaxAge:           cfg.MaxAge,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			cc.AllowAllOrigins = true
		}
	}
	if !cc.AllowAllOrigins {
		cc.AllowOrigins = cfg.AllowOrigins
	}
	return cors.New(cc)
}

// sessionMiddleware hands each request its own store session and releases
// it once the handler chain has returned, panics included.
func (s *server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := s.store.Session(c.Request.Context())
		defer func() {
			if err := sess.Close(); err != nil {
				s.log.Warn().Err(err).Str("request_id", requestID(c)).Msg("closing db session")
			}
		}()
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func session(c *gin.Context) store.Session {
	return c.MustGet(sessionKey).(store.Session)
}
