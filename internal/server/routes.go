package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/davren/igniter/internal/attribution"
	"github.com/davren/igniter/internal/auth"
	"github.com/davren/igniter/internal/store"
)

type overrideRequest struct {
	Endpoint string `json:"endpoint"`
}

// requireAuth rejects mutating requests when a validator is configured
// and the bearer token does not match.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.Auth == nil {
			c.Next()
			return
		}
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if err := s.Auth.Validate(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": "igniter",
			"version": "0.0.1",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/status", func(c *gin.Context) {
		p := s.orch.Phase()
		c.JSON(http.StatusOK, gin.H{
			"phase":    p.Kind,
			"sealed":   p.Terminal(),
			"decision": s.orch.Decision(),
		})
	})

	s.router.GET("/transitions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"transitions": s.orch.Records(),
		})
	})

	writes := s.router.Group("", s.requireAuth())

	writes.POST("/attribution", func(c *gin.Context) {
		var m attribution.Map
		if err := c.ShouldBindJSON(&m); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.orch.SubmitAttribution(m)
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})

	writes.POST("/deeplink", func(c *gin.Context) {
		var m attribution.Map
		if err := c.ShouldBindJSON(&m); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.orch.SubmitDeeplink(m)
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})

	writes.POST("/override", func(c *gin.Context) {
		var req overrideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(req.Endpoint) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
			return
		}
		if err := s.st.Set(store.KeyOverrideEndpoint, req.Endpoint); err != nil {
			log.Error().Err(err).Msg("server persist override endpoint")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "persist failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
