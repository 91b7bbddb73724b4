// Package server owns the HTTP surface of the activation daemon.
//
// Ownership boundary:
// - route registration and request decoding
// - arrival ingestion endpoints feeding the orchestrator
// - read-only status, transition, and metrics endpoints
package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/davren/igniter/internal/auth"
	"github.com/davren/igniter/internal/observability"
	"github.com/davren/igniter/internal/orchestrator"
	"github.com/davren/igniter/internal/store"
)

// Server exposes one orchestrator over HTTP. Auth, when set, guards
// the mutating routes; reads stay open.
type Server struct {
	Addr     string    `json:"addr"`
	Appeared time.Time `json:"appeared"`
	Auth     auth.Validator

	orch   *orchestrator.Orchestrator
	st     store.Store
	router *gin.Engine
}

// New builds the router with recovery, request logging, metrics, and
// CORS installed, in that order.
func New(addr string, orch *orchestrator.Orchestrator, st store.Store, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Server{
		Addr:     addr,
		Appeared: time.Now(),
		orch:     orch,
		st:       st,
		router:   r,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve registers routes and blocks on the listener.
func (s *Server) Serve() error {
	s.RegisterRoutes()
	return s.router.Run(s.Addr)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
