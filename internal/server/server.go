/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package server exposes the HTTP surface: card serving, first-time
// generation, and the externally triggered maintenance endpoints.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anicards-project/anicards/internal/controller/periodicjobs"
	"github.com/anicards-project/anicards/pkg/cards"
	"github.com/anicards-project/anicards/pkg/clients/anilist"
	"github.com/anicards-project/anicards/pkg/config"
	"github.com/anicards-project/anicards/pkg/logger"
	"github.com/anicards-project/anicards/pkg/store"
)

// Server holds the wired dependencies behind the HTTP handlers. All
// dependencies are passed in explicitly; the server owns none of them.
type Server struct {
	cfg        *config.Config
	store      *store.Store
	client     anilist.Client
	cards      *cards.Service
	refreshJob *periodicjobs.StatsRefreshJob
	warmJob    *periodicjobs.CacheWarmJob

	engine *gin.Engine
}

// New builds the server and registers its routes.
func New(cfg *config.Config, dataStore *store.Store, client anilist.Client,
	cardService *cards.Service, refreshJob *periodicjobs.StatsRefreshJob,
	warmJob *periodicjobs.CacheWarmJob) *Server {

	s := &Server{
		cfg:        cfg,
		store:      dataStore,
		client:     client,
		cards:      cardService,
		refreshJob: refreshJob,
		warmJob:    warmJob,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestIDMiddleware())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/cards/:username/:cardType", s.handleGetCard)

	api := engine.Group("/api")
	api.POST("/refresh", s.handleRefresh)
	api.POST("/warm-cache", s.handleWarmCache)
	api.POST("/users/:username/generate", s.handleGenerate)

	s.engine = engine
	return s
}

// Handler returns the underlying http.Handler, used by tests and by the
// binary's http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts listening on addr and blocks.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// requestIDMiddleware tags every request context with a request id so
// downstream log lines correlate.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.WithRequestId(c.Request.Context(), uuid.New().String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
