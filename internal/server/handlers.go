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

package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anicards-project/anicards/pkg/clients/anilist"
	"github.com/anicards-project/anicards/pkg/common/structs"
	"github.com/anicards-project/anicards/pkg/logger"
	"github.com/anicards-project/anicards/pkg/render"
	"github.com/anicards-project/anicards/pkg/store"
)

// handleRefresh triggers one stats refresh cycle. Authentication is the
// X-Refresh-Secret header; when no secret is configured the check is
// bypassed with a log line so local setups keep working.
func (s *Server) handleRefresh(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.Logger(ctx).WithField("handler", "refresh")

	if s.cfg.Refresh.Secret == "" {
		log.Warn("No refresh secret configured, accepting unauthenticated trigger")
	} else if c.GetHeader("X-Refresh-Secret") != s.cfg.Refresh.Secret {
		c.String(http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := s.refreshJob.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Refresh cycle failed")
		c.String(http.StatusInternalServerError, "refresh cycle failed")
		return
	}

	c.String(http.StatusOK, summary.Message())
}

type warmResponse struct {
	Success       bool               `json:"success"`
	Stats         *structs.WarmStats `json:"stats,omitempty"`
	TopUsersCount int                `json:"topUsersCount"`
	CardTypes     []string           `json:"cardTypes,omitempty"`
	Message       string             `json:"message,omitempty"`
	Error         string             `json:"error,omitempty"`
	Duration      string             `json:"duration"`
}

// handleWarmCache triggers one cache warm cycle. Unlike the refresh
// endpoint, a missing configured token is a server misconfiguration and
// never a bypass.
func (s *Server) handleWarmCache(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.Logger(ctx).WithField("handler", "warmCache")
	start := time.Now()

	if s.cfg.Warm.Token == "" {
		log.Error("No warm token configured, rejecting trigger")
		c.JSON(http.StatusInternalServerError, warmResponse{
			Success:  false,
			Error:    "warm token not configured",
			Duration: time.Since(start).String(),
		})
		return
	}

	authHeader := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token != s.cfg.Warm.Token {
		c.JSON(http.StatusUnauthorized, warmResponse{
			Success:  false,
			Error:    "unauthorized",
			Duration: time.Since(start).String(),
		})
		return
	}

	// Numeric topN values out of range are clamped by the job; a
	// non-numeric value is malformed input, not a clampable one.
	topN := int64(0)
	if raw := c.Query("topN"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, warmResponse{
				Success:  false,
				Error:    "invalid topN parameter",
				Duration: time.Since(start).String(),
			})
			return
		}
		topN = parsed
	}

	cardTypes := structs.DefaultCardTypes
	if raw := c.Query("cardTypes"); raw != "" {
		cardTypes = splitCardTypes(raw)
		for _, cardType := range cardTypes {
			if !structs.ValidCardType(cardType) {
				c.JSON(http.StatusBadRequest, warmResponse{
					Success:  false,
					Error:    "unknown card type: " + cardType,
					Duration: time.Since(start).String(),
				})
				return
			}
		}
	}

	stats, topUsers, err := s.warmJob.Run(ctx, topN, cardTypes)
	if err != nil {
		log.WithError(err).Error("Warm cycle failed")
		c.JSON(http.StatusInternalServerError, warmResponse{
			Success:  false,
			Error:    "warm cycle failed",
			Duration: time.Since(start).String(),
		})
		return
	}

	resp := warmResponse{
		Success:       true,
		Stats:         &stats,
		TopUsersCount: topUsers,
		CardTypes:     cardTypes,
		Duration:      time.Since(start).String(),
	}
	if topUsers == 0 {
		resp.Message = "no users to warm"
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetCard serves one rendered card by username. The popularity
// counter is incremented asynchronously; losing an increment only skews
// warm ordering, never correctness.
func (s *Server) handleGetCard(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.Logger(ctx).WithField("handler", "getCard")

	username := c.Param("username")
	cardType := c.Param("cardType")
	if !structs.ValidCardType(cardType) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown card type"})
		return
	}

	userID, err := s.store.Usernames.Resolve(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.WithError(err).Error("Failed to resolve username")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.store.Popularity.RecordRequest(bgCtx, userID); err != nil {
			logger.Logger(bgCtx).WithError(err).Warn("Failed to record popularity")
		}
	}()

	cfg, err := s.store.CardConfigs.Get(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("Failed to read card config, using defaults")
		cfg = nil
	}
	variant := render.DefaultVariant
	if cfg != nil && cfg.Variant != "" {
		variant = cfg.Variant
	}

	artifact, err := s.cards.Serve(ctx, userID, cardType, variant, render.ConfigFingerprint(cfg))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.WithError(err).Error("Failed to serve card")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render card"})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/svg+xml", artifact)
}

type generateRequest struct {
	CardTypes []string `json:"cardTypes"`
	Variant   string   `json:"variant"`
	Colors    []string `json:"colors"`
}

type generateResponse struct {
	UserID    int64    `json:"userId"`
	Username  string   `json:"username"`
	CardTypes []string `json:"cardTypes"`
}

// handleGenerate onboards a user: fetch the upstream snapshot, persist
// every record part, index the username and capture the card config.
func (s *Server) handleGenerate(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.Logger(ctx).WithField("handler", "generate")

	username := c.Param("username")

	req := generateRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	cardTypes := req.CardTypes
	if len(cardTypes) == 0 {
		cardTypes = structs.DefaultCardTypes
	}
	for _, cardType := range cardTypes {
		if !structs.ValidCardType(cardType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown card type: " + cardType})
			return
		}
	}

	snapshot, err := s.client.FetchUserStats(ctx, username)
	if err != nil {
		if errors.Is(err, anilist.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found on AniList"})
			return
		}
		log.WithError(err).Error("Failed to fetch user stats")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream fetch failed"})
		return
	}

	userID := snapshot.Meta.UserID
	if err := s.store.Records.WriteParts(ctx, userID, snapshot.Parts()); err != nil {
		log.WithError(err).Error("Failed to persist user record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist record"})
		return
	}
	if err := s.store.Usernames.Set(ctx, username, userID); err != nil {
		log.WithError(err).Error("Failed to index username")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to index username"})
		return
	}

	cfg := &structs.CardConfig{
		CardTypes: cardTypes,
		Variant:   req.Variant,
		Colors:    req.Colors,
	}
	if err := s.store.CardConfigs.Set(ctx, userID, cfg); err != nil {
		log.WithError(err).Error("Failed to store card config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store card config"})
		return
	}

	log.WithField("userId", userID).Info("Generated user record")
	c.JSON(http.StatusOK, generateResponse{
		UserID:    userID,
		Username:  username,
		CardTypes: cardTypes,
	})
}

func splitCardTypes(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
