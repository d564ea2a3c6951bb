package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/refctl/internal/auth"
	"github.com/danmuck/refctl/internal/game"
	"github.com/danmuck/refctl/internal/monitor"
	"github.com/danmuck/refctl/internal/observability"
	"github.com/danmuck/refctl/internal/penalty"
	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/returns"
	"github.com/danmuck/refctl/internal/variant"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const commandTimeout = 2 * time.Second

type directiveRequest struct {
	Directive string `json:"directive" binding:"required"`
	Side      int    `json:"side"`
}

type kickoffRequest struct {
	Team string `json:"team" binding:"required"`
}

type penaltyRequest struct {
	Side    int    `json:"side"`
	Player  int    `json:"player"`
	Coach   bool   `json:"coach"`
	Penalty string `json:"penalty" binding:"required"`
}

func (c *Controller) Router() *gin.Engine {
	return c.router
}

func (c *Controller) buildRouter() *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(c.logger))
	r.Use(observability.RequestMetricsMiddleware(c.cfg.Node))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(c.cfg.CORSOrigins),
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"running":    c.Running(),
			"uptime":     time.Since(c.started).String(),
			"component":  c.cfg.Node,
			"variant":    c.cfg.Variant.Name,
			"session_id": c.cfg.Setup.SessionID,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/state", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, c.Snapshot())
	})

	r.GET("/variant", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, c.cfg.Variant)
	})

	// Reads stay open; everything that changes the match goes through ops.
	ops := r.Group("")
	if token := strings.TrimSpace(c.cfg.OperatorToken); token != "" {
		ops.Use(auth.Require(auth.StaticToken{Token: token}))
	}

	ops.POST("/directives", func(ctx *gin.Context) {
		var req directiveRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := game.ParseDirective(req.Directive, req.Side)
		if err != nil {
			respondError(ctx, err)
			return
		}
		c.respondCommand(ctx, d.String(), func(cctx context.Context) error { return c.Apply(cctx, d) })
	})

	ops.POST("/kickoff", func(ctx *gin.Context) {
		var req kickoffRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		color, ok := parseColor(req.Team)
		if !ok {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "team must be blue or red"})
			return
		}
		c.respondCommand(ctx, "kickoff("+color.String()+")", func(cctx context.Context) error { return c.SetKickoff(cctx, color) })
	})

	ops.POST("/penalties", func(ctx *gin.Context) {
		var req penaltyRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind, ok := resolvePenalty(c.cfg.Variant, req.Penalty)
		if !ok {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown penalty " + strconv.Quote(req.Penalty)})
			return
		}
		c.respondCommand(ctx, "penalize", func(cctx context.Context) error {
			if req.Coach {
				return c.PenalizeCoach(cctx, req.Side, kind)
			}
			return c.Penalize(cctx, req.Side, req.Player, kind)
		})
	})

	ops.DELETE("/penalties/:side/:player", func(ctx *gin.Context) {
		side, err := strconv.Atoi(ctx.Param("side"))
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "side must be 0 or 1"})
			return
		}
		if ctx.Param("player") == "coach" {
			c.respondCommand(ctx, "unpenalize_coach", func(cctx context.Context) error { return c.UnpenalizeCoach(cctx, side) })
			return
		}
		player, err := strconv.Atoi(ctx.Param("player"))
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "player must be a number or coach"})
			return
		}
		c.respondCommand(ctx, "unpenalize", func(cctx context.Context) error { return c.Unpenalize(cctx, side, player) })
	})

	r.GET("/requests", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"requests": c.returns.Pending()})
	})

	ops.POST("/requests/:id/approve", func(ctx *gin.Context) {
		observability.SetCommand(ctx, "approve")
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), commandTimeout)
		defer cancel()
		req, applied, err := c.ApproveRequest(cctx, ctx.Param("id"))
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"request": req, "applied": applied, "state": c.Snapshot()})
	})

	ops.POST("/requests/:id/reject", func(ctx *gin.Context) {
		observability.SetCommand(ctx, "reject")
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), commandTimeout)
		defer cancel()
		if err := c.RejectRequest(cctx, ctx.Param("id")); err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "rejected"})
	})

	r.GET("/robots", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"robots": c.returns.Robots(time.Now())})
	})

	r.GET("/ws", gin.WrapH(monitor.Handler(c.hub, originPatterns(c.cfg.CORSOrigins))))

	return r
}

func (c *Controller) respondCommand(ctx *gin.Context, command string, run func(context.Context) error) {
	observability.SetCommand(ctx, command)
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), commandTimeout)
	defer cancel()
	if err := run(cctx); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, c.Snapshot())
}

func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, game.ErrInvalidSide),
		errors.Is(err, penalty.ErrIndexOutOfRange),
		errors.Is(err, penalty.ErrUnknownPenaltyKind),
		errors.Is(err, penalty.ErrNoCoach):
		status = http.StatusBadRequest
	case errors.Is(err, returns.ErrUnknownRequest):
		status = http.StatusNotFound
	case errors.Is(err, ErrStopped),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

func resolvePenalty(v variant.Variant, raw string) (protocol.PenaltyKind, bool) {
	if spec, ok := v.PenaltyNamed(raw); ok {
		return spec.Kind, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 8)
	if err != nil {
		return 0, false
	}
	return protocol.PenaltyKind(n), true
}

func parseColor(raw string) (protocol.TeamColor, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "blue":
		return protocol.TeamBlue, true
	case "red":
		return protocol.TeamRed, true
	default:
		return 0, false
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

// originPatterns strips schemes so CORS origins double as websocket origin
// patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range normalizeOrigins(origins) {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		out = append(out, o)
	}
	return out
}
