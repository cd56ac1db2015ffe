// Package api exposes the query engine over HTTP: REST routes under /api/v1,
// a GraphQL endpoint, health and Prometheus metrics.
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ledgerScope/internal/api/handlers"
	"ledgerScope/internal/api/middleware"
	"ledgerScope/internal/query"
)

// Router wraps the Gin router with handlers
type Router struct {
	engine       *gin.Engine
	query        *query.Engine
	logger       *zap.Logger
	blockHandler *handlers.BlockHandler
	txHandler    *handlers.TxHandler
}

// NewRouter creates a Router serving q.
func NewRouter(q *query.Engine, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	schema, err := NewSchema(q, logger)
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}

	r := &Router{
		engine:       gin.New(),
		query:        q,
		logger:       logger,
		blockHandler: handlers.NewBlockHandler(q),
		txHandler:    handlers.NewTxHandler(q),
	}

	r.setupMiddleware()
	r.setupRoutes(graphqlHandler(schema))

	return r, nil
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.Metrics())
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.CORS())
}

func (r *Router) setupRoutes(graphqlHandler gin.HandlerFunc) {
	r.engine.GET("/health", r.health)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.engine.GET("/graphql", graphqlHandler)
	r.engine.POST("/graphql", graphqlHandler)

	v1 := r.engine.Group("/api/v1")
	{
		blocks := v1.Group("/blocks")
		{
			blocks.GET("", r.blockHandler.GetByNumber)
			blocks.GET("/latest", r.blockHandler.GetLatest)
			blocks.GET("/:hash", r.blockHandler.GetByHash)
		}

		txs := v1.Group("/transactions")
		{
			txs.GET("", r.txHandler.List)
			txs.GET("/:hash", r.txHandler.Get)
		}
	}
}

func (r *Router) health(c *gin.Context) {
	blocks, txs := r.query.Counts()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"blocks":       blocks,
		"transactions": txs,
	})
}

// Handler returns the underlying Gin engine
func (r *Router) Handler() http.Handler {
	return r.engine
}
