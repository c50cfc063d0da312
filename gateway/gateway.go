// Package gateway is the federation router: it composes the subgraphs'
// SDLs into one schema and plans each client operation across them.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/example/shipmesh/pkg/config"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClientSource hands out the client for a configured subgraph.
type ClientSource interface {
	Client(serviceName, fallbackURL string) *graphql.Client
}

type Gateway struct {
	subgraphs []Subgraph
	logger    *zap.Logger

	mu         sync.RWMutex
	supergraph *Supergraph
}

func NewGateway(cfg *config.GatewayConfig, clients ClientSource, logger *zap.Logger) *Gateway {
	subgraphs := make([]Subgraph, 0, len(cfg.Subgraphs))
	for _, s := range cfg.Subgraphs {
		subgraphs = append(subgraphs, Subgraph{Name: s.Name, Fetcher: clients.Client(s.Name, s.URL)})
	}
	return newGateway(subgraphs, logger)
}

func newGateway(subgraphs []Subgraph, logger *zap.Logger) *Gateway {
	return &Gateway{subgraphs: subgraphs, logger: logger.Named("gateway")}
}

// Compose (re)builds the supergraph from the live subgraphs.
func (g *Gateway) Compose(ctx context.Context) error {
	if len(g.subgraphs) == 0 {
		return fmt.Errorf("no subgraphs configured")
	}
	sg, err := Compose(ctx, g.subgraphs, g.logger)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.supergraph = sg
	g.mu.Unlock()
	g.logger.Info("Supergraph ready", zap.Int("subgraphs", len(g.subgraphs)))
	return nil
}

func (g *Gateway) current() *Supergraph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.supergraph
}

func (g *Gateway) SetupRoutes(router gin.IRouter) {
	router.POST("/graphql", g.handleGraphQL)
	router.GET("/supergraph", g.handleSupergraph)
}

func (g *Gateway) handleGraphQL(c *gin.Context) {
	sg := g.current()
	if sg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"errors": []*graphql.Error{{
			Message:    "supergraph not composed yet",
			Extensions: map[string]any{"code": "GATEWAY_NOT_READY"},
		}}})
		return
	}

	var req graphql.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []*graphql.Error{{
			Message:    err.Error(),
			Extensions: map[string]any{"code": "BAD_REQUEST"},
		}}})
		return
	}

	res := sg.Execute(c.Request.Context(), req)
	outcome := "ok"
	if res.Rejected {
		outcome = "rejected"
	} else if len(res.Errors) > 0 {
		outcome = "error"
	}
	metrics.GraphQLOperationsTotal.WithLabelValues(operationLabel(req), outcome).Inc()

	if res.Rejected {
		c.JSON(http.StatusBadRequest, res.Response)
		return
	}
	if len(res.Errors) > 0 {
		g.logger.Warn("Operation finished with errors",
			zap.String("operation", operationLabel(req)),
			zap.Int("errors", len(res.Errors)))
	}
	c.JSON(http.StatusOK, res.Response)
}

func (g *Gateway) handleSupergraph(c *gin.Context) {
	sg := g.current()
	if sg == nil {
		c.String(http.StatusServiceUnavailable, "supergraph not composed yet")
		return
	}
	c.String(http.StatusOK, sg.SDL)
}

func operationLabel(req graphql.Request) string {
	if req.OperationName != "" {
		return req.OperationName
	}
	if name := graphql.OperationName(req.Query); name != "" {
		return name
	}
	return "anonymous"
}
