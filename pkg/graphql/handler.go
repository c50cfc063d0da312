package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/example/shipmesh/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves POST /graphql for one schema.
func Handler(schema *Schema, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request
		if err := decodeRequest(c, &req); err != nil {
			metrics.GraphQLOperationsTotal.WithLabelValues("unknown", "rejected").Inc()
			c.JSON(http.StatusBadRequest, rejected("BAD_REQUEST", &Error{Message: err.Error()}))
			return
		}

		resp := schema.Execute(c.Request.Context(), req)
		if resp.rejected {
			metrics.GraphQLOperationsTotal.WithLabelValues("unknown", "rejected").Inc()
			logger.Debug("Rejected GraphQL operation", zap.String("operation", req.OperationName), zap.Any("errors", resp.Errors))
			c.JSON(http.StatusBadRequest, resp)
			return
		}

		outcome := "ok"
		if len(resp.Errors) > 0 {
			outcome = "error"
			for _, e := range resp.Errors {
				logger.Warn("GraphQL field error",
					zap.String("operation", req.OperationName),
					zap.Any("path", e.Path),
					zap.String("message", e.Message),
				)
			}
		}
		metrics.GraphQLOperationsTotal.WithLabelValues(resp.operation, outcome).Inc()
		c.JSON(http.StatusOK, resp)
	}
}

func decodeRequest(c *gin.Context, req *Request) error {
	if c.Request.Method == http.MethodGet {
		req.Query = c.Query("query")
		req.OperationName = c.Query("operationName")
		if raw := c.Query("variables"); raw != "" {
			dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
			dec.UseNumber()
			return dec.Decode(&req.Variables)
		}
		return nil
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	return dec.Decode(req)
}

// Mount registers the GraphQL endpoint on router.
func Mount(router gin.IRoutes, path string, schema *Schema, logger *zap.Logger) {
	h := Handler(schema, logger)
	router.POST(path, h)
	router.GET(path, h)
}
