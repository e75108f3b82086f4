package router

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	errx "github.com/hospitalbot-poc/server/internal/core/error"
	"github.com/hospitalbot-poc/server/internal/intake/model"
	"github.com/hospitalbot-poc/server/internal/intake/nlu"
	"github.com/hospitalbot-poc/server/internal/intake/ontology"
	logx "github.com/hospitalbot-poc/server/pkg/logger"
)

// maxBodyBytes bounds webhook bodies; the intent engine sends small payloads.
const maxBodyBytes = 256 * 1024

// Pinger reports whether the persistence gateway is still reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupRoutes wires the HTTP surface. The ontology graph and classifier may
// be nil when not configured; /classification then degrades accordingly.
func SetupRoutes(engine *gin.Engine, r *Router, store Pinger, graph *ontology.Graph, classifier nlu.Classifier) {
	engine.GET("/health", HealthCheck(store))
	engine.POST("/default", HandleWebhook(r))
	engine.POST("/classification", HandleClassification(graph, classifier))
}

// HealthCheck answers "OK" while the gateway is reachable.
func HealthCheck(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store != nil {
			if err := store.Ping(c.Request.Context()); err != nil {
				logx.Error().Err(err).Msg("health check failed")
				c.String(http.StatusServiceUnavailable, "store unavailable")
				return
			}
		}
		c.String(http.StatusOK, "OK")
	}
}

// HandleWebhook feeds the raw body to the intent router. The router owns all
// failure handling; this layer only moves bytes.
func HandleWebhook(r *Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			logx.Warn().Err(err).Msg("failed to read webhook body")
			c.JSON(http.StatusNotFound, defaultResponse())
			return
		}
		resp, status := r.HandleTurn(c.Request.Context(), body)
		c.JSON(status, resp)
	}
}

type classificationRequest struct {
	Session     string `json:"session"`
	QueryResult struct {
		QueryText string `json:"queryText"`
	} `json:"queryResult"`
}

// HandleClassification answers free text: the ontology oracle is consulted
// first, the managed intent engine only when the graph had nothing.
func HandleClassification(graph *ontology.Graph, classifier nlu.Classifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req classificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"fulfillmentText": errx.MalformedPayloadMessage})
			return
		}

		if graph != nil {
			if answer, ok := graph.Lookup(req.QueryResult.QueryText); ok {
				c.JSON(http.StatusOK, model.Fulfillment{FulfillmentText: answer, Source: "ontology"})
				return
			}
		}

		if classifier == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"fulfillmentText": errx.SystemErrorMessage})
			return
		}

		sessionID := model.SessionIDFromPath(req.Session)
		answer, err := classifier.Detect(c.Request.Context(), sessionID, req.QueryResult.QueryText)
		if err != nil {
			logx.Error().Err(err).Str("sessionID", sessionID).Msg("classification failed")
			c.JSON(http.StatusInternalServerError, gin.H{"fulfillmentText": errx.SystemErrorMessage})
			return
		}
		c.JSON(http.StatusOK, model.Fulfillment{FulfillmentText: answer, Source: "intent-engine"})
	}
}
