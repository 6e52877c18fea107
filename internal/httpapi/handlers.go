package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voice-concierge/internal/calls"
	"voice-concierge/internal/conversation"
	"voice-concierge/internal/orchestrator"
	"voice-concierge/internal/reporting"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Engine  *orchestrator.Engine
	Records calls.Store
	Reports *reporting.Service
}

// --- Simulation ---

type simulateRequest struct {
	Conversation []conversation.Turn `json:"conversation"`
}

// Simulate runs one reply/classify exchange over a caller-supplied transcript.
// Public by design: it is the demo surface and never touches call state.
func (h Handlers) Simulate(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "engine not configured"})
		return
	}
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.Conversation) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conversation required"})
		return
	}
	for _, t := range req.Conversation {
		if !t.Valid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conversation turns need a known role and non-empty content"})
			return
		}
	}

	res, err := h.Engine.Simulate(c.Request.Context(), req.Conversation)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "simulation failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Call records (dashboard) ---

func (h Handlers) ListCalls(c *gin.Context) {
	if h.Records == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "records not configured"})
		return
	}
	recs, err := h.Records.List(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "record listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": recs})
}

func (h Handlers) GetCall(c *gin.Context) {
	if h.Records == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "records not configured"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}
	rec, err := h.Records.Get(c.Request.Context(), callID)
	if errors.Is(err, calls.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "record lookup failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// --- Reporting ---

// CallsSummary aggregates records, optionally bounded by RFC 3339
// from/to query parameters on record start time.
func (h Handlers) CallsSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	var req reporting.SummaryRequest
	var err error
	if req.Range.From, err = parseTimeParam(c.Query("from")); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
		return
	}
	if req.Range.To, err = parseTimeParam(c.Query("to")); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
		return
	}

	sum, err := h.Reports.Summary(c.Request.Context(), req)
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be after from"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
