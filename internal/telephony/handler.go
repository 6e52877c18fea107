package telephony

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-concierge/internal/orchestrator"
	"voice-concierge/pkg/logger"
)

// CallHandler is the orchestration entry point the webhook delegates to.
type CallHandler interface {
	HandleEvent(ctx context.Context, ev orchestrator.Event) (orchestrator.Directive, error)
}

// VoiceWebhookHandler authenticates the Twilio delivery, converts it to an
// orchestrator event, and writes the TwiML response.
//
// No decision logic here; rejects happen before any state mutation.

type VoiceWebhookHandler struct {
	Gate      SignatureGate
	Calls     CallHandler
	Responder Responder
}

func (h VoiceWebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call handler not configured"})
		return
	}

	form, params, err := ParseVoiceWebhook(c.Request)
	if err != nil {
		log.Warn("voice webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if !h.Gate.Valid(c.Request, params) {
		log.Warn("voice webhook signature rejected", "call_sid", form.CallSid)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing CallSid"})
		return
	}

	directive, err := h.Calls.HandleEvent(c.Request.Context(), orchestrator.Event{
		CallID:       form.CallSid,
		Caller:       form.From,
		CallStatus:   form.CallStatus,
		SpeechResult: form.SpeechResult,
		CallDuration: form.CallDuration,
	})
	if err != nil {
		log.Error("call handling failed", "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call handling failed"})
		return
	}

	twiml, err := h.Responder.Render(directive)
	if err != nil {
		log.Error("twiml render failed", "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twiml)
}
