package telephony

import (
	"net/http"

	twilioclient "github.com/twilio/twilio-go/client"
)

const signatureHeader = "X-Twilio-Signature"

// SignatureGate authenticates webhook deliveries against the Twilio auth token.
//
// Required is an explicit constructor decision, not an ambient env check:
// with no auth token configured the gate is bypassed, which is only
// acceptable for local development.

type SignatureGate struct {
	Required bool

	validator twilioclient.RequestValidator

	// WebhookURL is the canonical public URL Twilio signed against. When
	// empty, the URL is reconstructed from the request (scheme from
	// X-Forwarded-Proto behind a proxy).
	WebhookURL string
}

func NewSignatureGate(authToken, webhookURL string) SignatureGate {
	return SignatureGate{
		Required:   authToken != "",
		validator:  twilioclient.NewRequestValidator(authToken),
		WebhookURL: webhookURL,
	}
}

// Valid reports whether the delivery is authentic. No side effects.
func (g SignatureGate) Valid(r *http.Request, params map[string]string) bool {
	if !g.Required {
		return true
	}
	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		return false
	}
	url := g.WebhookURL
	if url == "" {
		url = requestURL(r)
	}
	return g.validator.Validate(url, params, signature)
}

func requestURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}
