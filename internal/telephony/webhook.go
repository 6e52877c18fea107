package telephony

import "net/http"

// VoiceForm captures the subset of Twilio voice webhook fields we care about.
// Twilio sends application/x-www-form-urlencoded by default.
//
// Keep it minimal and provider-adapter-only; decisions are not made here.

type VoiceForm struct {
	CallSid      string
	From         string
	CallStatus   string
	SpeechResult string
	CallDuration string
}

// ParseVoiceWebhook reads the form and also returns the full parameter map,
// which signature validation needs verbatim.
func ParseVoiceWebhook(r *http.Request) (VoiceForm, map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceForm{}, nil, err
	}
	params := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		params[key] = r.PostFormValue(key)
	}
	f := VoiceForm{
		CallSid:      r.PostFormValue("CallSid"),
		From:         r.PostFormValue("From"),
		CallStatus:   r.PostFormValue("CallStatus"),
		SpeechResult: r.PostFormValue("SpeechResult"),
		CallDuration: r.PostFormValue("CallDuration"),
	}
	return f, params, nil
}
