package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"

	"voice-concierge/internal/orchestrator"
)

// TwiML is a minimal Twilio Markup Language response builder.
// Only the verbs the orchestrator's directives need are modeled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type twimlPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type twimlGather struct {
	XMLName       xml.Name  `xml:"Gather"`
	Input         string    `xml:"input,attr"`
	Language      string    `xml:"language,attr,omitempty"`
	SpeechTimeout string    `xml:"speechTimeout,attr,omitempty"`
	Action        string    `xml:"action,attr"`
	Method        string    `xml:"method,attr"`
	Say           *twimlSay `xml:"Say,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Responder maps orchestrator directives onto TwiML.
type Responder struct {
	// Action is the webhook path Twilio posts the gathered speech back to.
	Action string

	Voice    string
	Language string
}

func NewResponder(action string) Responder {
	return Responder{
		Action:   action,
		Voice:    "Polly.Amy",
		Language: "en-US",
	}
}

func (rp Responder) say(text string) twimlSay {
	return twimlSay{Voice: rp.Voice, Language: rp.Language, Text: text}
}

func (rp Responder) gather(prompt string) twimlGather {
	g := twimlGather{
		Input:         "speech",
		Language:      rp.Language,
		SpeechTimeout: "auto",
		Action:        rp.Action,
		Method:        "POST",
	}
	if prompt != "" {
		say := rp.say(prompt)
		g.Say = &say
	}
	return g
}

// Render serializes a directive to a TwiML document.
func (rp Responder) Render(d orchestrator.Directive) (string, error) {
	var r twimlResponse

	switch d.Action {
	case orchestrator.ActionGather:
		if d.Reply != "" {
			r.Verbs = append(r.Verbs, rp.say(d.Reply))
		}
		if d.PauseSeconds > 0 {
			r.Verbs = append(r.Verbs, twimlPause{Length: d.PauseSeconds})
		}
		r.Verbs = append(r.Verbs, rp.gather(d.Prompt))
	case orchestrator.ActionHangup:
		if d.Reply != "" {
			r.Verbs = append(r.Verbs, rp.say(d.Reply))
		}
		if d.Closing != "" {
			r.Verbs = append(r.Verbs, rp.say(d.Closing))
		}
		r.Verbs = append(r.Verbs, twimlHangup{})
	default:
		return "", errors.New("telephony: unknown directive action")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
