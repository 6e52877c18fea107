package intelligence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"voice-concierge/internal/calls"
	"voice-concierge/internal/conversation"
)

// OpenAIGateway implements Gateway over the OpenAI chat completions API.
//
// Both operations ask the model for a single JSON object and parse it
// strictly; malformed model output degrades to safe values rather than
// failing the turn (raw text as the reply, casual importance).

type OpenAIGateway struct {
	client        *openai.Client
	replyModel    string
	classifyModel string
}

const (
	defaultReplyModel    = openai.GPT4oMini
	defaultClassifyModel = openai.GPT4oMini
)

const replySystemPrompt = `You are a warm, concise virtual phone assistant answering calls on behalf of your principal. ` +
	`Keep replies under two sentences and suitable for speech synthesis. ` +
	`Respond with a JSON object: {"reply": "<what to say>", "language": "<BCP-47 tag of the reply>"}.`

const classifySystemPrompt = `You triage phone conversations. Given the full transcript, respond with a JSON object: ` +
	`{"importance": "critical"|"business"|"casual"|"spam", "topic": "<3-6 word topic>", "summary": "<one sentence summary>"}.`

func NewOpenAIGateway(apiKey, replyModel, classifyModel string) (*OpenAIGateway, error) {
	if apiKey == "" {
		return nil, errors.New("intelligence: openai api key required")
	}
	if replyModel == "" {
		replyModel = defaultReplyModel
	}
	if classifyModel == "" {
		classifyModel = defaultClassifyModel
	}
	return &OpenAIGateway{
		client:        openai.NewClient(apiKey),
		replyModel:    replyModel,
		classifyModel: classifyModel,
	}, nil
}

func (g *OpenAIGateway) GenerateReply(ctx context.Context, turns []conversation.Turn) (Reply, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          g.replyModel,
		Messages:       toMessages(replySystemPrompt, turns),
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return Reply{}, err
	}
	if len(resp.Choices) == 0 {
		return Reply{}, errors.New("intelligence: empty completion")
	}
	return parseReply(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGateway) Classify(ctx context.Context, turns []conversation.Turn) (Classification, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          g.classifyModel,
		Messages:       toMessages(classifySystemPrompt, turns),
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return Classification{}, err
	}
	if len(resp.Choices) == 0 {
		return Classification{}, errors.New("intelligence: empty completion")
	}
	return parseClassification(resp.Choices[0].Message.Content), nil
}

func toMessages(system string, turns []conversation.Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	out = append(out, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		switch t.Role {
		case conversation.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case conversation.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return out
}

func parseReply(content string) Reply {
	var r Reply
	if err := json.Unmarshal([]byte(content), &r); err != nil || strings.TrimSpace(r.Text) == "" {
		// Model ignored the format; use the raw text as the spoken reply.
		return Reply{Text: strings.TrimSpace(content), Language: "en-US"}
	}
	if r.Language == "" {
		r.Language = "en-US"
	}
	return r
}

func parseClassification(content string) Classification {
	var raw struct {
		Importance string `json:"importance"`
		Topic      string `json:"topic"`
		Summary    string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Classification{Importance: calls.ImportanceCasual, Topic: "Unclassified", Summary: strings.TrimSpace(content)}
	}
	c := Classification{
		Importance: calls.ParseImportance(strings.ToLower(strings.TrimSpace(raw.Importance))),
		Topic:      strings.TrimSpace(raw.Topic),
		Summary:    strings.TrimSpace(raw.Summary),
	}
	if c.Topic == "" {
		c.Topic = "General inquiry"
	}
	return c
}
