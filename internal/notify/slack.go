package notify

import (
	"context"
	"errors"

	"github.com/slack-go/slack"
)

// SlackChannel posts escalations to a Slack channel via chat.postMessage.

type SlackChannel struct {
	client    *slack.Client
	channelID string
}

func NewSlackChannel(botToken, channelID string) (*SlackChannel, error) {
	if botToken == "" || channelID == "" {
		return nil, errors.New("notify: slack bot token and channel id required")
	}
	return &SlackChannel{
		client:    slack.New(botToken),
		channelID: channelID,
	}, nil
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Send(ctx context.Context, e Escalation) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slack.MsgOptionText(e.Message(), false))
	return err
}
