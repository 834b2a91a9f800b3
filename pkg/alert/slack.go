package alert

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// maxSummaryChars caps the summary field Slack renders, matching
// alerts.py's dispatch_slack truncation (payload.summary[:500]).
const maxSummaryChars = 500

// SlackDispatcher posts Block Kit messages via the Slack Web API,
// replacing alerts.py's dispatch_slack incoming-webhook POST with the
// teacher-stack's slack-go/slack client.
type SlackDispatcher struct {
	client  *slack.Client
	channel string
}

// NewSlackDispatcher builds a dispatcher that posts to channel using a bot
// token.
func NewSlackDispatcher(token, channel string) *SlackDispatcher {
	return &SlackDispatcher{client: slack.New(token), channel: channel}
}

// DispatchHotspot implements Dispatcher.
func (s *SlackDispatcher) DispatchHotspot(ctx context.Context, alert HotspotAlert) error {
	summary := alert.Summary
	if len(summary) > maxSummaryChars {
		summary = summary[:maxSummaryChars]
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType,
			fmt.Sprintf("Hotspot Alert: %s", alert.FlashpointTitle), false, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Score:* %.2f", alert.HotspotScore), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Articles:* %d", alert.ArticleCount), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Cluster:* #%d", alert.ClusterID), false, false),
		}, nil),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Summary:*\n%s", summary), false, false),
			nil, nil,
		),
	}

	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("alert: slack hotspot post: %w", err)
	}
	return nil
}

// DispatchRunFailure implements Dispatcher.
func (s *SlackDispatcher) DispatchRunFailure(ctx context.Context, alert RunFailureAlert) error {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType,
			fmt.Sprintf("Pipeline Run Failed: %s", alert.RunID), false, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Target date:* %s", alert.TargetDate), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Tier:* %s", alert.Tier), false, false),
		}, nil),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Error:*\n%s", alert.ErrorMessage), false, false),
			nil, nil,
		),
	}

	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("alert: slack run-failure post: %w", err)
	}
	return nil
}

var _ Dispatcher = (*SlackDispatcher)(nil)
