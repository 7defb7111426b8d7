package engine

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/veildex/match-engine/config"
)

type Slacker struct {
	*slack.Client // TODO: abstract this out
	channelID     string
	enabled       bool
	logger        *zap.Logger
}

func NewSlacker(cfg config.SlackConfig, logger *zap.Logger) *Slacker {
	return &Slacker{
		Client:    slack.New(cfg.AppToken),
		channelID: cfg.ChannelID,
		enabled:   cfg.Enabled,
		logger:    logger.With(zap.String("module", "slack")),
	}
}

// AlertRoundFailed posts a failed-round notice so operators see it before the
// orchestrator retries.
func (s *Slacker) AlertRoundFailed(ctx context.Context, roundID string, runErr error) {
	if !s.enabled {
		s.logger.Debug("Slack is disabled")
		return
	}

	message := fmt.Sprintf("Round %s failed: %v. The result artifact was replaced by an error artifact; the round is safe to re-run.", roundID, runErr)

	respChannel, respTimestamp, err := s.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionText(message, false),
	)
	if err != nil {
		s.logger.Error("failed to post slack alert", zap.Error(err))
		return
	}

	s.logger.With(
		zap.String("channel", respChannel),
		zap.String("timestamp", respTimestamp),
	).Debug("Slack message successfully sent")
}
