package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// SlackListener bridges Slack direct messages to the bot. Only DM
// channels are handled; messages from bots (including our own replies)
// are ignored.
type SlackListener struct {
	bot    *BotService
	token  string
	logger *logrus.Entry
}

// NewSlackListener creates a new Slack RTM listener
func NewSlackListener(bot *BotService, token string) *SlackListener {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &SlackListener{
		bot:    bot,
		token:  token,
		logger: logger.WithField("component", "slack"),
	}
}

// Run connects to the Slack RTM API and processes direct messages until
// the context is cancelled. Each message is handled on its own
// goroutine so a slow turn never blocks other senders.
func (s *SlackListener) Run(ctx context.Context) {
	api := slack.New(s.token)
	rtm := api.NewRTM()
	go rtm.ManageConnection()

	for {
		select {
		case <-ctx.Done():
			if err := rtm.Disconnect(); err != nil {
				s.logger.WithError(err).Warn("Error disconnecting from Slack RTM")
			}
			return

		case msg, ok := <-rtm.IncomingEvents:
			if !ok {
				return
			}
			switch ev := msg.Data.(type) {
			case *slack.ConnectedEvent:
				s.logger.WithField("attempt", ev.ConnectionCount).Info("Slackbot running")

			case *slack.MessageEvent:
				if !s.isDirectUserMessage(ev) {
					continue
				}
				go s.handleMessage(ctx, rtm, ev)

			case *slack.RTMError:
				s.logger.WithError(ev).Error("Slack RTM error")

			case *slack.InvalidAuthEvent:
				s.logger.Error("Invalid Slack credentials, stopping listener")
				return
			}
		}
	}
}

// isDirectUserMessage reports whether the event is a plain direct
// message from a human user.
func (s *SlackListener) isDirectUserMessage(ev *slack.MessageEvent) bool {
	return ev.SubType == "" &&
		ev.BotID == "" &&
		ev.User != "" &&
		strings.HasPrefix(ev.Channel, "D")
}

func (s *SlackListener) handleMessage(ctx context.Context, rtm *slack.RTM, ev *slack.MessageEvent) {
	envelope := s.bot.ProcessMessage(ctx, ev.User, ev.Text)
	rtm.SendMessage(rtm.NewOutgoingMessage(envelope.Text, ev.Channel))
}
