// Package api binds the messaging platform to the command handlers: inbound
// webhook HTTP endpoints on one side, outbound chat messages over Redis
// pub/sub on the other. The gateway process that holds the platform
// connection consumes the published envelopes and delivers them.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/matthumble/weightlossbot/internal/challenge"
	"github.com/matthumble/weightlossbot/internal/domain"
	"github.com/matthumble/weightlossbot/internal/event"
)

const genericErrorReply = "❌ An error occurred. Please try again."

type Config struct {
	Router    gin.IRouter
	EventBus  *event.Bus
	Challenge *challenge.Service
	Redis     Redis
	Prefix    string

	// Channel is the shared channel broadcasts go to. Empty drops them.
	Channel string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	challenge *challenge.Service
	redis     Redis
	prefix    string
	channel   string
}

func New(c Config) *API {
	a := &API{
		challenge: c.Challenge,
		redis:     c.Redis,
		prefix:    c.Prefix,
		channel:   c.Channel,
	}

	c.Router.GET("/healthz", a.handleHealth)
	c.Router.POST("/slack/events", a.handleEvent)
	c.Router.POST("/slack/commands", a.handleCommand)
	c.Router.POST("/slack/interactions", a.handleInteraction)

	// Broadcast events published by the command handlers and the scheduler.
	c.EventBus.Subscribe(domain.EventNameChallengeStarted, func(ctx context.Context, e event.Event) error {
		return a.broadcast(ctx, formatStartAnnouncement(e.(domain.EventChallengeStarted)))
	})
	c.EventBus.Subscribe(domain.EventNameChallengeReset, func(ctx context.Context, e event.Event) error {
		return a.broadcast(ctx, resetAnnouncement)
	})
	c.EventBus.Subscribe(domain.EventNameLeaderboardPosted, func(ctx context.Context, e event.Event) error {
		p := e.(domain.EventLeaderboardPosted)
		return a.broadcast(ctx, formatLeaderboardMessage(p.Leaderboard, p.Deadline))
	})
	c.EventBus.Subscribe(domain.EventNameChallengeCompleted, func(ctx context.Context, e event.Event) error {
		p := e.(domain.EventChallengeCompleted)
		return a.broadcast(ctx, formatFinalMessage(p.Leaderboard, p.Deadline))
	})

	return a
}

func (a *API) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// commandKind is the finite set of free-text commands the bot understands.
type commandKind int

const (
	commandBaseline commandKind = iota
	commandCheckin
)

func (k commandKind) String() string {
	if k == commandCheckin {
		return "checkin"
	}
	return "baseline"
}

// parseCommand classifies trimmed, lowercased message text by prefix.
// Anything unrecognized is ignored.
func parseCommand(text string) (commandKind, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(t, "baseline"):
		return commandBaseline, true
	case strings.HasPrefix(t, "checkin"):
		return commandCheckin, true
	}
	return 0, false
}

type eventCallback struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Event     struct {
		Type        string `json:"type"`
		Subtype     string `json:"subtype"`
		BotID       string `json:"bot_id"`
		ChannelType string `json:"channel_type"`
		User        string `json:"user"`
		UserName    string `json:"user_name"`
		Text        string `json:"text"`
	} `json:"event"`
}

// handleEvent receives platform event callbacks. Direct messages starting
// with "baseline" or "checkin" run the matching handler; the reply goes back
// to the sender as a DM.
func (a *API) handleEvent(c *gin.Context) {
	var cb eventCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
		return
	}

	if cb.Type == "url_verification" {
		c.JSON(http.StatusOK, gin.H{"challenge": cb.Challenge})
		return
	}

	ev := cb.Event
	if ev.Type != "message" || ev.Subtype != "" || ev.BotID != "" || ev.ChannelType != "im" {
		c.Status(http.StatusOK)
		return
	}

	kind, ok := parseCommand(ev.Text)
	if !ok {
		c.Status(http.StatusOK)
		return
	}

	name := ev.UserName
	if name == "" {
		name = ev.User
	}

	ctx := c.Request.Context()

	var (
		reply string
		err   error
	)
	switch kind {
	case commandBaseline:
		reply, err = a.challenge.Baseline(ctx, challenge.BaselineRequest{
			UserID:      ev.User,
			DisplayName: name,
			Text:        ev.Text,
		})
	case commandCheckin:
		reply, err = a.challenge.Checkin(ctx, challenge.CheckinRequest{
			UserID: ev.User,
			Text:   ev.Text,
		})
	}
	if err != nil {
		slog.ErrorContext(ctx, "api: handle message failed", "command", kind.String(), "error", err)
		reply = genericErrorReply
	}

	if err := a.dm(ctx, ev.User, reply); err != nil {
		slog.ErrorContext(ctx, "api: send reply failed", "user", ev.User, "error", err)
	}

	c.Status(http.StatusOK)
}

type slashCommand struct {
	Command   string `form:"command"`
	Text      string `form:"text"`
	UserID    string `form:"user_id"`
	TriggerID string `form:"trigger_id"`
}

// handleCommand receives slash commands and answers each with a single
// ephemeral message, except /start-challenge which returns the form to open.
func (a *API) handleCommand(c *gin.Context) {
	var cmd slashCommand
	if err := c.ShouldBind(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed command payload"})
		return
	}

	ctx := c.Request.Context()

	switch cmd.Command {
	case "/leaderboard":
		if a.channel == "" {
			a.ephemeral(c, "❌ No challenge channel is configured.")
			return
		}
		reply, err := a.challenge.PostLeaderboard(ctx)
		a.reply(c, reply, err)

	case "/challenge-status":
		reply, err := a.challenge.Status(ctx)
		a.reply(c, reply, err)

	case "/reset-challenge":
		reply, err := a.challenge.Reset(ctx, cmd.UserID)
		a.reply(c, reply, err)

	case "/set-deadline":
		reply, err := a.challenge.SetDeadline(ctx, cmd.UserID, cmd.Text)
		a.reply(c, reply, err)

	case "/start-challenge":
		a.handleStartForm(c, cmd)

	default:
		a.ephemeral(c, "❌ Unknown command.")
	}
}

func (a *API) reply(c *gin.Context, reply string, err error) {
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "api: command failed", "error", err)
		reply = genericErrorReply
	}
	a.ephemeral(c, reply)
}

func (a *API) ephemeral(c *gin.Context, text string) {
	c.JSON(http.StatusOK, gin.H{
		"response_type": "ephemeral",
		"text":          text,
	})
}
