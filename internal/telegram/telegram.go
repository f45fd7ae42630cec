// Package telegram wraps the Telegram Bot API for the relay: long-poll updates
// and plain-text replies.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// DefaultEndpoint is the Bot API URL pattern (token, method).
const DefaultEndpoint = tgbotapi.APIEndpoint

// ParseModeMarkdown selects legacy Markdown formatting for a reply.
const ParseModeMarkdown = tgbotapi.ModeMarkdown

// Update is an inbound update reduced to what the relay consumes.
type Update struct {
	ID int
	// Message is nil for update kinds other than message/edited_message.
	Message *Message
}

// Message is a chat message. Edited messages are delivered the same way as new ones.
type Message struct {
	ChatID int64
	Text   string
	Edited bool
}

// Options configure a Client.
type Options struct {
	// Endpoint is a Bot API URL pattern with two %s verbs (token, method).
	Endpoint string

	// PollTimeout bounds the HTTP client so a dead connection cannot hang a
	// long poll forever. It should exceed the server-side wait.
	PollTimeout time.Duration

	// SendRate and SendBurst throttle outbound messages. Zero disables throttling.
	SendRate  float64
	SendBurst int
}

// Client talks to the Bot API through go-telegram-bot-api.
type Client struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

// ctxHTTPClient binds every request to a base context so cancelling it aborts
// an in-flight long poll. The bot library builds requests without a context.
type ctxHTTPClient struct {
	ctx    context.Context
	client *http.Client
}

func (c *ctxHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// New creates a client and verifies the token with getMe.
// ctx bounds the lifetime of every request the client makes.
func New(ctx context.Context, token string, opts Options) (*Client, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	httpClient := &http.Client{}
	if opts.PollTimeout > 0 {
		httpClient.Timeout = opts.PollTimeout + 15*time.Second
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &ctxHTTPClient{ctx: ctx, client: httpClient})
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", redact(err, token))
	}

	c := &Client{api: api}
	if opts.SendRate > 0 {
		burst := opts.SendBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.SendRate), burst)
	}
	return c, nil
}

// Username returns the bot's @username as reported by getMe.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// GetUpdates long-polls for updates with id >= offset, waiting up to timeout
// seconds server-side.
func (c *Client) GetUpdates(ctx context.Context, offset, timeout int) ([]Update, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = timeout
	cfg.AllowedUpdates = []string{"message", "edited_message"}

	raw, err := c.api.GetUpdates(cfg)
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", redact(err, c.api.Token))
	}

	updates := make([]Update, 0, len(raw))
	for _, u := range raw {
		updates = append(updates, convertUpdate(u))
	}
	return updates, nil
}

func convertUpdate(u tgbotapi.Update) Update {
	out := Update{ID: u.UpdateID}

	msg, edited := u.Message, false
	if msg == nil {
		msg, edited = u.EditedMessage, true
	}
	if msg == nil || msg.Chat == nil {
		return out
	}

	out.Message = &Message{
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
		Edited: edited,
	}
	return out
}

// SendMessage sends text to chatID. parseMode may be empty for plain text.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("sendMessage: %w", redact(err, c.api.Token))
	}
	return nil
}

// redactedError hides the bot token in a transport error. The bot library
// puts the token in the request URL, and *url.Error quotes that URL.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{
		msg: strings.ReplaceAll(err.Error(), token, "<redacted>"),
		err: err,
	}
}
