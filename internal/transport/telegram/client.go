// Package telegram adapts the Telegram Bot API to the bot's transport surface.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"voice-relay-bot/internal/models"
	"voice-relay-bot/internal/observability/logging"
)

// Client sends messages, chat actions and file downloads through the Bot API.
type Client struct {
	bot      *tgbotapi.BotAPI
	http     *http.Client
	token    string
	endpoint string
}

// Config configures the Client.
type Config struct {
	Token       string
	APIEndpoint string       // default tgbotapi.APIEndpoint
	HTTPClient  *http.Client // default http.DefaultClient
}

// New authenticates with the Bot API. The bot's own identity is resolved
// here (getMe); failure to resolve it is returned as an error.
func New(cfg Config) (*Client, error) {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	if err := tgbotapi.SetLogger(botLogger{logger: logging.WithComponent("telegram-bot-api")}); err != nil {
		return nil, fmt.Errorf("set bot api logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("resolve bot identity: %w", err)
	}

	return &Client{
		bot:      bot,
		http:     cfg.HTTPClient,
		token:    cfg.Token,
		endpoint: cfg.APIEndpoint,
	}, nil
}

// GetMe returns the identity resolved at construction.
func (c *Client) GetMe() models.BotIdentity {
	return models.BotIdentity{ID: c.bot.Self.ID, Username: c.bot.Self.UserName}
}

// SendMessage sends text to a chat, optionally threaded and HTML-formatted.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts models.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if opts.ReplyToMessageID != 0 {
		msg.ReplyToMessageID = opts.ReplyToMessageID
		msg.AllowSendingWithoutReply = true
	}
	if opts.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendChatAction shows a chat action such as "typing".
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		return fmt.Errorf("send chat action: %w", err)
	}
	return nil
}

// GetFileStream resolves fileID and opens its content. The caller closes the stream.
func (c *Client) GetFileStream(ctx context.Context, fileID string) (io.ReadCloser, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, redact(err, c.token))
	}
	url := fileURL(c.endpoint, c.token, file.FilePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, redact(err, c.token))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download file %s: unexpected status %s", fileID, resp.Status)
	}
	return resp.Body, nil
}

// NewPoller creates a long-poll loop sharing this client's credentials.
func (c *Client) NewPoller(cfg PollerConfig) *Poller {
	return newPoller(c.token, c.endpoint, c.http, cfg)
}

// fileURL builds the download link for a file path. Downloads go to the same
// server as API calls, so a self-hosted Bot API endpoint serves files too.
func fileURL(endpoint, token, path string) string {
	if !strings.Contains(endpoint, "/bot%s/%s") {
		return fmt.Sprintf(tgbotapi.FileEndpoint, token, path)
	}
	return fmt.Sprintf(strings.Replace(endpoint, "/bot%s/%s", "/file/bot%s/%s", 1), token, path)
}

// redact strips the bot token from errors that embed the request URL.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<token>"))
}

// botLogger routes the library's log output to zerolog.
type botLogger struct {
	logger zerolog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}
