// Package telegram is the chat transport boundary: it normalizes inbound
// webhook updates, resolves attachment bytes, and delivers replies.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Salmanazari/keylybot/internal/config"
	"github.com/Salmanazari/keylybot/internal/media"
	"github.com/Salmanazari/keylybot/internal/retry"
)

const (
	maxMessageLength  = 4096
	attachmentTimeout = 30 * time.Second
)

// API is the slice of the Telegram bot client the adapter uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Adapter implements outbound delivery and attachment fetching for one bot.
type Adapter struct {
	api    API
	client *http.Client
	logger *slog.Logger
}

// NewAdapter connects the Telegram bot client from config.
func NewAdapter(log *slog.Logger, cfg config.TelegramConfig) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return NewAdapterWithAPI(log, bot), nil
}

// NewAdapterWithAPI wires an Adapter over an explicit API client.
func NewAdapterWithAPI(log *slog.Logger, api API) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		api:    api,
		client: &http.Client{Timeout: attachmentTimeout},
		logger: log.With(slog.String("adapter", "telegram")),
	}
}

// Send delivers text to a chat with Markdown formatting, retried with the
// shared bounded linear-backoff policy.
func (a *Adapter) Send(ctx context.Context, chatID string, text string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id must be numeric: %q", chatID)
	}
	text = truncateText(sanitizeText(text))
	err = retry.Do(ctx, retry.DefaultAttempts, retry.DefaultBaseDelay, func(ctx context.Context) error {
		msg := tgbotapi.NewMessage(id, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		_, sendErr := a.api.Send(msg)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("send to chat %s: %w", chatID, err)
	}
	return nil
}

// SendTyping shows the typing indicator while slow downstream work runs.
// Failures are logged only; the indicator is cosmetic.
func (a *Adapter) SendTyping(ctx context.Context, chatID string) {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return
	}
	if _, err := a.api.Send(tgbotapi.NewChatAction(id, tgbotapi.ChatTyping)); err != nil {
		a.logger.Warn("send typing action failed", slog.String("chat_id", chatID), slog.Any("error", err))
	}
}

// FetchAttachment resolves a file ID to its download URL and fetches the
// bytes with a bounded timeout and size limit. Implements media.Fetcher.
func (a *Adapter) FetchAttachment(ctx context.Context, ref media.Ref) ([]byte, error) {
	if strings.TrimSpace(ref.FileID) == "" {
		return nil, fmt.Errorf("attachment file id is required")
	}
	downloadURL, err := a.api.GetFileDirectURL(ref.FileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download attachment: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("download attachment status: %d", resp.StatusCode)
	}
	return media.ReadAllWithLimit(resp.Body, media.MaxAttachmentBytes)
}

// sanitizeText ensures text is valid UTF-8 for the Telegram API.
func sanitizeText(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "")
}

// truncateText truncates to maxMessageLength on a rune boundary, appending
// "..." when truncation occurs.
func truncateText(text string) string {
	if len(text) <= maxMessageLength {
		return text
	}
	const suffix = "..."
	limit := maxMessageLength - len(suffix)
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit] + suffix
}
