package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"

	"github.com/Salmanazari/keylybot/internal/channel/telegram"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Dispatcher hands a decoded event off for asynchronous processing.
type Dispatcher interface {
	Enqueue(ev telegram.Event) bool
}

// TelegramWebhookHandler terminates Telegram webhook deliveries. It always
// answers 200 once the caller is authenticated; Telegram re-sends anything
// else, and retries are cheaper to absorb at the dedup filter than at the
// transport.
type TelegramWebhookHandler struct {
	dispatcher Dispatcher
	secret     string
	logger     *slog.Logger
}

func NewTelegramWebhookHandler(log *slog.Logger, dispatcher Dispatcher, secret string) *TelegramWebhookHandler {
	return &TelegramWebhookHandler{
		dispatcher: dispatcher,
		secret:     secret,
		logger:     log.With(slog.String("handler", "telegram_webhook")),
	}
}

func (h *TelegramWebhookHandler) Register(e *echo.Echo) {
	e.POST("/telegram/webhook", h.Receive)
}

func (h *TelegramWebhookHandler) Receive(c echo.Context) error {
	if h.secret != "" {
		got := c.Request().Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warn("webhook secret mismatch", slog.String("remote", c.RealIP()))
			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var update tgbotapi.Update
	if err := c.Bind(&update); err != nil {
		// Malformed payloads are acknowledged and dropped; a 4xx would
		// only make Telegram redeliver the same broken body.
		h.logger.Warn("malformed webhook payload dropped", slog.Any("error", err))
		return c.NoContent(http.StatusOK)
	}

	ev, ok := telegram.DecodeUpdate(update)
	if !ok {
		h.logger.Debug("unsupported update dropped", slog.Int("update_id", update.UpdateID))
		return c.NoContent(http.StatusOK)
	}

	h.dispatcher.Enqueue(ev)
	return c.NoContent(http.StatusOK)
}
