package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Salmanazari/keylybot/internal/media"
)

// Event is one normalized inbound conversational event.
type Event struct {
	// EventID is the transport's update identifier, used for deduplication.
	EventID string
	// ChatID is the stable conversation identifier.
	ChatID string
	// Text is the message text, or the caption when only an attachment
	// carries text.
	Text string
	// Attachment is set when the event carries a supported attachment.
	Attachment *media.Ref
}

// DecodeUpdate normalizes a webhook update into an Event. ok is false for
// payload shapes the bot does not process (edits, channel posts, member
// updates, messages with neither text nor a supported attachment).
func DecodeUpdate(update tgbotapi.Update) (Event, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return Event{}, false
	}
	ev := Event{
		EventID: strconv.Itoa(update.UpdateID),
		ChatID:  strconv.FormatInt(msg.Chat.ID, 10),
		Text:    strings.TrimSpace(msg.Text),
	}
	if ev.Text == "" {
		ev.Text = strings.TrimSpace(msg.Caption)
	}
	ev.Attachment = collectAttachment(msg)
	if ev.Text == "" && ev.Attachment == nil {
		return Event{}, false
	}
	return ev, true
}

// collectAttachment picks the single supported attachment from a message:
// the best photo size, a document, or a voice/audio note.
func collectAttachment(msg *tgbotapi.Message) *media.Ref {
	if len(msg.Photo) > 0 {
		photo := pickPhoto(msg.Photo)
		return &media.Ref{
			Kind:   media.KindImage,
			FileID: photo.FileID,
			Mime:   "image/jpeg",
		}
	}
	if msg.Document != nil {
		return &media.Ref{
			Kind:   media.KindDocument,
			FileID: msg.Document.FileID,
			Name:   strings.TrimSpace(msg.Document.FileName),
			Mime:   strings.TrimSpace(msg.Document.MimeType),
		}
	}
	if msg.Voice != nil {
		return &media.Ref{
			Kind:   media.KindVoice,
			FileID: msg.Voice.FileID,
			Name:   "voice.ogg",
			Mime:   strings.TrimSpace(msg.Voice.MimeType),
		}
	}
	if msg.Audio != nil {
		return &media.Ref{
			Kind:   media.KindVoice,
			FileID: msg.Audio.FileID,
			Name:   strings.TrimSpace(msg.Audio.FileName),
			Mime:   strings.TrimSpace(msg.Audio.MimeType),
		}
	}
	return nil
}

func pickPhoto(items []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	if len(items) == 0 {
		return tgbotapi.PhotoSize{}
	}
	best := items[0]
	for _, item := range items[1:] {
		if item.FileSize > best.FileSize {
			best = item
			continue
		}
		if item.Width*item.Height > best.Width*best.Height {
			best = item
		}
	}
	return best
}
