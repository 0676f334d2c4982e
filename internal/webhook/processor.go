// Package webhook drives one inbound chat event to completion: dedup, a
// per-chat exclusion scope, session load, media or flow transition, effect
// execution, session persist, reply.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Salmanazari/keylybot/internal/channel/telegram"
	"github.com/Salmanazari/keylybot/internal/dedup"
	"github.com/Salmanazari/keylybot/internal/flow"
	"github.com/Salmanazari/keylybot/internal/listing"
	"github.com/Salmanazari/keylybot/internal/media"
	"github.com/Salmanazari/keylybot/internal/session"
)

const (
	// processTimeout bounds one event's downstream work after the
	// transport has already been acknowledged.
	processTimeout = 3 * time.Minute

	replyAttachmentFailed = "Sorry, I could not process this attachment. Please try sending it again."
	replyGenericFailure   = "Sorry, something went wrong on my side. Please try again."
	replyDocumentPrefix   = "Here is the text I extracted:\n\n"
)

// SessionStore is the session persistence boundary.
type SessionStore interface {
	Get(ctx context.Context, chatID string) (session.Session, error)
	Put(ctx context.Context, chatID string, state flow.State, draft flow.Draft, lastText string) error
}

// MediaPipeline is the attachment processing boundary.
type MediaPipeline interface {
	ProcessImage(ctx context.Context, ref media.Ref, listingID string) (media.ImageResult, error)
	ProcessDocument(ctx context.Context, ref media.Ref) (string, error)
	ProcessVoice(ctx context.Context, ref media.Ref) (string, error)
}

// ListingWriter is the record store boundary.
type ListingWriter interface {
	Append(ctx context.Context, l listing.PendingListing) (string, error)
}

// Sender is the outbound message boundary.
type Sender interface {
	Send(ctx context.Context, chatID string, text string) error
	SendTyping(ctx context.Context, chatID string)
}

// Processor orchestrates inbound events. It is the only component that
// knows all the others.
type Processor struct {
	filter   *dedup.Filter
	sessions SessionStore
	media    MediaPipeline
	listings ListingWriter
	sender   Sender
	logger   *slog.Logger
	newID    func() string

	wg      sync.WaitGroup
	locksMu sync.Mutex
	locks   map[string]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// NewProcessor wires the orchestrator.
func NewProcessor(log *slog.Logger, filter *dedup.Filter, sessions SessionStore, mediaPipeline MediaPipeline, listings ListingWriter, sender Sender) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		filter:   filter,
		sessions: sessions,
		media:    mediaPipeline,
		listings: listings,
		sender:   sender,
		logger:   log.With(slog.String("service", "webhook")),
		newID:    uuid.NewString,
		locks:    make(map[string]*chatLock),
	}
}

// Enqueue accepts one decoded event. It returns false when the event is a
// duplicate delivery; otherwise processing continues asynchronously, fire
// and forget from the transport's perspective. The caller acknowledges the
// transport in both cases.
func (p *Processor) Enqueue(ev telegram.Event) bool {
	if p.filter.SeenOrMark(ev.EventID) {
		p.logger.Info("duplicate event dropped", slog.String("event_id", ev.EventID), slog.String("chat_id", ev.ChatID))
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		p.Process(ctx, ev)
	}()
	return true
}

// Wait blocks until all in-flight events have run to completion. Dispatched
// events are never cancelled; shutdown drains them.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Process runs one event end to end. A per-chat mutex is held for the whole
// read-modify-write so two overlapping deliveries for the same chat cannot
// lose an update; events for different chats interleave freely.
func (p *Processor) Process(ctx context.Context, ev telegram.Event) {
	unlock := p.lockChat(ev.ChatID)
	defer unlock()

	log := p.logger.With(slog.String("chat_id", ev.ChatID), slog.String("event_id", ev.EventID))

	sess, err := p.sessions.Get(ctx, ev.ChatID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		sess = session.Session{ChatID: ev.ChatID, State: flow.StateInitial}
	case err != nil:
		log.Error("load session failed", slog.Any("error", err))
		p.reply(ctx, log, ev.ChatID, replyGenericFailure)
		return
	}

	input := flow.Input{Text: ev.Text}
	if ev.Attachment != nil {
		handled, attachmentInput := p.handleAttachment(ctx, log, ev, sess)
		if handled {
			return
		}
		input = attachmentInput
	}

	step := flow.Transition(sess.State, sess.Draft, input)

	// Effects run before the session is committed; a failed persist keeps
	// the session at the confirmation gate so "yes" can simply be retried.
	if step.Effect == flow.EffectPersistListing {
		listingID := p.newID()
		pending := listing.FromDraft(listingID, step.Draft, time.Now())
		if _, err := p.listings.Append(ctx, pending); err != nil {
			log.Error("persist listing failed", slog.String("listing_id", listingID), slog.Any("error", err))
			p.persist(ctx, log, ev, sess.State, sess.Draft)
			p.reply(ctx, log, ev.ChatID, replyGenericFailure)
			return
		}
		step.Draft.ListingID = listingID
	}
	if step.Effect == flow.EffectFinalize {
		log.Info("listing flow completed", slog.Int("images", len(sess.Draft.ImageURLs)))
	}

	if !p.persist(ctx, log, ev, step.Next, step.Draft) {
		p.reply(ctx, log, ev.ChatID, replyGenericFailure)
		return
	}
	p.reply(ctx, log, ev.ChatID, step.Reply)
}

// handleAttachment routes an attachment event. handled=true means the event
// was fully answered here with no session mutation; otherwise the returned
// input feeds the state machine.
func (p *Processor) handleAttachment(ctx context.Context, log *slog.Logger, ev telegram.Event, sess session.Session) (bool, flow.Input) {
	ref := *ev.Attachment
	// Downloads plus AI calls take seconds; show the typing indicator.
	p.sender.SendTyping(ctx, ev.ChatID)
	switch ref.Kind {
	case media.KindImage:
		if sess.State == flow.StateAwaitingImages {
			result, err := p.media.ProcessImage(ctx, ref, sess.Draft.ListingID)
			if err != nil {
				p.reply(ctx, log, ev.ChatID, replyAttachmentFailed)
				return true, flow.Input{}
			}
			return false, flow.Input{PhotoURL: result.URL}
		}
		// Freestanding photo: a one-shot "what is in this" analysis.
		result, err := p.media.ProcessImage(ctx, ref, "")
		if err != nil {
			p.reply(ctx, log, ev.ChatID, replyAttachmentFailed)
			return true, flow.Input{}
		}
		p.reply(ctx, log, ev.ChatID, result.Analysis)
		return true, flow.Input{}

	case media.KindDocument:
		text, err := p.media.ProcessDocument(ctx, ref)
		if err != nil {
			p.reply(ctx, log, ev.ChatID, replyAttachmentFailed)
			return true, flow.Input{}
		}
		p.reply(ctx, log, ev.ChatID, replyDocumentPrefix+text)
		return true, flow.Input{}

	case media.KindVoice:
		transcript, err := p.media.ProcessVoice(ctx, ref)
		if err != nil {
			p.reply(ctx, log, ev.ChatID, replyAttachmentFailed)
			return true, flow.Input{}
		}
		// Transcripts behave exactly like typed text in any state.
		return false, flow.Input{Text: transcript}

	default:
		log.Warn("unsupported attachment kind", slog.String("kind", string(ref.Kind)))
		return true, flow.Input{}
	}
}

func (p *Processor) persist(ctx context.Context, log *slog.Logger, ev telegram.Event, state flow.State, draft flow.Draft) bool {
	if err := p.sessions.Put(ctx, ev.ChatID, state, draft, ev.Text); err != nil {
		log.Error("persist session failed", slog.String("state", string(state)), slog.Any("error", err))
		return false
	}
	return true
}

func (p *Processor) reply(ctx context.Context, log *slog.Logger, chatID, text string) {
	if text == "" {
		return
	}
	if err := p.sender.Send(ctx, chatID, text); err != nil {
		log.Error("send reply failed", slog.Any("error", err))
	}
}

// lockChat acquires the per-chat mutex and returns its release func. Lock
// entries are reference counted and removed when idle so the map does not
// grow with the lifetime set of chats.
func (p *Processor) lockChat(chatID string) func() {
	p.locksMu.Lock()
	l, ok := p.locks[chatID]
	if !ok {
		l = &chatLock{}
		p.locks[chatID] = l
	}
	l.refs++
	p.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, chatID)
		}
		p.locksMu.Unlock()
	}
}

// SetIDGenerator overrides listing ID generation. Intended for tests.
func (p *Processor) SetIDGenerator(fn func() string) {
	if fn != nil {
		p.newID = fn
	}
}
