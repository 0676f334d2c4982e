// Package media processes inbound attachments: photos are uploaded to the
// object store and vision-analyzed, PDFs are reduced to plain text, voice
// notes are transcribed. Handlers are stateless and attempted once per
// inbound event; on failure the user resends, which retries the whole
// operation.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// visionPrompt is the fixed analysis prompt for listing photos.
const visionPrompt = "Describe this property photo for a real-estate listing: " +
	"room or area shown, notable features, and overall condition. Two sentences."

// Service implements the three attachment handlers.
type Service struct {
	fetcher  Fetcher
	uploader Uploader
	analyzer Analyzer
	logger   *slog.Logger
}

// NewService creates the media pipeline.
func NewService(log *slog.Logger, fetcher Fetcher, uploader Uploader, analyzer Analyzer) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		fetcher:  fetcher,
		uploader: uploader,
		analyzer: analyzer,
		logger:   log.With(slog.String("service", "media")),
	}
}

// ProcessImage fetches the photo, uploads it under the listing's namespace,
// and analyzes the uploaded URL. With an empty listingID the image is
// freestanding: the object is deleted again after analysis.
func (s *Service) ProcessImage(ctx context.Context, ref Ref, listingID string) (ImageResult, error) {
	data, err := s.fetcher.FetchAttachment(ctx, ref)
	if err != nil {
		return ImageResult{}, s.fail(ref, "fetch image", err)
	}

	key := imageKey(listingID, ref)
	url, err := s.uploader.Upload(ctx, key, imageMime(ref.Mime), bytes.NewReader(data))
	if err != nil {
		return ImageResult{}, s.fail(ref, "upload image", err)
	}

	analysis, err := s.analyzer.AnalyzeImage(ctx, url, visionPrompt)
	if err != nil {
		if listingID == "" {
			s.deleteQuietly(ctx, key)
		}
		return ImageResult{}, s.fail(ref, "analyze image", err)
	}

	if listingID == "" {
		// Freestanding image: the upload only existed to give the vision
		// model a URL to read.
		s.deleteQuietly(ctx, key)
		return ImageResult{Analysis: analysis}, nil
	}
	return ImageResult{URL: url, Analysis: analysis}, nil
}

// ProcessDocument fetches a document and extracts its plain text. Non-PDF
// payloads are rejected.
func (s *Service) ProcessDocument(ctx context.Context, ref Ref) (string, error) {
	data, err := s.fetcher.FetchAttachment(ctx, ref)
	if err != nil {
		return "", s.fail(ref, "fetch document", err)
	}
	text, err := ExtractPDFText(data)
	if err != nil {
		return "", s.fail(ref, "extract document text", err)
	}
	return text, nil
}

// ProcessVoice fetches a voice note and transcribes it.
func (s *Service) ProcessVoice(ctx context.Context, ref Ref) (string, error) {
	data, err := s.fetcher.FetchAttachment(ctx, ref)
	if err != nil {
		return "", s.fail(ref, "fetch voice", err)
	}
	name := ref.Name
	if name == "" {
		name = "voice.ogg"
	}
	transcript, err := s.analyzer.Transcribe(ctx, data, name)
	if err != nil {
		return "", s.fail(ref, "transcribe voice", err)
	}
	return transcript, nil
}

// ExtractPDFText converts a PDF payload to plain text.
func ExtractPDFText(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", ErrUnsupportedDocument
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// fail logs the full cause and returns the single user-facing error kind.
func (s *Service) fail(ref Ref, stage string, err error) error {
	s.logger.Error("attachment processing failed",
		slog.String("stage", stage),
		slog.String("kind", string(ref.Kind)),
		slog.String("file_id", ref.FileID),
		slog.Any("error", err),
	)
	return fmt.Errorf("%w: %s", ErrAttachmentProcessing, stage)
}

func (s *Service) deleteQuietly(ctx context.Context, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.Warn("delete ephemeral object failed", slog.String("key", key), slog.Any("error", err))
	}
}

func imageKey(listingID string, ref Ref) string {
	namespace := "adhoc"
	if listingID != "" {
		namespace = path.Join("listings", listingID)
	}
	ext := extensionFromMime(ref.Mime)
	return path.Join(namespace, uuid.NewString()+ext)
}

func imageMime(mime string) string {
	if strings.TrimSpace(mime) == "" {
		return "image/jpeg"
	}
	return mime
}

func extensionFromMime(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
