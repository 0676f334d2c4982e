package media

import (
	"context"
	"io"
)

// Kind classifies an inbound attachment.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindVoice    Kind = "voice"
)

// Ref identifies an attachment on the chat transport.
type Ref struct {
	Kind   Kind
	FileID string
	Name   string
	Mime   string
}

// Fetcher resolves an attachment reference to its raw bytes. The Telegram
// adapter implements this by resolving the file ID to a download URL and
// fetching it with a bounded timeout.
type Fetcher interface {
	FetchAttachment(ctx context.Context, ref Ref) ([]byte, error)
}

// Uploader is the object store boundary.
type Uploader interface {
	Upload(ctx context.Context, key, mime string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// Analyzer is the AI boundary.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, url, prompt string) (string, error)
	Transcribe(ctx context.Context, audio []byte, name string) (string, error)
}

// ImageResult is the outcome of processing one photo.
type ImageResult struct {
	// URL is the uploaded object's public URL. Empty for ephemeral
	// (freestanding) images whose object was deleted after analysis.
	URL      string
	Analysis string
}
