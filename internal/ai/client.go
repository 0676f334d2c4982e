// Package ai wraps the OpenAI API behind the two calls the bot needs:
// vision analysis of an image URL and voice transcription.
package ai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Salmanazari/keylybot/internal/config"
)

// Client is a thin bounded-timeout wrapper over the OpenAI client.
type Client struct {
	api                *openai.Client
	visionModel        string
	transcriptionModel string
	timeout            time.Duration
	logger             *slog.Logger
}

// NewClient builds the OpenAI client from config.
func NewClient(log *slog.Logger, cfg config.OpenAIConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = config.DefaultVisionModel
	}
	transcriptionModel := cfg.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = config.DefaultTranscriptionModel
	}
	return &Client{
		api:                openai.NewClientWithConfig(clientCfg),
		visionModel:        visionModel,
		transcriptionModel: transcriptionModel,
		timeout:            timeout,
		logger:             log.With(slog.String("service", "ai")),
	}
}

// AnalyzeImage asks the vision model to describe the image at url.
func (c *Client) AnalyzeImage(ctx context.Context, url, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: url},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Transcribe converts raw audio bytes to text. name carries the original
// filename so the API can infer the container format.
func (c *Client) Transcribe(ctx context.Context, audio []byte, name string) (string, error) {
	if name == "" {
		name = "voice.ogg"
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		Reader:   bytes.NewReader(audio),
		FilePath: name,
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
