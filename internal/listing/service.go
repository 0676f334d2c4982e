// Package listing persists finalized property listings to the record store:
// one spreadsheet row per listing, appended through the Google Sheets API.
package listing

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Salmanazari/keylybot/internal/config"
	"github.com/Salmanazari/keylybot/internal/retry"
)

// Appender appends one row of values to the record backend and returns a
// reference to the written range.
type Appender interface {
	Append(ctx context.Context, values []any) (string, error)
}

// Service writes listings through an Appender with the shared retry policy.
type Service struct {
	appender Appender
	attempts int
	logger   *slog.Logger
}

// NewService creates a listing service on top of an Appender.
func NewService(log *slog.Logger, appender Appender) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		appender: appender,
		attempts: retry.DefaultAttempts,
		logger:   log.With(slog.String("service", "listing")),
	}
}

// Append persists the listing and returns the backend row reference. The
// caller (the orchestrator) guarantees at-most-once per confirmation via the
// flow's confirmation gate; the backend itself does not deduplicate.
func (s *Service) Append(ctx context.Context, l PendingListing) (string, error) {
	var ref string
	err := retry.Do(ctx, s.attempts, retry.DefaultBaseDelay, func(ctx context.Context) error {
		var err error
		ref, err = s.appender.Append(ctx, l.Row())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("append listing %s: %w", l.ID, err)
	}
	s.logger.Info("listing persisted",
		slog.String("listing_id", l.ID),
		slog.String("row_ref", ref),
	)
	return ref, nil
}

// SheetsAppender implements Appender against a Google Sheets spreadsheet.
type SheetsAppender struct {
	svc           *sheets.Service
	spreadsheetID string
	writeRange    string
}

// NewSheetsAppender builds the Sheets client from config. Credentials come
// from the configured service-account file, or application default
// credentials when unset.
func NewSheetsAppender(ctx context.Context, cfg config.SheetsConfig) (*SheetsAppender, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init sheets client: %w", err)
	}
	writeRange := cfg.Range
	if writeRange == "" {
		writeRange = config.DefaultSheetRange
	}
	return &SheetsAppender{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		writeRange:    writeRange,
	}, nil
}

// Append performs a values.append call and returns the updated range.
func (a *SheetsAppender) Append(ctx context.Context, values []any) (string, error) {
	body := &sheets.ValueRange{Values: [][]any{values}}
	resp, err := a.svc.Spreadsheets.Values.
		Append(a.spreadsheetID, a.writeRange, body).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("sheets append: %w", err)
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return "", nil
}
