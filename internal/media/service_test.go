package media_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Salmanazari/keylybot/internal/media"
)

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) FetchAttachment(ctx context.Context, ref media.Ref) ([]byte, error) {
	return f.data, f.err
}

type fakeUploader struct {
	uploads []string
	deletes []string
	err     error
}

func (u *fakeUploader) Upload(ctx context.Context, key, mime string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.uploads = append(u.uploads, key)
	return "https://storage.googleapis.com/test-bucket/" + key, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.deletes = append(u.deletes, key)
	return nil
}

type fakeAnalyzer struct {
	analysis   string
	transcript string
	err        error
}

func (a *fakeAnalyzer) AnalyzeImage(ctx context.Context, url, prompt string) (string, error) {
	return a.analysis, a.err
}

func (a *fakeAnalyzer) Transcribe(ctx context.Context, audio []byte, name string) (string, error) {
	return a.transcript, a.err
}

func newService(f *fakeFetcher, u *fakeUploader, a *fakeAnalyzer) *media.Service {
	return media.NewService(nil, f, u, a)
}

func TestProcessImage_UploadsUnderListingNamespace(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{}
	svc := newService(
		&fakeFetcher{data: []byte("jpegbytes")},
		uploader,
		&fakeAnalyzer{analysis: "A bright kitchen."},
	)
	result, err := svc.ProcessImage(context.Background(), media.Ref{Kind: media.KindImage, FileID: "f1", Mime: "image/jpeg"}, "lst-1")
	require.NoError(t, err)
	assert.Contains(t, result.URL, "/listings/lst-1/")
	assert.Equal(t, "A bright kitchen.", result.Analysis)
	require.Len(t, uploader.uploads, 1)
	assert.True(t, strings.HasPrefix(uploader.uploads[0], "listings/lst-1/"))
	assert.Empty(t, uploader.deletes, "listing images are kept")
}

func TestProcessImage_FreestandingIsEphemeral(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{}
	svc := newService(
		&fakeFetcher{data: []byte("jpegbytes")},
		uploader,
		&fakeAnalyzer{analysis: "A sunny balcony."},
	)
	result, err := svc.ProcessImage(context.Background(), media.Ref{Kind: media.KindImage, FileID: "f1"}, "")
	require.NoError(t, err)
	assert.Empty(t, result.URL)
	assert.Equal(t, "A sunny balcony.", result.Analysis)
	require.Len(t, uploader.uploads, 1)
	assert.True(t, strings.HasPrefix(uploader.uploads[0], "adhoc/"))
	assert.Equal(t, uploader.uploads, uploader.deletes, "adhoc object must be deleted after analysis")
}

func TestProcessImage_FailureMapsToUserFacingKind(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		f    *fakeFetcher
		u    *fakeUploader
		a    *fakeAnalyzer
	}{
		{"fetch fails", &fakeFetcher{err: errors.New("404")}, &fakeUploader{}, &fakeAnalyzer{}},
		{"upload fails", &fakeFetcher{data: []byte("x")}, &fakeUploader{err: errors.New("denied")}, &fakeAnalyzer{}},
		{"analysis fails", &fakeFetcher{data: []byte("x")}, &fakeUploader{}, &fakeAnalyzer{err: errors.New("rate limited")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := newService(tc.f, tc.u, tc.a)
			_, err := svc.ProcessImage(context.Background(), media.Ref{Kind: media.KindImage}, "lst-1")
			assert.ErrorIs(t, err, media.ErrAttachmentProcessing)
		})
	}
}

func TestProcessDocument_RejectsNonPDF(t *testing.T) {
	t.Parallel()
	svc := newService(&fakeFetcher{data: []byte("plain text, not a pdf")}, &fakeUploader{}, &fakeAnalyzer{})
	_, err := svc.ProcessDocument(context.Background(), media.Ref{Kind: media.KindDocument, Name: "notes.txt"})
	assert.ErrorIs(t, err, media.ErrAttachmentProcessing)
}

func TestExtractPDFText_RejectsNonPDF(t *testing.T) {
	t.Parallel()
	_, err := media.ExtractPDFText([]byte("hello"))
	assert.ErrorIs(t, err, media.ErrUnsupportedDocument)
}

func TestProcessVoice_ReturnsTranscript(t *testing.T) {
	t.Parallel()
	svc := newService(
		&fakeFetcher{data: []byte("oggbytes")},
		&fakeUploader{},
		&fakeAnalyzer{transcript: "three bedrooms"},
	)
	text, err := svc.ProcessVoice(context.Background(), media.Ref{Kind: media.KindVoice})
	require.NoError(t, err)
	assert.Equal(t, "three bedrooms", text)
}

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()
	data, err := media.ReadAllWithLimit(strings.NewReader("hello"), 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = media.ReadAllWithLimit(strings.NewReader("hello world"), 5)
	assert.ErrorIs(t, err, media.ErrAttachmentTooLarge)
}
