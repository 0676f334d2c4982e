package media

import "errors"

var (
	// ErrAttachmentProcessing is the single user-facing failure kind for
	// the whole pipeline: the user is asked to resend, which retries the
	// operation naturally. Full causes are logged, never sent to the user.
	ErrAttachmentProcessing = errors.New("could not process this attachment, please resend")
	// ErrUnsupportedDocument indicates a non-PDF document.
	ErrUnsupportedDocument = errors.New("only PDF documents are supported")
	// ErrAttachmentTooLarge indicates the payload exceeds the size limit.
	ErrAttachmentTooLarge = errors.New("attachment too large")
)
