package domain

import "errors"

var (
	// ErrInitialization is fatal to the job and must stop it before any frame is dispatched.
	ErrInitialization  = errors.New("initialization failed")
	ErrFrameProcessing = errors.New("frame processing failed")
	ErrSubtitleParse   = errors.New("subtitle parse failed")
	ErrInvalidProgress = errors.New("progress out of range")
)

type ProgressReporter interface {
	PublishProgress(percent int) error
}
