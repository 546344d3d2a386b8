package voice

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when the mic is pressed while a transcription is pending.
	ErrBusy = errors.New("voice: transcription in progress")

	// ErrNotRecording is returned by StopRecording outside the Recording state.
	ErrNotRecording = errors.New("voice: not recording")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("voice: session closed")

	// ErrEmptyTranscript is reported when the transcriber returns no text.
	ErrEmptyTranscript = errors.New("voice: empty transcript")
)

// DeviceAccessError reports that the microphone could not be acquired.
type DeviceAccessError struct {
	Err error
}

func (e *DeviceAccessError) Error() string {
	return fmt.Sprintf("voice: microphone unavailable: %v", e.Err)
}

func (e *DeviceAccessError) Unwrap() error {
	return e.Err
}

// TranscriptionError reports that captured audio could not be turned into text.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("voice: transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}
