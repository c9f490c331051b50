package app

import (
	"errors"

	"vaultai/internal/backend"
)

var (
	ErrQuestionEmpty    = errors.New("question is empty")
	ErrQuestionInFlight = errors.New("a question is already being answered")
	ErrPermissionDenied = errors.New("microphone access denied")
	ErrCaptureActive    = errors.New("capture session already active")
	ErrNotRecording     = errors.New("no capture session is recording")
	ErrCitationNotFound = errors.New("citation not found")
)

// AlertMessage renders err the way the session surfaces terminal failures
// to the user.
func AlertMessage(err error) string {
	if err == nil {
		return ""
	}
	var serverErr *backend.ServerError
	switch {
	case errors.As(err, &serverErr):
		return "Error: " + serverErr.Error()
	case errors.Is(err, backend.ErrTransport):
		return "Network error: " + err.Error()
	case errors.Is(err, ErrPermissionDenied):
		return "Error accessing microphone: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
