package domain

import "errors"

var (
	// ErrNoAudio is returned when no stored audio clip can be found
	ErrNoAudio = errors.New("no audio available")

	// ErrNoResponse is returned when no answer has been written yet
	ErrNoResponse = errors.New("no response available")

	// ErrMissingAudio is returned when a voice request names neither a recording nor an uploaded file
	ErrMissingAudio = errors.New("no recording or audio file supplied")

	// ErrInvalidHandle is returned for clip handles that fail verification
	ErrInvalidHandle = errors.New("invalid clip handle")

	// ErrInvalidClipName is returned for names that do not identify a stored clip
	ErrInvalidClipName = errors.New("invalid clip name")

	// ErrUnsupportedExtension is returned for audio extensions that are not a plain file suffix
	ErrUnsupportedExtension = errors.New("unsupported audio extension")

	// ErrTranscriptionFailed wraps any failure of the speech-to-text provider
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrAgentFailed wraps any failure of the tabular question answering agent
	ErrAgentFailed = errors.New("agent failed")

	// ErrTTSDisabled is returned when server-side speech synthesis is not configured
	ErrTTSDisabled = errors.New("text-to-speech is not configured")
)

// Error codes reported to clients
const (
	CodeNoAudio             = "no_audio"
	CodeNoResponse          = "no_response"
	CodeInvalidHandle       = "invalid_handle"
	CodeInvalidRequest      = "invalid_request"
	CodeTranscriptionFailed = "transcription_failed"
	CodeAgentFailed         = "agent_failed"
	CodeTTSDisabled         = "tts_disabled"
	CodeInternal            = "internal_error"
)

// ErrorCode classifies err into one of the client-facing error codes
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNoAudio):
		return CodeNoAudio
	case errors.Is(err, ErrNoResponse):
		return CodeNoResponse
	case errors.Is(err, ErrInvalidHandle):
		return CodeInvalidHandle
	case errors.Is(err, ErrMissingAudio), errors.Is(err, ErrInvalidClipName), errors.Is(err, ErrUnsupportedExtension):
		return CodeInvalidRequest
	case errors.Is(err, ErrTranscriptionFailed):
		return CodeTranscriptionFailed
	case errors.Is(err, ErrAgentFailed):
		return CodeAgentFailed
	case errors.Is(err, ErrTTSDisabled):
		return CodeTTSDisabled
	default:
		return CodeInternal
	}
}
