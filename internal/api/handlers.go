package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain"
	"github.com/satriahrh/ticketgpt/domain/entities"
	"github.com/satriahrh/ticketgpt/domain/repositories"
	"github.com/satriahrh/ticketgpt/internal/auth"
	"github.com/satriahrh/ticketgpt/internal/ui"
)

const (
	responseFileName  = "response.txt"
	defaultSpeechType = "audio/mpeg"
	indexTemplate     = "index.html"
)

// QueryService is the question answering pipeline behind the HTTP surface
type QueryService interface {
	SaveAudio(ctx context.Context, audio []byte, extension string) (*entities.AudioClip, error)
	AskVoice(ctx context.Context, clipName string) (*domain.QueryResult, error)
	AskLatestVoice(ctx context.Context) (*domain.QueryResult, error)
	AskAudio(ctx context.Context, audio []byte, extension string) (*domain.QueryResult, error)
	AskText(ctx context.Context, query string) (*domain.QueryResult, error)
	LastResponse(ctx context.Context) (string, error)
	History(ctx context.Context, limit int) ([]*entities.Exchange, error)
	Dataset(ctx context.Context) (*repositories.DatasetInfo, error)
}

// Handler serves the page and the JSON API
type Handler struct {
	service QueryService
	signer  *auth.HandleSigner
	tts     repositories.TextToSpeech
	logger  *zap.Logger
}

// NewHandler creates a handler. tts may be nil when speech synthesis is not configured.
func NewHandler(service QueryService, signer *auth.HandleSigner, tts repositories.TextToSpeech, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		signer:  signer,
		tts:     tts,
		logger:  logger,
	}
}

// StatusForCode maps an error code to its HTTP status
func StatusForCode(code string) int {
	switch code {
	case domain.CodeNoAudio, domain.CodeNoResponse:
		return http.StatusNotFound
	case domain.CodeInvalidHandle, domain.CodeInvalidRequest:
		return http.StatusBadRequest
	case domain.CodeTranscriptionFailed, domain.CodeAgentFailed:
		return http.StatusBadGateway
	case domain.CodeTTSDisabled:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) errorResponse(err error) (int, ErrorResponse) {
	code := domain.ErrorCode(err)
	status := StatusForCode(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
		message = "Internal server error"
	} else {
		h.logger.Warn("Request rejected", zap.String("code", code), zap.Error(err))
	}

	return status, ErrorResponse{Error: code, Message: message}
}

func (h *Handler) errorJSON(c echo.Context, err error) error {
	status, resp := h.errorResponse(err)
	return c.JSON(status, resp)
}

func invalidRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   domain.CodeInvalidRequest,
		Message: message,
	})
}

func (h *Handler) pageData(tab string) ui.PageData {
	if tab != ui.TabChat {
		tab = ui.TabSpeak
	}
	return ui.PageData{ActiveTab: tab, TTSEnabled: h.tts != nil}
}

// Index renders the page with the tab named by ?tab=
func (h *Handler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, indexTemplate, h.pageData(c.QueryParam("tab")))
}

// SpeakForm answers an uploaded file or the recording named by the recorder's handle
func (h *Handler) SpeakForm(c echo.Context) error {
	data := h.pageData(ui.TabSpeak)
	ctx := c.Request().Context()

	var (
		result *domain.QueryResult
		err    error
	)
	if audio, ext, ok, readErr := readFormAudio(c); readErr != nil {
		err = readErr
	} else if ok {
		result, err = h.service.AskAudio(ctx, audio, ext)
	} else if handle := strings.TrimSpace(c.FormValue("handle")); handle != "" {
		result, err = h.askHandle(ctx, handle)
	} else {
		err = domain.ErrMissingAudio
	}

	if err != nil {
		status, resp := h.errorResponse(err)
		data.Error = resp.Message
		return c.Render(status, indexTemplate, data)
	}

	data.Voice = result
	return c.Render(http.StatusOK, indexTemplate, data)
}

// ChatForm answers the typed query and re-renders the chat tab
func (h *Handler) ChatForm(c echo.Context) error {
	data := h.pageData(ui.TabChat)
	query := strings.TrimSpace(c.FormValue("query"))
	data.Query = query

	if query == "" {
		data.Error = "Please enter a question"
		return c.Render(http.StatusBadRequest, indexTemplate, data)
	}

	result, err := h.service.AskText(c.Request().Context(), query)
	if err != nil {
		status, resp := h.errorResponse(err)
		data.Error = resp.Message
		return c.Render(status, indexTemplate, data)
	}

	data.Chat = result
	return c.Render(http.StatusOK, indexTemplate, data)
}

// readFormAudio reads the optional "audio" file field.
// ok is false when no file was attached.
func readFormAudio(c echo.Context) ([]byte, string, bool, error) {
	file, err := c.FormFile("audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", false, nil
		}
		return nil, "", false, fmt.Errorf("failed to read uploaded audio: %w", err)
	}
	if file.Size == 0 {
		return nil, "", false, nil
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", false, err
	}
	defer src.Close()

	audio, err := io.ReadAll(src)
	if err != nil {
		return nil, "", false, err
	}

	return audio, filepath.Ext(file.Filename), true, nil
}

func (h *Handler) askHandle(ctx context.Context, handle string) (*domain.QueryResult, error) {
	clip, err := h.signer.ParseClipHandle(handle)
	if err != nil {
		return nil, err
	}
	return h.service.AskVoice(ctx, clip)
}

// SaveAudio stores the raw request body as a clip and returns a handle to it
func (h *Handler) SaveAudio(c echo.Context) error {
	audio, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return invalidRequest(c, "Failed to read request body")
	}
	if len(audio) == 0 {
		return invalidRequest(c, "Audio body is required")
	}

	clip, err := h.service.SaveAudio(c.Request().Context(), audio, c.QueryParam("extension"))
	if err != nil {
		return h.errorJSON(c, err)
	}

	handle, expiresAt, err := h.signer.IssueClipHandle(clip.Name)
	if err != nil {
		return h.errorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, AudioSavedResponse{
		ClipName:  clip.Name,
		Handle:    handle,
		ExpiresAt: expiresAt,
		Size:      clip.Size,
	})
}

// Speak answers a stored clip named by handle or raw audio in the body.
// The newest stored clip is used only when the JSON body sets latest.
func (h *Handler) Speak(c echo.Context) error {
	ctx := c.Request().Context()
	contentType := c.Request().Header.Get(echo.HeaderContentType)

	var (
		result *domain.QueryResult
		err    error
	)
	if strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		var req SpeakRequest
		if err := c.Bind(&req); err != nil {
			return invalidRequest(c, "Invalid request format")
		}
		switch handle := strings.TrimSpace(req.Handle); {
		case handle != "":
			result, err = h.askHandle(ctx, handle)
		case req.Latest:
			result, err = h.service.AskLatestVoice(ctx)
		default:
			err = domain.ErrMissingAudio
		}
	} else {
		audio, readErr := io.ReadAll(c.Request().Body)
		if readErr != nil {
			return invalidRequest(c, "Failed to read request body")
		}
		if len(audio) == 0 {
			return h.errorJSON(c, domain.ErrMissingAudio)
		}
		result, err = h.service.AskAudio(ctx, audio, c.QueryParam("extension"))
	}

	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Chat answers a typed query
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c, "Invalid request format")
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return invalidRequest(c, "Query is required")
	}

	result, err := h.service.AskText(c.Request().Context(), query)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// DownloadResponse serves the last answer as a response.txt attachment
func (h *Handler) DownloadResponse(c echo.Context) error {
	text, err := h.service.LastResponse(c.Request().Context())
	if err != nil {
		return h.errorJSON(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", responseFileName))
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(text))
}

// Dataset describes the dataset the agent answers over
func (h *Handler) Dataset(c echo.Context) error {
	info, err := h.service.Dataset(c.Request().Context())
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// History lists recent exchanges
func (h *Handler) History(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return invalidRequest(c, "limit must be a non-negative integer")
		}
		limit = parsed
	}

	exchanges, err := h.service.History(c.Request().Context(), limit)
	if err != nil {
		return h.errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, HistoryResponse{
		Exchanges: exchanges,
		Count:     len(exchanges),
	})
}

// Speech streams synthesized audio for ?text=
func (h *Handler) Speech(c echo.Context) error {
	if h.tts == nil {
		return h.errorJSON(c, domain.ErrTTSDisabled)
	}

	text := strings.TrimSpace(c.QueryParam("text"))
	if text == "" {
		return invalidRequest(c, "text is required")
	}

	chunks, err := h.tts.ConvertTextToSpeech(c.Request().Context(), text)
	if err != nil {
		return h.errorJSON(c, err)
	}

	contentType := defaultSpeechType
	if typed, ok := h.tts.(interface{ ContentType() string }); ok {
		contentType = typed.ContentType()
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentType)
	res.WriteHeader(http.StatusOK)

	for chunk := range chunks {
		if _, err := res.Write(chunk); err != nil {
			h.logger.Warn("Client went away during speech stream", zap.Error(err))
			break
		}
		res.Flush()
	}

	// drain so the producer can exit
	for range chunks {
	}

	return nil
}
