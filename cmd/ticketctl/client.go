package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain"
	"github.com/satriahrh/ticketgpt/internal/api"
)

const wsChunkSize = 1024

// Client talks to a running server over the JSON API and the WebSocket channel
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Chat asks a typed question
func (c *Client) Chat(query string) (*domain.QueryResult, error) {
	body, err := json.Marshal(api.ChatRequest{Query: query})
	if err != nil {
		return nil, err
	}

	var result domain.QueryResult
	if err := c.post("/api/v1/chat", "application/json", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Speak uploads audio and returns the answer to what was said
func (c *Client) Speak(audio []byte, fileName string) (*domain.QueryResult, error) {
	path := "/api/v1/speak?extension=" + url.QueryEscape(extensionOf(fileName))

	var result domain.QueryResult
	if err := c.post(path, "application/octet-stream", audio, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(path, contentType string, body []byte, out interface{}) error {
	resp, err := c.httpClient.Post(c.baseURL+path, contentType, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s: %s", errResp.Error, errResp.Message)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(data))
	}

	return json.Unmarshal(data, out)
}

// wsMessage is the subset of server messages the client reads
type wsMessage struct {
	Type       string               `json:"type"`
	Transcript string               `json:"transcript"`
	NoSpeech   bool                 `json:"no_speech"`
	Answer     string               `json:"answer"`
	Speech     domain.SpeechPayload `json:"speech"`
	ErrorCode  string               `json:"error_code"`
	Message    string               `json:"message"`
}

// Stream sends audio over the WebSocket channel in chunks and waits for the answer.
// onMessage is called for every server message until the exchange completes.
func (c *Client) Stream(audio []byte, fileName string, onMessage func(wsMessage)) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"

	c.logger.Info("Connecting", zap.String("url", u.String()))
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	start := map[string]string{"type": "listening_start", "extension": extensionOf(fileName)}
	if err := conn.WriteJSON(start); err != nil {
		return err
	}

	for offset := 0; offset < len(audio); offset += wsChunkSize {
		end := offset + wsChunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[offset:end]); err != nil {
			return fmt.Errorf("sending chunk at %d: %w", offset, err)
		}
	}
	c.logger.Info("Sent recording", zap.Int("bytes", len(audio)))

	if err := conn.WriteJSON(map[string]string{"type": "listening_end"}); err != nil {
		return err
	}

	for {
		conn.SetReadDeadline(time.Now().Add(c.httpClient.Timeout))

		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		onMessage(msg)

		switch {
		case msg.Type == "answer":
			return closeNormally(conn)
		case msg.Type == "transcript" && msg.NoSpeech:
			return closeNormally(conn)
		case msg.Type == "error":
			closeNormally(conn)
			return fmt.Errorf("%s: %s", msg.ErrorCode, msg.Message)
		}
	}
}

func closeNormally(conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func extensionOf(fileName string) string {
	return strings.TrimPrefix(filepath.Ext(fileName), ".")
}
