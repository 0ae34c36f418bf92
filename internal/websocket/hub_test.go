package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/ticketgpt/domain"
	"github.com/satriahrh/ticketgpt/domain/entities"
	"github.com/satriahrh/ticketgpt/internal/metrics"
)

type fakeQueryService struct {
	mu         sync.Mutex
	saved      map[string][]byte
	savedExt   string
	transcript string
	textErr    error
	answerErr  error
	answered   int
}

func newFakeQueryService() *fakeQueryService {
	return &fakeQueryService{saved: make(map[string][]byte), transcript: "show ticket 5"}
}

func (f *fakeQueryService) AskText(ctx context.Context, query string) (*domain.QueryResult, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	return &domain.QueryResult{
		ExchangeID: "ex-text",
		Source:     entities.ExchangeSourceText,
		Query:      query,
		Answer:     "ANSWER: " + query,
		Speech:     domain.SpeechPayload{Text: "ANSWER: " + query, Lang: "en-US"},
	}, nil
}

func (f *fakeQueryService) SaveAudio(ctx context.Context, audio []byte, extension string) (*entities.AudioClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := fmt.Sprintf("audio_20230101_00000%d.%s", len(f.saved), extension)
	f.saved[name] = audio
	f.savedExt = extension
	return &entities.AudioClip{Name: name, Extension: extension, Size: int64(len(audio))}, nil
}

func (f *fakeQueryService) TranscribeAudio(ctx context.Context, clipName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.saved[clipName]; !ok {
		return "", domain.ErrNoAudio
	}
	return f.transcript, nil
}

func (f *fakeQueryService) AnswerTranscript(ctx context.Context, clipName, transcript string) (*domain.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered++
	if f.answerErr != nil {
		return nil, f.answerErr
	}
	answer := "ANSWER: " + transcript
	return &domain.QueryResult{
		ExchangeID: "ex-voice",
		Source:     entities.ExchangeSourceVoice,
		ClipName:   clipName,
		Transcript: transcript,
		Query:      transcript,
		Answer:     answer,
		Speech:     domain.SpeechPayload{Text: answer, Lang: "en-US"},
	}, nil
}

type testServer struct {
	hub     *Hub
	service *fakeQueryService
	metrics *metrics.Metrics
	url     string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	service := newFakeQueryService()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	hub := NewHub(service, m, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c)
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	return &testServer{
		hub:     hub,
		service: service,
		metrics: m,
		url:     "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("Failed to write message: %v", err)
	}
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode message %s: %v", data, err)
	}
	return msg
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients, got %d", want, hub.ClientCount())
}

func TestHub_PingPong(t *testing.T) {
	ts := setupTestServer(t)
	conn := dial(t, ts.url)

	sendJSON(t, conn, map[string]string{"type": "ping"})

	msg := readJSON(t, conn)
	if msg["type"] != "pong" {
		t.Errorf("Expected pong, got %v", msg)
	}
}

func TestHub_Chat(t *testing.T) {
	ts := setupTestServer(t)
	conn := dial(t, ts.url)

	sendJSON(t, conn, map[string]string{"type": "chat", "query": "how many tickets?"})

	msg := readJSON(t, conn)
	if msg["type"] != "answer" {
		t.Fatalf("Expected answer, got %v", msg)
	}
	if msg["answer"] != "ANSWER: how many tickets?" {
		t.Errorf("Unexpected answer %v", msg["answer"])
	}
	if msg["exchange_id"] != "ex-text" {
		t.Errorf("Unexpected exchange id %v", msg["exchange_id"])
	}
}

func TestHub_ChatFailure(t *testing.T) {
	ts := setupTestServer(t)
	ts.service.textErr = fmt.Errorf("%w: %w", domain.ErrAgentFailed, errors.New("quota"))
	conn := dial(t, ts.url)

	sendJSON(t, conn, map[string]string{"type": "chat", "query": "q"})

	msg := readJSON(t, conn)
	if msg["type"] != "error" || msg["error_code"] != "agent_failed" {
		t.Errorf("Expected agent_failed error, got %v", msg)
	}
}

func TestHub_VoiceRecording(t *testing.T) {
	ts := setupTestServer(t)
	conn := dial(t, ts.url)

	sendJSON(t, conn, map[string]string{"type": "listening_start", "extension": "webm"})
	for _, chunk := range [][]byte{{0x1a, 0x45}, {0xdf, 0xa3}} {
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			t.Fatalf("Failed to write chunk: %v", err)
		}
	}
	sendJSON(t, conn, map[string]string{"type": "listening_end"})

	transcript := readJSON(t, conn)
	if transcript["type"] != "transcript" || transcript["transcript"] != "show ticket 5" {
		t.Fatalf("Expected transcript, got %v", transcript)
	}

	answer := readJSON(t, conn)
	if answer["type"] != "answer" || answer["answer"] != "ANSWER: show ticket 5" {
		t.Fatalf("Expected answer, got %v", answer)
	}

	ts.service.mu.Lock()
	defer ts.service.mu.Unlock()
	if ts.service.savedExt != "webm" {
		t.Errorf("Expected webm clip, got %s", ts.service.savedExt)
	}
	for _, audio := range ts.service.saved {
		if string(audio) != string([]byte{0x1a, 0x45, 0xdf, 0xa3}) {
			t.Errorf("Unexpected recording %x", audio)
		}
	}
}

func TestHub_VoiceNoSpeech(t *testing.T) {
	ts := setupTestServer(t)
	ts.service.transcript = ""
	conn := dial(t, ts.url)

	sendJSON(t, conn, map[string]string{"type": "listening_start"})
	sendJSON(t, conn, map[string]string{"type": "listening_end"})

	msg := readJSON(t, conn)
	if msg["type"] != "transcript" || msg["no_speech"] != true {
		t.Fatalf("Expected no speech transcript, got %v", msg)
	}

	sendJSON(t, conn, map[string]string{"type": "ping"})
	if next := readJSON(t, conn); next["type"] != "pong" {
		t.Errorf("Expected no answer after empty transcript, got %v", next)
	}

	ts.service.mu.Lock()
	defer ts.service.mu.Unlock()
	if ts.service.answered != 0 {
		t.Error("Agent step should not run for an empty transcript")
	}
}

func TestHub_VoiceTranscriptBeforeAgentFailure(t *testing.T) {
	ts := setupTestServer(t)
	ts.service.answerErr = fmt.Errorf("%w: %w", domain.ErrAgentFailed, errors.New("quota"))
	conn := dial(t, ts.url)

	sendJSON(t, conn, map[string]string{"type": "listening_start", "extension": "webm"})
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x1a, 0x45}); err != nil {
		t.Fatalf("Failed to write chunk: %v", err)
	}
	sendJSON(t, conn, map[string]string{"type": "listening_end"})

	transcript := readJSON(t, conn)
	if transcript["type"] != "transcript" || transcript["transcript"] != "show ticket 5" {
		t.Fatalf("Expected transcript before the agent result, got %v", transcript)
	}

	failure := readJSON(t, conn)
	if failure["type"] != "error" || failure["error_code"] != "agent_failed" {
		t.Errorf("Expected agent_failed error, got %v", failure)
	}
}

func TestHub_BinaryWithoutListeningStart(t *testing.T) {
	ts := setupTestServer(t)
	conn := dial(t, ts.url)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x00}); err != nil {
		t.Fatalf("Failed to write chunk: %v", err)
	}

	msg := readJSON(t, conn)
	if msg["type"] != "error" || msg["error_code"] != "invalid_request" {
		t.Errorf("Expected invalid_request error, got %v", msg)
	}
}

func TestHub_InvalidMessage(t *testing.T) {
	ts := setupTestServer(t)
	conn := dial(t, ts.url)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to write message: %v", err)
	}

	msg := readJSON(t, conn)
	if msg["type"] != "error" {
		t.Errorf("Expected error, got %v", msg)
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	ts := setupTestServer(t)

	conn := dial(t, ts.url)
	waitForClients(t, ts.hub, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitForClients(t, ts.hub, 0)
}
