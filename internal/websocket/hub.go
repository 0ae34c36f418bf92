package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain"
	"github.com/satriahrh/ticketgpt/domain/entities"
	"github.com/satriahrh/ticketgpt/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 10 << 20

	// Maximum size of one streamed recording.
	maxRecordingSize = 25 << 20

	// Time allowed for one query including transcription.
	requestTimeout = 2 * time.Minute
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// QueryService is the part of the question answering pipeline used by clients
type QueryService interface {
	AskText(ctx context.Context, query string) (*domain.QueryResult, error)
	SaveAudio(ctx context.Context, audio []byte, extension string) (*entities.AudioClip, error)
	TranscribeAudio(ctx context.Context, clipName string) (string, error)
	AnswerTranscript(ctx context.Context, clipName, transcript string) (*domain.QueryResult, error)
}

// Hub maintains the set of active clients.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed once Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	service   QueryService
	validator *MessageValidator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewHub creates a new WebSocket hub. metrics may be nil.
func NewHub(service QueryService, m *metrics.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		service:    service,
		validator:  NewMessageValidator(),
		metrics:    m,
		logger:     logger,
	}
}

// Run starts the hub's main loop. Cancelling ctx closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWebSocketClients(count)
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWebSocketClients(count)
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.conn.Close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.metrics.SetWebSocketClients(0)
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	id     string
	logger *zap.Logger

	// Recording state, only touched by readPump
	listening      bool
	extension      string
	recording      bytes.Buffer
	listeningStart time.Time
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	id := uuid.New().String()
	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, 256),
		id:     id,
		logger: hub.logger.With(zap.String("clientID", id)),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the pipeline.
// Requests are handled in order, one at a time.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}

		// processing may outlast the pong deadline
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendJSON queues a text frame; it is dropped when the client is not keeping up
func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}

func (c *Client) sendError(err error) {
	c.sendJSON(CreateErrorMessage(domain.ErrorCode(err), err.Error()))
}

// processMessage processes incoming control messages
func (c *Client) processMessage(message []byte) {
	msg, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.sendJSON(CreateErrorMessage(domain.CodeInvalidRequest, err.Error()))
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.sendJSON(CreatePongMessage())
	case MessageTypeChat:
		c.handleChat(msg.Query)
	case MessageTypeListeningStart:
		c.handleListeningStart(msg.Extension)
	case MessageTypeListeningEnd:
		c.handleListeningEnd()
	}
}

func (c *Client) handleChat(query string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := c.hub.service.AskText(ctx, query)
	if err != nil {
		c.logger.Error("Chat query failed", zap.Error(err))
		c.sendError(err)
		return
	}

	c.sendJSON(CreateAnswerMessage(result))
}

// handleListeningStart starts a new recording, discarding any unfinished one
func (c *Client) handleListeningStart(extension string) {
	if c.listening {
		c.logger.Warn("Discarding unfinished recording", zap.Int("size", c.recording.Len()))
	}

	c.listening = true
	c.extension = extension
	c.recording.Reset()
	c.listeningStart = time.Now()

	c.logger.Info("Recording started", zap.String("extension", extension))
}

// processBinaryAudioChunk appends binary audio to the current recording
func (c *Client) processBinaryAudioChunk(data []byte) {
	if !c.listening {
		c.sendJSON(CreateErrorMessage(domain.CodeInvalidRequest, "binary audio received before listening_start"))
		return
	}

	if c.recording.Len()+len(data) > maxRecordingSize {
		c.listening = false
		c.recording.Reset()
		c.sendJSON(CreateErrorMessage(domain.CodeInvalidRequest, "recording exceeds maximum size"))
		return
	}

	c.recording.Write(data)
}

// handleListeningEnd stores the recording, reports its transcript, then answers it
func (c *Client) handleListeningEnd() {
	if !c.listening {
		c.sendJSON(CreateErrorMessage(domain.CodeInvalidRequest, "listening_end received before listening_start"))
		return
	}

	audio := append([]byte(nil), c.recording.Bytes()...)
	extension := c.extension
	c.listening = false
	c.recording.Reset()

	c.logger.Info("Recording finished",
		zap.Int("size", len(audio)),
		zap.Duration("elapsed", time.Since(c.listeningStart)))

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	clip, err := c.hub.service.SaveAudio(ctx, audio, extension)
	if err != nil {
		c.logger.Error("Failed to save recording", zap.Error(err))
		c.sendError(err)
		return
	}

	transcript, err := c.hub.service.TranscribeAudio(ctx, clip.Name)
	if err != nil {
		c.logger.Error("Transcription failed", zap.String("clip", clip.Name), zap.Error(err))
		c.sendError(err)
		return
	}

	c.sendJSON(CreateTranscriptMessage(clip.Name, transcript))
	if transcript == "" {
		return
	}

	result, err := c.hub.service.AnswerTranscript(ctx, clip.Name, transcript)
	if err != nil {
		c.logger.Error("Voice query failed", zap.String("clip", clip.Name), zap.Error(err))
		c.sendError(err)
		return
	}

	c.sendJSON(CreateAnswerMessage(result))
}
