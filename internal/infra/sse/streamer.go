package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fixora/analytics/internal/ports"
)

// Event types pushed to dashboard clients
const (
	EventConnected          = "connected"
	EventDashboardRefreshed = ports.BroadcastDashboardRefreshed
)

// ErrStreamerStopped is returned once the streamer's run loop has exited
var ErrStreamerStopped = errors.New("sse streamer stopped")

// Streamer manages Server-Sent Events streaming
type Streamer struct {
	clients    map[string]*Client
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}

	heartbeat  time.Duration
	bufferSize int
	maxClients int
}

// Client represents an SSE client connection
type Client struct {
	ID        string
	Channel   chan message
	Context   context.Context
	CloseFunc func()
}

type message struct {
	eventType string
	payload   []byte
}

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Type    string      `json:"type"`
	QueryID string      `json:"query_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Time    int64       `json:"time"`
}

// Config tunes the streamer
type Config struct {
	HeartbeatInterval time.Duration
	MessageBufferSize int
	MaxConnections    int
}

// NewStreamer creates a new SSE streamer
func NewStreamer(cfg Config) *Streamer {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = 256
	}
	return &Streamer{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, cfg.MessageBufferSize),
		done:       make(chan struct{}),
		heartbeat:  cfg.HeartbeatInterval,
		bufferSize: cfg.MessageBufferSize,
		maxClients: cfg.MaxConnections,
	}
}

// Start runs the streamer loop until ctx is cancelled
func (s *Streamer) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				s.mu.Lock()
				for id, client := range s.clients {
					client.CloseFunc()
					delete(s.clients, id)
				}
				s.mu.Unlock()
				return

			case client := <-s.register:
				s.mu.Lock()
				s.clients[client.ID] = client
				s.mu.Unlock()

			case client := <-s.unregister:
				s.mu.Lock()
				if _, ok := s.clients[client.ID]; ok {
					client.CloseFunc()
					delete(s.clients, client.ID)
				}
				s.mu.Unlock()

			case msg := <-s.broadcast:
				s.mu.RLock()
				for _, client := range s.clients {
					select {
					case client.Channel <- msg:
					default:
						// slow consumer: drop it
						client.CloseFunc()
					}
				}
				s.mu.RUnlock()
			}
		}
	}()
}

// AddClient registers a new client
func (s *Streamer) AddClient(clientID string) (*Client, error) {
	if s.maxClients > 0 && s.GetClientCount() >= s.maxClients {
		return nil, fmt.Errorf("too many sse clients (max %d)", s.maxClients)
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ID:        clientID,
		Channel:   make(chan message, s.bufferSize),
		Context:   ctx,
		CloseFunc: cancel,
	}

	select {
	case s.register <- client:
		return client, nil
	case <-s.done:
		cancel()
		return nil, ErrStreamerStopped
	}
}

// RemoveClient unregisters a client
func (s *Streamer) RemoveClient(client *Client) {
	select {
	case s.unregister <- client:
	case <-s.done:
	}
}

// Broadcast sends an event to every connected client
func (s *Streamer) Broadcast(eventType, queryID string, data interface{}) error {
	payload, err := json.Marshal(SSEEvent{
		Type:    eventType,
		QueryID: queryID,
		Data:    data,
		Time:    time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	select {
	case s.broadcast <- message{eventType: eventType, payload: payload}:
		return nil
	case <-s.done:
		return ErrStreamerStopped
	default:
		return fmt.Errorf("broadcast channel is full")
	}
}

// GetClientCount returns the number of connected clients
func (s *Streamer) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleSSE streams events to the requesting client until it disconnects
func (s *Streamer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	client, err := s.AddClient(clientID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer s.RemoveClient(client)

	// streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	initEvent := map[string]interface{}{
		"client_id": clientID,
		"connected": true,
		"timestamp": time.Now().Unix(),
	}
	if err := writeSSEEvent(w, EventConnected, initEvent); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-client.Context.Done():
			return

		case msg := <-client.Channel:
			if err := writeSSEMessage(w, msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if err := writeSSEComment(w, "heartbeat"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, eventType string, data interface{}) error {
	payload, err := json.Marshal(SSEEvent{Type: eventType, Data: data, Time: time.Now().Unix()})
	if err != nil {
		return err
	}
	return writeSSEMessage(w, message{eventType: eventType, payload: payload})
}

func writeSSEMessage(w http.ResponseWriter, msg message) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.eventType, msg.payload)
	return err
}

func writeSSEComment(w http.ResponseWriter, comment string) error {
	_, err := fmt.Fprintf(w, ":%s\n\n", comment)
	return err
}
