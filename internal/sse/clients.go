// Package sse provides Server-Sent Events client management for real-time communication.
package sse

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

const clientBuffer = 8

type Client struct {
	Msg   chan string
	Topic string
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends msg to every client on topic. Slow clients miss messages
// rather than block the sender.
func (s *SSEClients) Broadcast(topic, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.Topic == topic {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}

// Handler streams the topic named by the "topic" query parameter.
func (s *SSEClients) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())

		topic := r.URL.Query().Get("topic")
		if topic == "" {
			http.Error(w, "Topic parameter required", http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Del("X-Content-Type-Options")

		fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
		flusher.Flush()

		client := &Client{
			Msg:   make(chan string, clientBuffer),
			Topic: topic,
		}
		s.Add(client)
		l.Debug().Str("topic", topic).Msg("New SSE client connected")

		defer func() {
			s.Delete(client)
			l.Debug().Str("topic", topic).Msg("SSE client disconnected")
		}()

		notify := r.Context().Done()
		for {
			select {
			case msg := <-client.Msg:
				fmt.Fprintf(w, "data: %s\n\n", msg)
				flusher.Flush()
			case <-notify:
				return
			}
		}
	}
}
