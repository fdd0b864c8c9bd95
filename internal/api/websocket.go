package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"execution-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// orderTopics are the lifecycle notifications streamed to clients.
var orderTopics = []events.Event{
	events.EventOrderNew,
	events.EventOrderUpdate,
	events.EventOrderFilled,
	events.EventOrderCancelled,
	events.EventOrderRejected,
	events.EventOrderFailed,
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	merged := make(chan streamMsg, 100)
	var wg sync.WaitGroup
	unsubs := make([]func(), 0, len(orderTopics))
	for _, topic := range orderTopics {
		stream, unsub := s.Bus.Subscribe(topic, 100)
		unsubs = append(unsubs, unsub)
		wg.Add(1)
		go func(topic events.Event, stream <-chan any) {
			defer wg.Done()
			for msg := range stream {
				select {
				case merged <- streamMsg{Topic: topic, Payload: msg}:
				default:
					// client is not keeping up; diagnostics are lossy
				}
			}
		}(topic, stream)
	}
	// merged closes once every source channel is closed, either by
	// unsubscribing below or by a bus shutdown.
	go func() {
		wg.Wait()
		close(merged)
	}()
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	// Read pump: the client never sends payloads, but reading is the
	// only way to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg, ok := <-merged:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}
}

type streamMsg struct {
	Topic   events.Event `json:"topic"`
	Payload any          `json:"payload"`
}
