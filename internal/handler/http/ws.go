package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is one frame sent to a realtime client. Data carries a full
// snapshot; Error is set instead when the subscription degraded.
type StreamMessage struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type subscribeFunc func(ctx context.Context, push func(any), fail func(error)) (realtime.Unsubscribe, error)

// serveStream subscribes before upgrading so that a rejected subscription
// still gets a plain HTTP error. Only the newest pending snapshot is kept
// for a slow client.
func serveStream(w http.ResponseWriter, r *http.Request, subscribe subscribeFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan any, 1)
	errs := make(chan error, 1)
	push := func(v any) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- v:
		default:
		}
	}
	fail := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	unsubscribe, err := subscribe(ctx, push, fail)
	if err != nil {
		respondWithServiceError(w, err, "Failed to subscribe")
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		var msg *StreamMessage
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case v := <-updates:
			msg = &StreamMessage{Type: "snapshot", Data: v}
		case err := <-errs:
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("Realtime subscription degraded")
			msg = &StreamMessage{Type: "error", Error: clientMessage(err)}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug().Err(err).Msg("Websocket client went away")
			return
		}
	}
}
