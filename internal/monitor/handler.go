package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type serverMessage struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
	State   any    `json:"state"`
}

// Handler upgrades the request and streams snapshots until the viewer goes
// away. Viewers are read-only; inbound frames are drained and ignored.
func Handler(h *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			log.Debug().Err(err).Msg("monitor.Handler accept failed")
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan Snapshot, 4)
		if !h.join(clientID, out) {
			return
		}
		defer h.leave(clientID)
		log.Info().Str("client", clientID).Msg("monitor.Handler viewer joined")

		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case <-ctx.Done():
				log.Info().Str("client", clientID).Msg("monitor.Handler viewer left")
				return
			case snap, ok := <-out:
				if !ok {
					return
				}
				payload, err := json.Marshal(serverMessage{Type: "snapshot", Version: snap.Version, State: snap.State})
				if err != nil {
					log.Error().Err(err).Msg("monitor.Handler encode snapshot")
					continue
				}
				writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				err = conn.Write(writeCtx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
		}
	}
}
