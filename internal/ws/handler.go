package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/hub"
	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/tracker"
	"github.com/DoyleJ11/swim24-backend/internal/types"
)

const (
	outboxSize   = 16
	writeTimeout = 3 * time.Second
	pingEvery    = 20 * time.Second
)

// Handler streams one competition's laps and session changes. A client
// gets the team leaderboard on connect and can ask for it again.
func Handler(h *hub.Hub, svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		compID := r.URL.Query().Get("competitionId")
		if compID == "" {
			http.Error(w, "missing competitionId", http.StatusBadRequest)
			return
		}
		if _, err := svc.GetCompetition(r.Context(), compID); err != nil {
			if race.IsKind(err, race.KindNotFound) {
				http.Error(w, "competition not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		events, unsubscribe, err := h.Feed().Subscribe(compID, outboxSize)
		if err != nil {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		defer unsubscribe()

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		send := func(msg types.ServerMessage) error {
			payload, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			defer wcancel()
			return conn.Write(wctx, websocket.MessageText, payload)
		}
		leaderboard := func() error {
			stats, err := svc.TeamStats(ctx, compID)
			if err != nil {
				return send(types.ServerMessage{Type: "Error", Error: "leaderboard unavailable"})
			}
			return send(types.ServerMessage{Type: "Leaderboard", CompetitionID: compID, TeamStats: stats})
		}

		if err := leaderboard(); err != nil {
			return
		}

		// Writer goroutine
		go func() {
			defer cancel()
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case e, ok := <-events:
					if !ok {
						// Dropped by the feed for falling behind.
						_ = conn.Close(websocket.StatusTryAgainLater, "too slow")
						return
					}
					if err := send(types.FromEvent(e)); err != nil {
						return
					}
				case <-ticker.C:
					pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
					err := conn.Ping(pctx)
					pcancel()
					if err != nil {
						log.Debug("ping failed", zap.String("competition", compID), zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read ended", zap.String("competition", compID), zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = send(types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			switch cm.Type {
			case "Leaderboard":
				err = leaderboard()
			case "Ping":
				err = send(types.ServerMessage{Type: "Pong"})
			default:
				err = send(types.ServerMessage{Type: "Error", Error: "unknown type"})
			}
			if err != nil {
				return
			}
		}
	}
}
