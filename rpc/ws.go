package rpc

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"marketchain/core"
)

const wsWriteTimeout = 10 * time.Second

type streamedEventJSON struct {
	Sequence   uint64            `json:"sequence"`
	Height     uint64            `json:"height"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func streamedEventFrom(entry core.StreamedEvent) streamedEventJSON {
	return streamedEventJSON{
		Sequence:   entry.Sequence,
		Height:     entry.Height,
		Type:       entry.Event.Type,
		Attributes: entry.Event.Attributes,
	}
}

// handleEventsWS streams committed ledger events. The optional cursor query
// parameter resumes after the given sequence number.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		since = parsed
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// Clients only listen; reading in the background handles their close frames.
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, since); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			s.logger.Warn("event stream failed", slog.String("error", err.Error()))
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, since uint64) error {
	updates, cancel, backlog := s.node.SubscribeEvents(ctx, since)
	defer cancel()

	for _, entry := range backlog {
		if err := writeStreamedEvent(ctx, conn, entry); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeStreamedEvent(ctx, conn, entry); err != nil {
				return err
			}
		}
	}
}

func writeStreamedEvent(ctx context.Context, conn *websocket.Conn, entry core.StreamedEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, streamedEventFrom(entry))
}
