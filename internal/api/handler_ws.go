package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"qfront/internal/domain"
	"qfront/internal/service/query"
)

// streamIdleTimeout closes a stream connection that sends neither messages
// nor pongs for this long.
const streamIdleTimeout = 120 * time.Second

// Stream message types.
const (
	StreamPing     = "ping"
	StreamPong     = "pong"
	StreamTokenize = "tokenize"
	StreamParse    = "parse"
	StreamError    = "error"
)

// StreamMessage is a client frame on GET /v1/ws.
type StreamMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"` // echoed back; used as the request ID for parse
	SQL  string `json:"sql,omitempty"`
}

// StreamResponse is a server frame on GET /v1/ws. Payload is a
// TokenizeResponse, ParseResponse or ErrorBody depending on Type.
type StreamResponse struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Stream handles GET /v1/ws: a websocket on which each text frame carries
// one StreamMessage and receives exactly one StreamResponse.
func (h *APIHandler) Stream(allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close() //nolint:errcheck

		// Hijacked connections outlive http.Server.Shutdown; close on ctx.
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-r.Context().Done():
				_ = conn.Close()
			case <-done:
			}
		}()

		h.serveStream(r.Context(), conn)
	}
}

func (h *APIHandler) serveStream(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))

		var msg StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			resp := StreamResponse{Type: StreamError, Payload: errorBody(domain.ErrValidation("invalid message: %v", err))}
			if !h.send(conn, resp) {
				return
			}
			continue
		}
		if !h.send(conn, h.handleStreamMessage(ctx, msg)) {
			return
		}
	}
}

func (h *APIHandler) handleStreamMessage(ctx context.Context, msg StreamMessage) StreamResponse {
	switch msg.Type {
	case StreamPing:
		return StreamResponse{Type: StreamPong, ID: msg.ID}

	case StreamTokenize:
		resp, err := tokenize(msg.SQL)
		if err != nil {
			return streamError(msg.ID, err)
		}
		return StreamResponse{Type: StreamTokenize, ID: msg.ID, Payload: resp}

	case StreamParse:
		requestID := msg.ID
		if requestID == "" {
			requestID = uuid.NewString()
		}
		res, err := h.query.Handle(ctx, query.Request{
			SQL:       msg.SQL,
			RequestID: requestID,
			Source:    domain.QuerySourceWS,
		})
		if err != nil {
			return streamError(msg.ID, err)
		}
		return StreamResponse{Type: StreamParse, ID: msg.ID, Payload: parseResponse(res)}

	default:
		return streamError(msg.ID, domain.ErrValidation("unknown message type %q", msg.Type))
	}
}

func streamError(id string, err error) StreamResponse {
	return StreamResponse{Type: StreamError, ID: id, Payload: errorBody(err)}
}

func (h *APIHandler) send(conn *websocket.Conn, resp StreamResponse) bool {
	if err := conn.WriteJSON(resp); err != nil {
		h.logger.Warn("websocket write failed", "error", err)
		return false
	}
	return true
}

// originChecker accepts same-host requests without an Origin header, any
// origin when "*" is allowed, and otherwise exact matches only.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
