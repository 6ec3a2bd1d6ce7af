package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qfront/internal/domain"
	"qfront/internal/testutil"
)

type wsFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

func dialStream(t *testing.T, h http.Handler, header http.Header) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg StreamMessage) wsFrame {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestStream_PingTokenizeParse(t *testing.T) {
	history := &testutil.MockQueryHistoryRepo{}
	conn := dialStream(t, newTestRouter(t, history, nil), nil)

	f := roundTrip(t, conn, StreamMessage{Type: StreamPing, ID: "p1"})
	assert.Equal(t, StreamPong, f.Type)
	assert.Equal(t, "p1", f.ID)

	f = roundTrip(t, conn, StreamMessage{Type: StreamTokenize, ID: "t1", SQL: "select a from t;"})
	require.Equal(t, StreamTokenize, f.Type, string(f.Payload))
	var toks TokenizeResponse
	require.NoError(t, json.Unmarshal(f.Payload, &toks))
	require.NotEmpty(t, toks.Tokens)
	assert.Equal(t, "select", toks.Tokens[0].Literal)

	f = roundTrip(t, conn, StreamMessage{Type: StreamParse, ID: "q1", SQL: "SELECT a FROM t;"})
	require.Equal(t, StreamParse, f.Type, string(f.Payload))
	var parsed ParseResponse
	require.NoError(t, json.Unmarshal(f.Payload, &parsed))
	assert.Equal(t, "q1", parsed.RequestID)
	assert.Equal(t, "select a from t;", parsed.Canonical)

	entry := history.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, domain.QuerySourceWS, entry.Source)
	assert.Equal(t, "q1", entry.RequestID)
}

func TestStream_ParseWithoutIDGetsRequestID(t *testing.T) {
	conn := dialStream(t, newTestRouter(t, nil, nil), nil)

	first := roundTrip(t, conn, StreamMessage{Type: StreamParse, SQL: "select 1;"})
	second := roundTrip(t, conn, StreamMessage{Type: StreamParse, SQL: "select 2;"})

	var a, b ParseResponse
	require.NoError(t, json.Unmarshal(first.Payload, &a))
	require.NoError(t, json.Unmarshal(second.Payload, &b))
	assert.NotEmpty(t, a.RequestID)
	assert.NotEqual(t, a.RequestID, b.RequestID)
}

func TestStream_Errors(t *testing.T) {
	conn := dialStream(t, newTestRouter(t, nil, nil), nil)

	tests := []struct {
		name     string
		msg      StreamMessage
		wantKind string
		wantCode int
	}{
		{"lex error", StreamMessage{Type: StreamTokenize, ID: "e1", SQL: "select $"}, "lex", http.StatusBadRequest},
		{"parse error", StreamMessage{Type: StreamParse, ID: "e2", SQL: "select a b from t;"}, "parse", http.StatusBadRequest},
		{"blank", StreamMessage{Type: StreamParse, ID: "e3", SQL: "  "}, "", http.StatusBadRequest},
		{"unknown type", StreamMessage{Type: "explain", ID: "e4"}, "", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := roundTrip(t, conn, tc.msg)
			require.Equal(t, StreamError, f.Type)
			assert.Equal(t, tc.msg.ID, f.ID)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(f.Payload, &body))
			assert.Equal(t, tc.wantCode, body.Code)
			assert.Equal(t, tc.wantKind, body.Kind)
		})
	}

	// The connection survives errors.
	f := roundTrip(t, conn, StreamMessage{Type: StreamPing})
	assert.Equal(t, StreamPong, f.Type)
}

func TestStream_InvalidJSON(t *testing.T) {
	conn := dialStream(t, newTestRouter(t, nil, nil), nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, StreamError, f.Type)
}

func TestStream_OriginRejected(t *testing.T) {
	h := newTestRouter(t, nil, func(cfg *RouterConfig) {
		cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dialStream(t, h, http.Header{"Origin": {"https://app.example.com"}})
	f := roundTrip(t, conn, StreamMessage{Type: StreamPing})
	assert.Equal(t, StreamPong, f.Type)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://a.example"})

	r := httptest.NewRequest(http.MethodGet, "/v1/ws", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://a.example")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://b.example")
	assert.False(t, check(r))

	assert.True(t, originChecker([]string{"*"})(r))
}
