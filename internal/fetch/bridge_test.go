package fetch

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/chatvault/mediadl/internal/model"
)

// bridgeServer runs a one-shot fake browser bridge that answers every
// request with respond(req).
func bridgeServer(t *testing.T, respond func(bridgeRequest) bridgeResponse) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var req bridgeRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return
		}
		_ = wsjson.Write(ctx, conn, respond(req))
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestBridgeStrategy_RoundTrip(t *testing.T) {
	url := bridgeServer(t, func(req bridgeRequest) bridgeResponse {
		assert.Equal(t, "k1", req.MediaKey)
		assert.NotEmpty(t, req.ID)
		return bridgeResponse{
			ID:       req.ID,
			Data:     base64.StdEncoding.EncodeToString([]byte("decrypted")),
			Mimetype: "image/jpeg",
			Filename: "photo.jpg",
		}
	})

	s := NewBridgeStrategy(url)
	result, err := s.Fetch(context.Background(), model.MediaPointer{MediaKey: "k1"})
	require.NoError(t, err)

	assert.Equal(t, "decrypted", string(result.Data))
	assert.Equal(t, "image/jpeg", result.Mimetype)
	assert.Equal(t, "photo.jpg", result.Filename)
}

func TestBridgeStrategy_ErrorResponse(t *testing.T) {
	url := bridgeServer(t, func(req bridgeRequest) bridgeResponse {
		return bridgeResponse{ID: req.ID, Error: "media key expired"}
	})

	s := NewBridgeStrategy(url)
	_, err := s.Fetch(context.Background(), model.MediaPointer{MediaKey: "k1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "media key expired")
}

func TestBridgeStrategy_UnreachableWrapsUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	s := NewBridgeStrategy("ws://127.0.0.1:1/bridge")
	_, err := s.Fetch(ctx, model.MediaPointer{MediaKey: "k1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBridgeStrategy_NoURLConfigured(t *testing.T) {
	s := NewBridgeStrategy("")
	_, err := s.Fetch(context.Background(), model.MediaPointer{MediaKey: "k1"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
