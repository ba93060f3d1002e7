package fetch

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/chatvault/mediadl/internal/model"
)

// BridgeStrategy resolves pointers through the capture-side browser bridge:
// a websocket endpoint exposed by the automation context that can decrypt
// media the CDN will not serve directly. Each fetch is a single
// request/response exchange correlated by a request ID.
type BridgeStrategy struct {
	url string
}

// bridgeRequest is the wire request sent to the bridge.
type bridgeRequest struct {
	ID         string `json:"id"`
	MediaKey   string `json:"mediaKey,omitempty"`
	FileHash   string `json:"fileHash,omitempty"`
	DirectPath string `json:"directPath,omitempty"`
	URL        string `json:"url,omitempty"`
}

// bridgeResponse is the wire response. Data is base64.
type bridgeResponse struct {
	ID       string `json:"id"`
	Data     string `json:"data,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewBridgeStrategy creates the bridge strategy for the given websocket URL.
func NewBridgeStrategy(url string) *BridgeStrategy {
	return &BridgeStrategy{url: url}
}

func (s *BridgeStrategy) Name() string { return "browser-bridge" }

// Fetch dials the bridge, sends the pointer and awaits the correlated
// response. A dial failure wraps ErrUnavailable so the caller can tell
// "bridge down" apart from "this pointer failed".
func (s *BridgeStrategy) Fetch(ctx context.Context, p model.MediaPointer) (*Result, error) {
	if s.url == "" {
		return nil, fmt.Errorf("no bridge configured: %w", ErrUnavailable)
	}

	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bridge: %w: %w", ErrUnavailable, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	req := bridgeRequest{
		ID:         uuid.NewString(),
		MediaKey:   p.MediaKey,
		FileHash:   p.FileHash,
		DirectPath: p.DirectPath,
		URL:        p.URL,
	}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		return nil, fmt.Errorf("send bridge request: %w", err)
	}

	var resp bridgeResponse
	for {
		if err := wsjson.Read(ctx, conn, &resp); err != nil {
			return nil, fmt.Errorf("read bridge response: %w", err)
		}
		// the bridge may interleave responses for other clients' requests
		if resp.ID == req.ID {
			break
		}
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("bridge: %s", resp.Error)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("decode bridge payload: %w", err)
	}

	return &Result{
		Data:     data,
		Mimetype: resp.Mimetype,
		Filename: resp.Filename,
	}, nil
}
