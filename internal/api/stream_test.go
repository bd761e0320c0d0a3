package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/namcore/internal/audio"
)

func TestStream(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	h := createHandle(t, e, "double")

	srv := httptest.NewServer(e)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/handles/" + h.ID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for _, block := range [][]float32{{0.1, 0.2}, {-1, 0.5, 0.25}} {
		if err := conn.WriteMessage(websocket.BinaryMessage, audio.EncodeFloat32LE(nil, block)); err != nil {
			t.Fatalf("write: %v", err)
		}
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if mt != websocket.BinaryMessage {
			t.Fatalf("message type = %d, want binary", mt)
		}
		out, err := audio.DecodeFloat32LE(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(out) != len(block) {
			t.Fatalf("len = %d, want %d", len(out), len(block))
		}
		for i := range block {
			if out[i] != 2*block[i] {
				t.Fatalf("out = %v, want double of %v", out, block)
			}
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"reset"}`)); err != nil {
		t.Fatalf("write reset: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read reset: %v", err)
	}
	var ctl streamControl
	if err := json.Unmarshal(data, &ctl); err != nil {
		t.Fatalf("decode control: %v", err)
	}
	if ctl.Type != "reset" || ctl.Frames != 5 {
		t.Fatalf("control = %+v, want reset after 5 frames", ctl)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2}); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if !strings.Contains(string(data), `"type":"error"`) {
		t.Fatalf("expected error control, got %s", data)
	}
}

func TestStreamUnknownHandle(t *testing.T) {
	t.Parallel()

	e := echo.New()
	NewServer(Config{}).Register(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/handles/nam_nope/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown handle")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("response = %+v, want 404", resp)
	}
}
