package api

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/namcore/internal/audio"
)

const streamWriteTimeout = 5 * time.Second

// streamControl is a text frame on the stream socket.
type streamControl struct {
	Type    string `json:"type"`
	Frames  int    `json:"frames,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleStream upgrades to a WebSocket. Every binary frame of little-endian
// float32 samples is answered with one binary frame of processed samples.
// A text frame {"type":"reset"} resets the handle.
func (s *Server) handleStream(c *echo.Context) error {
	id := c.Param("id")
	info, err := s.store.Get(id)
	if err != nil {
		return writeFailure(c, err)
	}
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the request
		s.log.Warn("websocket upgrade failed", "id", id, "error", err)
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(s.maxBody)

	log := s.log.With("id", id)
	log.Info("stream opened", "remote", c.Request().RemoteAddr)

	ctx := c.Request().Context()
	var out []float32
	var frames int64
	for ctx.Err() == nil {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("stream read failed", "error", err)
			}
			break
		}

		switch mt {
		case websocket.BinaryMessage:
			in, err := audio.DecodeFloat32LE(data)
			if err != nil {
				if err := s.sendControl(conn, streamControl{Type: "error", Message: err.Error()}); err != nil {
					return nil
				}
				continue
			}
			if cap(out) < len(in) {
				out = make([]float32, len(in), max(len(in), info.MaxBlockSize))
			}
			out = out[:len(in)]
			if err := s.store.ProcessInto(id, in, out); err != nil {
				closeWith(conn, websocket.CloseGoingAway, "handle released")
				log.Info("stream closed", "reason", err)
				return nil
			}
			frames += int64(len(in))
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, audio.EncodeFloat32LE(nil, out)); err != nil {
				log.Warn("stream write failed", "error", err)
				return nil
			}

		case websocket.TextMessage:
			var ctl streamControl
			if err := json.Unmarshal(data, &ctl); err != nil || ctl.Type != "reset" {
				if err := s.sendControl(conn, streamControl{Type: "error", Message: "unknown control message"}); err != nil {
					return nil
				}
				continue
			}
			if err := s.store.Reset(id); err != nil {
				closeWith(conn, websocket.CloseGoingAway, "handle released")
				return nil
			}
			if err := s.sendControl(conn, streamControl{Type: "reset", Frames: int(frames)}); err != nil {
				return nil
			}
		}
	}
	log.Info("stream closed", "frames", frames)
	return nil
}

func (s *Server) sendControl(conn *websocket.Conn, msg streamControl) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			s.log.Debug("control write failed", "error", err)
		}
		return err
	}
	return nil
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteTimeout))
}
