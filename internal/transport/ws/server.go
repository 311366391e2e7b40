package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"

	"strata.dev/internal/protocol"
	"strata.dev/internal/render"
	"strata.dev/internal/session"
	"strata.dev/internal/voxelmap"
)

// Server streams rendered layers of one session to websocket viewers.
type Server struct {
	sess     *session.Session
	renderer *render.Renderer
	log      *log.Logger

	upgrader websocket.Upgrader
}

type frame struct {
	kind int
	data []byte
}

func NewServer(sess *session.Session, r *render.Renderer, logger *log.Logger) *Server {
	return &Server{
		sess:     sess,
		renderer: r,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		name, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.logf("viewer %s connected from %s", name, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		out := make(chan frame, 8)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case f := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(f.kind, f.data); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		send := func(kind int, b []byte) bool {
			select {
			case out <- frame{kind: kind, data: b}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		// Reader loop. Requests are handled one at a time.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sent := true
			for _, f := range s.handle(msg) {
				if sent = send(f.kind, f.data); !sent {
					break
				}
			}
			if !sent {
				break
			}
		}
		s.logf("viewer %s disconnected", name)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false
	}
	if hello.ClientName == "" {
		hello.ClientName = "viewer"
	}

	if err := writeJSON(conn, s.meta()); err != nil {
		return "", false
	}
	return hello.ClientName, true
}

func (s *Server) meta() protocol.MetaMsg {
	m := protocol.MetaMsg{
		Type:            protocol.TypeMeta,
		ProtocolVersion: protocol.Version,
		ScanID:          s.sess.ID(),
		Volume:          s.sess.Volume,
		MaxOffset:       s.sess.MaxOffset(),
		Tally:           []protocol.CountEntry{},
	}
	if s.sess.Populated() {
		m.Voxels = int64(s.sess.Map().Len())
		m.Tally = countEntries(s.sess.Map().Tally().Sorted())
	}
	return m
}

// handle answers one client message with the frames to send back.
func (s *Server) handle(msg []byte) []frame {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return s.errorFrames("", protocol.ErrProtoBadRequest, "malformed message")
	}
	if base.Type != protocol.TypeRender {
		return s.errorFrames("", protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
	}
	if err := protocol.Validate(protocol.TypeRender, msg); err != nil {
		return s.errorFrames("", protocol.ErrBadRequest, err.Error())
	}
	var req protocol.RenderMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		return s.errorFrames("", protocol.ErrBadRequest, err.Error())
	}

	layer, err := s.sess.Render(s.renderer, req.Offset, req.Hollow)
	if err != nil {
		return s.errorFrames(req.ReqID, errorCode(err), err.Error())
	}
	var png bytes.Buffer
	if err := imaging.Encode(&png, layer.Image, imaging.PNG); err != nil {
		s.logf("encode layer y=%d: %v", layer.Y, err)
		return s.errorFrames(req.ReqID, protocol.ErrInternal, "encode layer")
	}

	missing := make([]string, len(layer.MissingTextures))
	for i, t := range layer.MissingTextures {
		missing[i] = string(t)
	}
	b := layer.Image.Bounds()
	head, err := json.Marshal(protocol.LayerMsg{
		Type:            protocol.TypeLayer,
		ProtocolVersion: protocol.Version,
		ReqID:           req.ReqID,
		Y:               layer.Y,
		Offset:          layer.Offset,
		Hollow:          req.Hollow,
		Width:           b.Dx(),
		Height:          b.Dy(),
		Enumerations:    countEntries(layer.Enumerations),
		MissingTextures: missing,
		PNGBytes:        png.Len(),
	})
	if err != nil {
		return s.errorFrames(req.ReqID, protocol.ErrInternal, err.Error())
	}
	return []frame{
		{kind: websocket.TextMessage, data: head},
		{kind: websocket.BinaryMessage, data: png.Bytes()},
	}
}

func (s *Server) errorFrames(reqID, code, message string) []frame {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return nil
	}
	return []frame{{kind: websocket.TextMessage, data: b}}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, render.ErrLayerOutOfRange):
		return protocol.ErrLayerOutOfRange
	case errors.Is(err, render.ErrMissingLayerData):
		return protocol.ErrMissingLayerData
	case errors.Is(err, session.ErrNotPopulated):
		return protocol.ErrNotScanned
	default:
		return protocol.ErrInternal
	}
}

func countEntries(rows []voxelmap.Count) []protocol.CountEntry {
	out := make([]protocol.CountEntry, len(rows))
	for i, r := range rows {
		out[i] = protocol.CountEntry{Type: string(r.Type), Count: r.Count}
	}
	return out
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
