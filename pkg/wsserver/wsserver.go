// Package wsserver implements the socket transport (spec §6 "Socket wire
// protocol"): it upgrades an HTTP request to a full-duplex connection,
// authenticates it, registers a session, and pumps frames between the wire
// and the dispatcher. The accept/read-pump/write-pump split follows the
// same per-connection goroutine-pair pattern used elsewhere in this
// codebase's dependency family for socket transports (see iota-uz-iota-sdk's
// infrastructure/websocket Hub, generalized from gorilla/websocket to
// coder/websocket).
package wsserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/dispatch"
	"github.com/collabboard/server/pkg/frame"
	"github.com/collabboard/server/pkg/session"
)

// Authenticator resolves the user identity for an incoming connection
// upgrade request. The HTTP boundary (pkg/httpapi) issues short-lived
// connect tickets (spec §6); this package only verifies them.
type Authenticator interface {
	Authenticate(r *http.Request) (userID string, ok bool)
}

// AuthenticatorFunc adapts a plain function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (string, bool)

func (f AuthenticatorFunc) Authenticate(r *http.Request) (string, bool) {
	return f(r)
}

// Server upgrades HTTP connections to board sockets and drives each one's
// read/write pumps.
type Server struct {
	Sessions   *session.Registry
	Dispatcher *dispatch.Dispatcher
	Auth       Authenticator
	Log        zerolog.Logger
}

// New builds a Server. auth may be nil only when the caller intends to wire
// one in later (ServeHTTP rejects every connection until it's set).
func New(sessions *session.Registry, d *dispatch.Dispatcher, auth Authenticator, log zerolog.Logger) *Server {
	return &Server{
		Sessions:   sessions,
		Dispatcher: d,
		Auth:       auth,
		Log:        log.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP implements http.Handler, accepting one socket per call and
// blocking until the connection closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: nil, // same-origin only; override via AcceptOptions if a CORS policy is added
	})
	if err != nil {
		s.Log.Warn().Err(err).Msg("websocket accept failed")
		return
	}

	client := s.Sessions.Register(userID)
	s.Log.Info().Str("client_id", client.ID).Str("user_id", userID).Msg("connection accepted")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.writePump(ctx, conn, client)
	s.readPump(ctx, conn, client)

	cancel()
	s.Dispatcher.HandleDisconnect(client.ID)
	conn.Close(websocket.StatusNormalClosure, "")
	s.Log.Info().Str("client_id", client.ID).Msg("connection closed")
}

func (s *Server) authenticate(r *http.Request) (string, bool) {
	if s.Auth == nil {
		return "", false
	}
	return s.Auth.Authenticate(r)
}

// readPump decodes one frame per message and hands it to the dispatcher. A
// long-running ai:prompt is dispatched on its own goroutine, tied to this
// connection's context, so it never blocks the read loop behind it (spec §9
// "long-running AI calls... independent task with its own cancellation token
// tied to the requesting socket"); every other syscall is dispatched inline
// to preserve per-socket arrival order (spec §5 "frames on a single socket
// are processed in arrival order").
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, client *session.Client) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.Log.Debug().Err(err).Str("client_id", client.ID).Msg("read pump exiting")
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		req, err := frame.Decode(data, time.Now().UnixMilli())
		if err != nil {
			s.sendBadFrame(client, err)
			continue
		}

		if req.Syscall == "ai:prompt" {
			go s.dispatch(ctx, client.ID, req)
			continue
		}
		s.dispatch(ctx, client.ID, req)
	}
}

func (s *Server) dispatch(ctx context.Context, clientID string, req *frame.Frame) {
	if err := s.Dispatcher.Dispatch(ctx, clientID, req); err != nil {
		s.Log.Debug().Err(err).Str("client_id", clientID).Msg("dispatch failed")
	}
}

func (s *Server) sendBadFrame(client *session.Client, cause error) {
	errFrame := frame.New("frame:error", frame.Data{"code": "E_BAD_FRAME", "message": cause.Error()})
	errFrame.Status = frame.StatusError
	s.Sessions.Send(client.ID, errFrame)
}

// writePump drains the client's outbound queue in order and writes each
// frame as one text message, exiting when ctx is canceled (the read pump
// ended) or the queue send fails.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, client *session.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-client.Outbound():
			if !ok {
				return
			}
			data, err := frame.Encode(f)
			if err != nil {
				s.Log.Error().Err(err).Str("client_id", client.ID).Msg("failed to encode outbound frame")
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
