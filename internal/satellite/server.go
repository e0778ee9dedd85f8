package satellite

import (
	"net"

	"github.com/rs/zerolog"

	"github.com/antoniostano/samantha/internal/entities"
	"github.com/antoniostano/samantha/internal/observability"
	"github.com/antoniostano/samantha/internal/runlog"
	"github.com/antoniostano/samantha/internal/state"
)

// Server is the TCP listener of spec.md §2: "one TCP listener... at
// most one controller holds the session at a time". A second
// connection is still accepted (so the controller can reconnect
// cleanly), but only the most recently authenticated session is ever
// registered as ServerState.satellite, per spec.md §3's "at most one
// active controller session" non-goal.
type Server struct {
	listener net.Listener
	device   DeviceInfo
	state    *state.Server
	entities *entities.Bridge
	runs     *runlog.Manager
	log      zerolog.Logger
	metrics  *observability.Metrics

	micStart, micStop func()
}

// Listen binds the given address and returns a Server ready to Serve.
func Listen(addr string, device DeviceInfo, st *state.Server, eb *entities.Bridge, runs *runlog.Manager, log zerolog.Logger, metrics *observability.Metrics, micStart, micStop func()) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		device:   device,
		state:    st,
		entities: eb,
		runs:     runs,
		log:      log.With().Str("component", "satellite-server").Logger(),
		metrics:  metrics,
		micStart: micStart,
		micStop:  micStop,
	}, nil
}

// Addr reports the bound listener address, useful when the configured
// port was 0 (ephemeral, used by tests).
func (srv *Server) Addr() net.Addr { return srv.listener.Addr() }

// Serve accepts connections until the listener is closed, spawning one
// Session per connection. A transient accept error is logged and
// retried per spec.md §7's "TCP accept failure: log, retry" row; a
// permanent one (listener closed) ends the loop.
func (srv *Server) Serve() error {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				srv.log.Warn().Err(err).Msg("transient accept error, retrying")
				continue
			}
			return err
		}
		sess := NewSession(conn, srv.device, srv.state, srv.entities, srv.runs, srv.log, srv.metrics, srv.micStart, srv.micStop)
		go sess.Run()
	}
}

// Close stops accepting new connections.
func (srv *Server) Close() error {
	return srv.listener.Close()
}
