// Package satellite implements the connection protocol of spec.md
// §4.8 (component C8): session phases, handshake, heartbeat, entity
// listing, and subscription dispatch over one TCP connection. It is
// the only package that touches net.Conn directly; everything it
// decodes is handed to internal/voiceassistant or internal/entities.
package satellite

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/antoniostano/samantha/internal/entities"
	"github.com/antoniostano/samantha/internal/observability"
	"github.com/antoniostano/samantha/internal/runlog"
	"github.com/antoniostano/samantha/internal/state"
	"github.com/antoniostano/samantha/internal/voiceassistant"
	"github.com/antoniostano/samantha/internal/wire"
)

// Phase is the session_phase field of spec.md §3's ConnectionSession.
type Phase string

const (
	PhaseAwaitHello Phase = "await_hello"
	PhaseAwaitAuth  Phase = "await_auth"
	PhaseReady      Phase = "ready"
	PhaseClosing    Phase = "closing"
)

const (
	apiVersionMajor = 1
	apiVersionMinor = 10
)

// DeviceInfo carries the identifying facts reported to the controller
// during the handshake (spec.md §4.8).
type DeviceInfo struct {
	Name       string
	MacAddress string
}

// Session drives one accepted TCP connection end to end: decode loop,
// session-phase dispatch, and the single batched write per inbound
// frame that spec.md §4.1/§5 require.
type Session struct {
	conn   net.Conn
	dec    *wire.Decoder
	device DeviceInfo

	state    *state.Server
	entities *entities.Bridge
	runs     *runlog.Manager
	log      zerolog.Logger
	metrics  *observability.Metrics

	mu          sync.Mutex
	phase       Phase
	activeBatch *wire.Batch

	actions   chan func()
	closed    chan struct{}
	closeOnce sync.Once

	fsm *voiceassistant.FSM
}

// NewSession wraps an accepted connection. micStart/micStop drive an
// external microphone-capture collaborator and may be nil.
func NewSession(conn net.Conn, device DeviceInfo, st *state.Server, eb *entities.Bridge, runs *runlog.Manager, log zerolog.Logger, metrics *observability.Metrics, micStart, micStop func()) *Session {
	s := &Session{
		conn:     conn,
		dec:      wire.NewDecoder(),
		device:   device,
		state:    st,
		entities: eb,
		runs:     runs,
		log:      log.With().Str("component", "satellite").Str("remote", conn.RemoteAddr().String()).Logger(),
		metrics:  metrics,
		phase:    PhaseAwaitHello,
		actions:  make(chan func(), 64),
		closed:   make(chan struct{}),
	}
	s.fsm = voiceassistant.New(st, s.emit, s.postBack, micStart, micStop, log, metrics, runs)
	return s
}

// Wakeup, Stop, Announce, and IsStreamingAudio implement state.Satellite
// so external collaborators (entity bridge buttons and services, the
// wake-word engine) can reach this session through ServerState's weak
// back-reference.
func (s *Session) Wakeup(phrase string)   { s.postBack(func() { s.fsm.Wakeup(phrase) }) }
func (s *Session) Stop()                  { s.postBack(func() { s.fsm.Stop() }) }
func (s *Session) IsStreamingAudio() bool { return s.fsm.IsStreamingAudio() }

// Announce runs the announce service (ExecuteServiceRequest key
// KeyServiceAnnounce) through the same VoiceAssistantAnnounceRequest
// handling a wire-level announce request gets, per spec.md §4.9's
// ducking / [preannounce?, media] sequencing / stop-word activation /
// terminal VoiceAssistantAnnounceFinished contract.
func (s *Session) Announce(text, mediaID string) {
	s.postBack(func() {
		s.fsm.HandleAnnounce(wire.VoiceAssistantAnnounceRequest{Text: text, MediaID: mediaID})
	})
}

// MicChunk forwards one captured audio chunk onto the core loop, per
// spec.md §5's "posted back to the core thread" requirement for
// audio-capture callbacks.
func (s *Session) MicChunk(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.postBack(func() { s.fsm.MicChunk(cp) })
}

// postBack hands a closure to the session's single core goroutine. It
// is safe to call from any goroutine, including audio-player on_done
// callbacks and the external mic/wake-word collaborators.
func (s *Session) postBack(fn func()) {
	select {
	case s.actions <- fn:
	case <-s.closed:
	}
}

// Run drives the session until the connection closes or a fatal
// framing error occurs. It owns the single core goroutine: the read
// loop, the action queue, and the FSM all execute here, satisfying
// spec.md §5's single-threaded-core requirement.
func (s *Session) Run() {
	defer s.teardown()

	reads := make(chan []byte, 1)
	readErrs := make(chan error, 1)
	go s.readLoop(reads, readErrs)

	s.metrics.ObserveConnectionEvent("accepted")
	s.metrics.ConnectionsActive.Inc()
	defer s.metrics.ConnectionsActive.Dec()

	for {
		select {
		case data, ok := <-reads:
			if !ok {
				return
			}
			if !s.handleBytes(data) {
				return
			}
		case err := <-readErrs:
			if err != nil && err != io.EOF {
				s.log.Debug().Err(err).Msg("connection read error")
			}
			return
		case fn := <-s.actions:
			s.runInBatch(fn)
		case <-s.closed:
			return
		}
	}
}

func (s *Session) readLoop(out chan<- []byte, errs chan<- error) {
	r := bufio.NewReader(s.conn)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			cp := make([]byte, n)
			copy(cp, buf[:n])
			select {
			case out <- cp:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			errs <- err
			return
		}
	}
}

// handleBytes feeds newly read bytes to the frame decoder and
// dispatches every complete frame found, batching every frame that
// dispatch produces into a single write (spec.md §4.1).
func (s *Session) handleBytes(data []byte) bool {
	s.dec.Feed(data)
	for {
		frame, ok, err := s.dec.Next()
		if err != nil {
			s.log.Warn().Err(err).Msg("framing violation, closing connection")
			s.metrics.ObserveFramingError(err.Error())
			return false
		}
		if !ok {
			return true
		}
		s.metrics.ObserveFrameDecoded(typeLabel(frame.Type))

		msg, err := wire.Decode(frame.Type, frame.Payload)
		if err != nil {
			if err == wire.ErrUnknownType {
				s.log.Debug().Uint32("type", frame.Type).Msg("unknown message type, ignoring")
				continue
			}
			s.log.Warn().Err(err).Msg("payload decode error, closing connection")
			return false
		}

		if !s.runInBatch(func() { s.dispatch(msg) }) {
			return false
		}
	}
}

// runInBatch opens a batch scope, runs fn (which may call s.emit any
// number of times), writes the accumulated frames in one syscall, and
// reports whether the session should stay open.
func (s *Session) runInBatch(fn func()) bool {
	batch := &wire.Batch{}
	s.mu.Lock()
	s.activeBatch = batch
	s.mu.Unlock()

	fn()

	s.mu.Lock()
	s.activeBatch = nil
	closing := s.phase == PhaseClosing
	s.mu.Unlock()

	s.flush(batch)
	return !closing
}

func (s *Session) flush(b *wire.Batch) {
	if b.Len() == 0 {
		return
	}
	if _, err := s.conn.Write(b.Bytes()); err != nil {
		s.log.Debug().Err(err).Msg("write error")
	}
}

func typeLabel(t uint32) string {
	switch t {
	case wire.TypeHelloRequest:
		return "hello_request"
	case wire.TypePingRequest:
		return "ping_request"
	case wire.TypeDeviceInfoRequest:
		return "device_info_request"
	case wire.TypeListEntitiesRequest:
		return "list_entities_request"
	case wire.TypeVoiceAssistantEventResponse:
		return "voice_assistant_event"
	default:
		return "other"
	}
}

func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
		s.state.ClearSatelliteIfSelf(s)
		s.fsm.Reset()
		s.metrics.ObserveConnectionEvent("closed")
	})
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *Session) getPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// emit is bound to the FSM (and used directly by dispatch) as the
// single path for queuing an outbound message on this session's
// current batch. It does not check whether this session is the one
// currently registered as ServerState.satellite: a session that a newer
// connection has superseded still answers its own inbound frames.
func (s *Session) emit(msg any) {
	s.mu.Lock()
	b := s.activeBatch
	s.mu.Unlock()
	if b == nil {
		s.log.Warn().Msg("emit called outside a batch scope, dropping message")
		return
	}
	typ, payload, err := wire.Encode(msg)
	if err != nil {
		s.log.Warn().Err(err).Msg("encode error, dropping message")
		return
	}
	b.Add(typ, payload)
	s.metrics.ObserveFrameEncoded(typeLabel(typ))
}
