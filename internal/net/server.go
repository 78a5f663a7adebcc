package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"heimdall/internal/engine"
	"heimdall/internal/utils"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

var ErrImproperConversion = errors.New("improper type conversion")

// feedSession is one connected feed publisher.
type feedSession struct {
	id   string
	conn net.Conn
}

// Server accepts feed connections, decodes framed market-data messages and
// funnels them into the book manager. Decoding is parallel across a worker
// pool; the manager itself is driven by a single consumer goroutine so the
// engine keeps its single-threaded contract.
type Server struct {
	address      string
	port         int
	manager      *engine.BookManager
	pool         utils.WorkerPool
	cancel       context.CancelFunc
	sessions     map[string]feedSession
	sessionsLock sync.Mutex
	messages     chan Message
}

func New(address string, port int, manager *engine.BookManager) *Server {
	return &Server{
		address:  address,
		port:     port,
		manager:  manager,
		pool:     utils.NewWorkerPool(defaultNWorkers),
		sessions: make(map[string]feedSession),
		messages: make(chan Message, 1024),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("feed server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start feed listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close feed listener")
		}
	}()

	s.pool.Setup(t, s.handleConnection)

	// Single consumer drives the engine.
	t.Go(func() error {
		return s.consume(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("feed server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting feed connection")
				continue
			}
			session := s.addSession(conn)
			log.Info().
				Str("session", session.id).
				Str("remote", conn.RemoteAddr().String()).
				Msg("feed publisher connected")
			s.pool.AddTask(session)
		}
	}
}

// consume pops decoded messages and applies them to the manager one at a
// time, flushing the emitted events after each message.
func (s *Server) consume(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case message := <-s.messages:
			s.dispatch(message)
			s.manager.FlushEvents()
		}
	}
}

func (s *Server) dispatch(message Message) {
	switch m := message.(type) {
	case OrderFrame:
		s.manager.ProcessOrderMessage(m.Msg)
	case TradeFrame:
		s.manager.ProcessTradeMessage(m.Msg)
	case SnapshotFrame:
		s.manager.ProcessSnapshotMessage(m.Msg)
	default:
		log.Error().Stringer("type", message.MessageType()).Msg("unhandled feed message")
	}
}

// handleConnection is a short-lived worker task: read the next frame off the
// session's connection, decode it, queue it for the consumer and requeue the
// session. Dead or misbehaving sessions are dropped.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	session, ok := task.(feedSession)
	if !ok {
		return ErrImproperConversion
	}

	if err := session.conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("session", session.id).Msg("failed setting read deadline")
		s.dropSession(session)
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := session.conn.Read(buffer)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				// Idle session, give another worker a turn.
				s.pool.AddTask(session)
				return nil
			}
			log.Error().Err(err).Str("session", session.id).Msg("error reading from feed connection")
			s.dropSession(session)
			return nil
		}

		message, err := ParseMessage(buffer[:n])
		if err != nil {
			// A noisy feed must not desynchronize the engine; drop the frame.
			log.Error().Err(err).Str("session", session.id).Msg("error parsing feed message")
			s.pool.AddTask(session)
			return nil
		}

		s.messages <- message
		s.pool.AddTask(session)
	}
	return nil
}

func (s *Server) addSession(conn net.Conn) feedSession {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	session := feedSession{id: uuid.New().String(), conn: conn}
	s.sessions[session.id] = session
	return session
}

func (s *Server) dropSession(session feedSession) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	if err := session.conn.Close(); err != nil {
		log.Error().Err(err).Str("session", session.id).Msg("error closing feed connection")
	}
	delete(s.sessions, session.id)
}
