package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"photowall/internal/daemon"
	"photowall/internal/logging"
)

const (
	serviceName   = "Photowall"
	shutdownDelay = 50 * time.Millisecond
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// ServerOption customizes the IPC server.
type ServerOption func(*service)

// WithShutdown installs the callback invoked by the Shutdown RPC.
func WithShutdown(fn func()) ServerOption {
	return func(s *service) { s.shutdown = fn }
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	for _, opt := range opts {
		opt(srv)
	}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun photowall stop"))
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.logger.Info("daemon started via IPC", logging.Event("daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC", logging.Event("daemon_stop"))
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	if s.shutdown == nil {
		return errors.New("shutdown not supported by this server")
	}
	s.logger.Info("daemon shutdown requested via IPC", logging.Event("daemon_shutdown_requested"))
	// The reply must reach the caller before connections are torn down.
	time.AfterFunc(shutdownDelay, s.shutdown)
	resp.Accepted = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.Paused = status.Paused
	resp.PID = status.PID
	resp.SessionID = status.SessionID
	resp.StartedAt = status.StartedAt
	resp.LockPath = status.LockPath
	resp.JournalPath = status.JournalPath
	resp.MetricsBind = status.MetricsBind
	resp.Blacklisted = status.Blacklisted
	resp.Surfaces = status.Engine.Surfaces
	resp.Slots = status.Engine.Slots
	return nil
}

func (s *service) Pause(_ PauseRequest, resp *ToggleResponse) error {
	resp.Changed = s.daemon.Pause()
	resp.Paused = true
	return nil
}

func (s *service) Resume(_ ResumeRequest, resp *ToggleResponse) error {
	resp.Changed = s.daemon.Resume()
	resp.Paused = false
	return nil
}

func (s *service) Next(_ NextRequest, resp *NextResponse) error {
	advanced, err := s.daemon.Next()
	resp.Advanced = advanced
	return err
}

func (s *service) Sticky(req StickyRequest, resp *StickyResponse) error {
	id := strings.TrimSpace(req.SlotID)
	if id == "" {
		return errors.New("slot id is required")
	}
	resp.SlotID = id
	if req.Set != nil {
		if err := s.daemon.SetSticky(id, *req.Set); err != nil {
			return err
		}
		resp.Sticky = *req.Set
		return nil
	}
	sticky, err := s.daemon.ToggleSticky(id)
	if err != nil {
		return err
	}
	resp.Sticky = sticky
	return nil
}

func (s *service) Grid(req GridRequest, resp *GridResponse) error {
	ids, err := s.daemon.Grid(strings.TrimSpace(req.Frame), strings.TrimSpace(req.Op))
	if err != nil {
		return err
	}
	resp.Slots = ids
	return nil
}

func (s *service) Resize(req ResizeRequest, resp *ResizeResponse) error {
	ids, err := s.daemon.ResizeFrame(strings.TrimSpace(req.Frame), req.Width, req.Height)
	if err != nil {
		return err
	}
	resp.Reloading = ids
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	entries, err := s.daemon.History(s.ctx, strings.TrimSpace(req.SlotID), limit)
	if err != nil {
		return err
	}
	resp.Entries = entries
	return nil
}
