package r66

// r66 server counterpart

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/filestore"
	"github.com/openr66/r66/internal/sync"
	"github.com/openr66/r66/monitor"
	"github.com/openr66/r66/resume"
)

// FileStore is where a server reads the files it sends and writes the files it receives.
// Names are relative to the store, and must not escape it.
type FileStore interface {
	// Create opens name for writing chunks, truncated to offset.
	// The returned writer should also implement io.Closer.
	Create(name string, offset int64) (io.WriterAt, error)

	// Open opens name for reading chunks, and returns its size.
	// The returned reader should also implement io.Closer.
	Open(name string) (io.ReaderAt, int64, error)

	Stat(name string) (filestore.Entry, error)
	List(pattern string) ([]filestore.Entry, error)
}

// Server answers the requests of R66 partners.
type Server struct {
	cfg *Config
	log *logrus.Logger

	auth       HostAuth
	store      FileStore
	resume     resume.Store
	monitor    monitor.Publisher
	business   BusinessExecutor
	onShutdown func(restart bool)
	tlsConfig  *tls.Config

	partners *PartnerTable
	rules    map[string]localpacket.TransferMode
	chunks   *sync.SlicePool[[]byte, byte]

	blocked  atomic.Bool
	sessions sync.Map[uuid.UUID, *Session]
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	closers   []func() error
	closed    bool

	shutdownOnce sync.Once
}

// NewServer returns a server for cfg.
//
// Collaborators not given as options are built from cfg:
// the file store over store_dir, a Redis resume store when redis.addr is set (in memory otherwise),
// and a log publisher, joined by a NATS publisher when nats.url is set.
func NewServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	partners, err := NewPartnerTable(cfg.JSONMinVersion)
	if err != nil {
		return nil, err
	}

	rules, err := cfg.rules()
	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(level)

	srv := &Server{
		cfg:       cfg,
		log:       log,
		partners:  partners,
		rules:     rules,
		chunks:    sync.NewSlicePool[[]byte](64, int(cfg.BlockSize)),
		listeners: make(map[net.Listener]struct{}),
	}

	for _, opt := range opts {
		if err := opt(srv); err != nil {
			return nil, err
		}
	}

	if err := srv.setDefaults(); err != nil {
		srv.closeAll()
		return nil, err
	}

	srv.ctx, srv.cancel = context.WithCancel(context.Background())

	return srv, nil
}

func (srv *Server) setDefaults() error {
	cfg := srv.cfg

	if srv.auth == nil {
		srv.auth = NewStaticHostAuth(cfg.Hosts)
	}

	if srv.store == nil {
		store, err := filestore.New(cfg.StoreDir)
		if err != nil {
			return err
		}
		srv.store = store
	}

	if srv.resume == nil {
		if cfg.Redis.Addr != "" {
			client := NewRedisClient(cfg.Redis)
			srv.closers = append(srv.closers, client.Close)
			srv.resume = resume.NewRedis(client, cfg.Redis.Prefix, 0)
		} else {
			srv.resume = resume.NewMemory()
		}
	}

	if srv.monitor == nil {
		pubs := monitor.Multi{
			monitor.NewLogPublisher(srv.log),
		}

		if cfg.NATS.URL != "" {
			nats, err := monitor.DialNATS(cfg.NATS.URL, cfg.NATS.Subject)
			if err != nil {
				return err
			}
			srv.closers = append(srv.closers, nats.Close)
			pubs = append(pubs, nats)
		}

		srv.monitor = pubs
	}

	if srv.business == nil {
		srv.business = NewBusinessMux()
	}

	return nil
}

// Logger returns the logger of the server.
func (srv *Server) Logger() *logrus.Logger {
	return srv.log
}

// Partners returns the table of the partners seen so far.
func (srv *Server) Partners() *PartnerTable {
	return srv.partners
}

// Blocked reports whether new transfer requests are refused.
func (srv *Server) Blocked() bool {
	return srv.blocked.Load()
}

// SetBlocked sets whether new transfer requests are refused.
// Transfers already running are not affected.
func (srv *Server) SetBlocked(blocked bool) {
	srv.blocked.Store(blocked)
}

// Sessions returns the number of open sessions.
func (srv *Server) Sessions() int {
	return srv.sessions.Len()
}

// checkRule refuses a request whose rule or mode the configuration does not allow.
func (srv *Server) checkRule(p *localpacket.RequestPacket) error {
	if !p.Mode.Valid() || p.Mode == localpacket.ModeUnknown {
		return protocolErrorf(localpacket.CodeUnimplemented, "transfer mode %d", int32(p.Mode))
	}

	if srv.rules == nil {
		return nil
	}

	mode, ok := srv.rules[p.Rule]
	if !ok {
		return protocolErrorf(localpacket.CodeQueryRemotelyUnknown, "unknown rule %q", p.Rule)
	}

	if !p.Mode.Compatible(mode) {
		return protocolErrorf(localpacket.CodeIncorrectCommand, "mode %s is incompatible with rule %s in %s", p.Mode, p.Rule, mode)
	}

	return nil
}

// ListenAndServe listens on the configured address and serves connections,
// over TLS when a certificate is configured or a TLS configuration was given.
func (srv *Server) ListenAndServe() error {
	tlsConfig := srv.tlsConfig

	if tlsConfig == nil && srv.cfg.TLSCert != "" {
		cert, err := tls.LoadX509KeyPair(srv.cfg.TLSCert, srv.cfg.TLSKey)
		if err != nil {
			return errors.Wrap(err, "load certificate")
		}

		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	ln, err := net.Listen("tcp", srv.cfg.Listen)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	return srv.Serve(ln)
}

func (srv *Server) trackListener(ln net.Listener, add bool) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if add {
		if srv.closed {
			return false
		}
		srv.listeners[ln] = struct{}{}
	} else {
		delete(srv.listeners, ln)
	}

	return true
}

// Serve accepts connections on ln, serving each one in its own goroutine.
// It returns ErrServerClosed once Close was called.
func (srv *Server) Serve(ln net.Listener) error {
	if !srv.trackListener(ln, true) {
		return ErrServerClosed
	}
	defer srv.trackListener(ln, false)

	srv.log.WithField("addr", ln.Addr().String()).Info("listening")

	var delay time.Duration

	for {
		c, err := ln.Accept()
		if err != nil {
			if srv.ctx.Err() != nil {
				return ErrServerClosed
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else if delay *= 2; delay > time.Second {
					delay = time.Second
				}
				srv.log.WithError(err).Warn("accept")
				time.Sleep(delay)
				continue
			}

			return errors.Wrap(err, "accept")
		}
		delay = 0

		_, ssl := c.(*tls.Conn)

		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()

			if err := srv.ServeConn(c, c.RemoteAddr().String(), ssl); err != nil {
				srv.log.WithError(err).WithField("remote", c.RemoteAddr().String()).Debug("session ended")
			}
		}()
	}
}

// ServeConn runs one session over rwc until it closes.
// remote names the peer in logs, ssl tells whether rwc is a TLS connection.
func (srv *Server) ServeConn(rwc io.ReadWriteCloser, remote string, ssl bool) error {
	s := newSession(srv, rwc, remote, ssl)

	srv.mu.Lock()
	closed := srv.closed
	if !closed {
		srv.sessions.Store(s.ID, s)
	}
	srv.mu.Unlock()

	if closed {
		rwc.Close()
		return ErrServerClosed
	}
	defer srv.sessions.Delete(s.ID)

	s.log.Debug("session opened")
	return s.serve(srv.ctx)
}

// Close stops accepting connections and closes every open session.
func (srv *Server) Close() error {
	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		return nil
	}
	srv.closed = true

	// Serve tells a shutdown from a listener failure by the context.
	srv.cancel()

	var err error
	for ln := range srv.listeners {
		if cerr := ln.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	srv.mu.Unlock()

	srv.sessions.Range(func(_ uuid.UUID, s *Session) bool {
		s.fail(ErrServerClosed)
		return true
	})

	srv.wg.Wait()

	if cerr := srv.closeAll(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}

func (srv *Server) closeAll() error {
	var err error
	for _, fn := range srv.closers {
		if cerr := fn(); cerr != nil && err == nil {
			err = cerr
		}
	}
	srv.closers = nil
	return err
}

// shutdown closes the server on behalf of an authorized Shutdown packet.
func (srv *Server) shutdown(restart bool) {
	srv.shutdownOnce.Do(func() {
		if err := srv.Close(); err != nil {
			srv.log.WithError(err).Error("shutdown")
		}

		if srv.onShutdown != nil {
			srv.onShutdown(restart)
		}
	})
}
