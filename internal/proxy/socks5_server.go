package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/rotor/internal/dialer"
	"github.com/die-net/rotor/internal/socks5"
	"github.com/die-net/rotor/internal/upstream"
)

var errNoUpstream = errors.New("no upstream available")

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// SOCKS5Server accepts SOCKS5 clients and forwards each connection through an
// upstream picked from the pool.
type SOCKS5Server struct {
	ctx context.Context
	cfg Config
	log zerolog.Logger
}

// NewSOCKS5Server constructs a server. Connections are torn down when ctx is
// done. A nil Pool or Selector defaults to an empty pool and first-upstream
// selection.
func NewSOCKS5Server(ctx context.Context, cfg Config) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Pool == nil {
		cfg.Pool = &upstream.Pool{}
	}
	if cfg.Selector == nil {
		cfg.Selector = upstream.First{}
	}
	return &SOCKS5Server{
		ctx: ctx,
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "socks5").Logger(),
	}
}

// Run serves ln and handles reload events until the server's context is
// done. The listener is closed on return. Reloads run beside the accept
// loop and never hold it up.
func (s *SOCKS5Server) Run(ln net.Listener, reloads <-chan struct{}) error {
	g, ctx := errgroup.WithContext(s.ctx)
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	g.Go(func() error {
		return s.Serve(ln)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-reloads:
				if !ok {
					reloads = nil
					continue
				}
				s.reload()
			}
		}
	})

	return g.Wait()
}

func (s *SOCKS5Server) reload() {
	if s.cfg.Reload == nil {
		return
	}
	if err := s.cfg.Reload(); err != nil {
		s.log.Error().Err(err).Int("upstreams", s.cfg.Pool.Load().Len()).Msg("reload failed, keeping previous upstream list")
		return
	}
	snap := s.cfg.Pool.Load()
	s.log.Info().Int("upstreams", snap.Len()).Uint64("generation", snap.Generation).Msg("upstream list reloaded")
}

// Serve accepts connections on ln and handles each in its own goroutine.
// Transient accept errors are logged and retried with backoff. Serve returns
// nil once the server's context is done and ln is closed.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}

			backoff = min(max(2*backoff, minAcceptBackoff), maxAcceptBackoff)
			s.log.Error().Err(err).Dur("retry_in", backoff).Msg("accept failed")
			select {
			case <-time.After(backoff):
			case <-s.ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		go s.handleConn(c)
	}
}

func (s *SOCKS5Server) handleConn(conn net.Conn) {
	log := s.log.With().Str("client", conn.RemoteAddr().String()).Logger()
	if err := s.handle(conn, &log); err != nil {
		log.Debug().Err(err).Msg("connection error")
	}
}

func (s *SOCKS5Server) handle(conn net.Conn, log *zerolog.Logger) error {
	defer conn.Close()
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	req, err := socks5.ServerHandshake(conn)
	if err != nil {
		// Only request-level errors have a reply code the client can use.
		if rep := socks5.ReplyCode(err); rep != socks5.RepGeneralFailure {
			_ = socks5.WriteFailureReply(conn, rep)
		}
		return fmt.Errorf("client handshake: %w", err)
	}
	*log = log.With().Str("target", req.String()).Logger()

	up, ok := s.cfg.Selector.Pick(s.cfg.Pool.Load())
	if !ok {
		_ = socks5.WriteFailureReply(conn, socks5.RepGeneralFailure)
		return errNoUpstream
	}
	*log = log.With().Stringer("upstream", up).Logger()

	upConn, err := dialer.NewSOCKS5ProxyDialer(s.cfg.Dialer, up).DialSOCKS(ctx, req.Addr, req.Port)
	if err != nil {
		_ = socks5.WriteFailureReply(conn, socks5.ReplyCode(err))
		return err
	}
	defer upConn.Close()

	if err := socks5.WriteSuccessReply(conn, upConn.BoundAddr, upConn.BoundPort); err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Time{})
	log.Debug().Msg("tunnel established")

	// Relay on the raw conns so the kernel splice path stays available.
	sent, received, err := CopyBidirectional(ctx, conn, upConn.Conn)
	log.Debug().Int64("sent", sent).Int64("received", received).Msg("tunnel closed")
	if err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	return nil
}
