package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/rotor/internal/config"
	"github.com/die-net/rotor/internal/dialer"
	"github.com/die-net/rotor/internal/logging"
	"github.com/die-net/rotor/internal/proxy"
	"github.com/die-net/rotor/internal/upstream"
)

// Delay between the last change to a watched upstream list and its reload.
const watchSettle = 500 * time.Millisecond

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	def := config.Default()
	var (
		configPath = pflag.String("config", "", "Path to an INI config file with [server] and [log] sections. Empty disables.")

		bind      = pflag.String("bind", def.Server.Bind, "SOCKS5 listen address (e.g. 127.0.0.1:1080). Env: BIND")
		proxyList = pflag.String("proxy-list", def.Server.ProxyList, "Path to the upstream list: one host:port[|user:pass] per line. Env: PROXY_LIST")
		policy    = pflag.String("policy", def.Server.Policy, "Upstream selection policy: first | round-robin | random. Env: POLICY")
		watch     = pflag.Bool("watch", def.Server.Watch, "Reload the upstream list when the file changes, in addition to SIGHUP")

		debugListen        = pflag.String("debug-listen", def.Server.DebugListen, "Debug HTTP listen address exposing /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")
		dialTimeout        = pflag.Duration("dial-timeout", def.Server.DialTimeout, "Timeout for TCP connect to an upstream proxy")
		negotiationTimeout = pflag.Duration("negotiation-timeout", def.Server.NegotiationTimeout, "Timeout for protocol negotiation to set up connection")
		tcpKeepAlive       = pflag.String("tcp-keepalive", def.Server.TCPKeepAlive, "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")

		verbose = pflag.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace). Env: VERBOSE")
		quiet   = pflag.BoolP("quiet", "q", def.Log.Quiet, "Only log warnings and errors. Env: QUIET")
		logFile = pflag.String("log-file", def.Log.File, "Write logs to this file with rotation instead of stderr")
		logJSON = pflag.Bool("log-json", def.Log.JSON, "Write logs as JSON lines")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	cfg := def
	if *configPath != "" {
		if err := config.LoadFile(&cfg, *configPath); err != nil {
			return err
		}
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	changed := pflag.CommandLine.Changed
	overlay := func(name string, apply func()) {
		if changed(name) {
			apply()
		}
	}
	overlay("bind", func() { cfg.Server.Bind = *bind })
	overlay("proxy-list", func() { cfg.Server.ProxyList = *proxyList })
	overlay("policy", func() { cfg.Server.Policy = *policy })
	overlay("watch", func() { cfg.Server.Watch = *watch })
	overlay("debug-listen", func() { cfg.Server.DebugListen = *debugListen })
	overlay("dial-timeout", func() { cfg.Server.DialTimeout = *dialTimeout })
	overlay("negotiation-timeout", func() { cfg.Server.NegotiationTimeout = *negotiationTimeout })
	overlay("tcp-keepalive", func() { cfg.Server.TCPKeepAlive = *tcpKeepAlive })
	overlay("verbose", func() { cfg.Log.Verbose = *verbose })
	overlay("quiet", func() { cfg.Log.Quiet = *quiet })
	overlay("log-file", func() { cfg.Log.File = *logFile })
	overlay("log-json", func() { cfg.Log.JSON = *logJSON })

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ka, err := config.ParseTCPKeepAlive(cfg.Server.TCPKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}
	selector, err := upstream.NewSelector(cfg.Server.Policy)
	if err != nil {
		return fmt.Errorf("invalid --policy: %w", err)
	}

	log, logCloser := logging.New(logging.Options{
		Quiet:   cfg.Log.Quiet,
		Verbose: cfg.Log.Verbose,
		File:    cfg.Log.File,
		JSON:    cfg.Log.JSON,
	})
	defer logCloser.Close()

	list, err := upstream.LoadFile(cfg.Server.ProxyList, log)
	if err != nil {
		return fmt.Errorf("load upstream list: %w", err)
	}
	pool := upstream.NewPool(list)

	proxyCfg := proxy.Config{
		NegotiationTimeout: cfg.Server.NegotiationTimeout,
		KeepAlive:          ka,
		Dialer: dialer.Config{
			DialTimeout:        cfg.Server.DialTimeout,
			NegotiationTimeout: cfg.Server.NegotiationTimeout,
			KeepAlive:          ka,
		},
		Pool:     pool,
		Selector: selector,
		Reload: func() error {
			_, err := pool.ReloadFile(cfg.Server.ProxyList, log)
			return err
		},
		Logger: log,
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.DebugListen != "" {
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		debugLn, err := proxy.ListenTCP(ctx, cfg.Server.DebugListen, ka)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Info().Str("addr", cfg.Server.DebugListen).Msg("debug listening")
	}

	// Buffered so a reload requested while one runs is kept, not queued.
	reloads := make(chan struct{}, 1)
	requestReload := func() {
		select {
		case reloads <- struct{}{}:
		default:
		}
	}

	g.Go(func() error {
		notifyReload(ctx, requestReload)
		return nil
	})

	if cfg.Server.Watch {
		g.Go(func() error {
			return upstream.Watch(ctx, cfg.Server.ProxyList, watchSettle, log, requestReload)
		})
	}

	ln, err := proxy.ListenTCP(ctx, cfg.Server.Bind, ka)
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	srv := proxy.NewSOCKS5Server(ctx, proxyCfg)

	g.Go(func() error {
		if err := srv.Run(ln, reloads); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})

	log.Info().
		Str("addr", ln.Addr().String()).
		Str("policy", cfg.Server.Policy).
		Int("upstreams", pool.Load().Len()).
		Msg("socks5 proxy listening")

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Info().Msg("shutting down")
	return err
}
