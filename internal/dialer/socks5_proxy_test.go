package dialer

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/txthinking/socks5"

	rsocks5 "github.com/die-net/rotor/internal/socks5"
	"github.com/die-net/rotor/internal/testutil"
	"github.com/die-net/rotor/internal/upstream"
)

func TestSOCKS5ProxyDialerDialSuccess(t *testing.T) {
	tests := []struct {
		name string
		user string
		pass string
	}{
		{name: "no_auth"},
		{name: "user_pass", user: "user", pass: "pass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			echoLn := testutil.StartEchoTCPServer(t, ctx)
			up := testutil.StartSOCKS5Upstream(t, ctx, tt.user, tt.pass)

			desc := upstream.Descriptor{Addr: up.Addr().String()}
			if tt.user != "" {
				desc.Auth = &rsocks5.Auth{Username: tt.user, Password: tt.pass}
			}
			d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 2 * time.Second}, desc)

			conn, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()

			testutil.AssertEcho(t, conn, conn, []byte("hello"))

			c, ok := conn.(*Conn)
			if !ok {
				t.Fatalf("got %T", conn)
			}
			if c.BoundAddr.Host() != "127.0.0.1" || c.BoundPort == 0 {
				t.Fatalf("unexpected bound address %v:%d", c.BoundAddr, c.BoundPort)
			}
		})
	}
}

func TestSOCKS5ProxyDialerWrongPassword(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	up := testutil.StartSOCKS5Upstream(t, ctx, "user", "pass")
	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upstream.Descriptor{
		Addr: up.Addr().String(),
		Auth: &rsocks5.Auth{Username: "user", Password: "wrong"},
	})

	_, err := d.DialContext(ctx, "tcp", "127.0.0.1:1")
	if !errors.Is(err, rsocks5.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestSOCKS5ProxyDialerDialContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	lc := net.ListenConfig{}
	upLn, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer upLn.Close()

	// Accept, then stall: never answer the greeting.
	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		c, err := upLn.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 16)
		for {
			if _, err := c.Read(buf); err != nil {
				return
			}
		}
	}()

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upstream.Descriptor{Addr: upLn.Addr().String()})

	time.AfterFunc(50*time.Millisecond, cancel)
	start := time.Now()
	_, err = d.DialContext(ctx, "tcp", "127.0.0.1:1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancel did not abort the handshake promptly")
	}

	_ = upLn.Close()
	<-acceptDone
}

func TestSOCKS5ProxyDialerNegotiationTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		<-ctx.Done()
	})

	d := NewSOCKS5ProxyDialer(Config{NegotiationTimeout: 50 * time.Millisecond}, upstream.Descriptor{Addr: upLn.Addr().String()})

	_, err := d.DialContext(ctx, "tcp", "127.0.0.1:1")
	var ne net.Error
	if !errors.Is(err, rsocks5.ErrHandshake) || !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expected handshake timeout, got %v", err)
	}

	cancel()
	waitUp()
}

func TestSOCKS5ProxyDialerDialFail(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		if _, err := socks5.NewNegotiationRequestFrom(c); err != nil {
			return
		}
		if _, err := socks5.NewNegotiationReply(socks5.MethodNone).WriteTo(c); err != nil {
			return
		}
		req, err := socks5.NewRequestFrom(c)
		if err != nil {
			return
		}
		if req.Cmd != socks5.CmdConnect {
			return
		}
		_, _ = socks5.NewReply(socks5.RepConnectionRefused, socks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00}).WriteTo(c)
	})

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upstream.Descriptor{Addr: upLn.Addr().String()})

	_, err := d.DialContext(ctx, "tcp", "127.0.0.1:1")
	var re *rsocks5.ReplyError
	if !errors.As(err, &re) || re.Rep != rsocks5.RepConnectionRefused {
		t.Fatalf("expected connection refused reply, got %v", err)
	}

	waitUp()
}

func TestSOCKS5ProxyDialerUpstreamDown(t *testing.T) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: time.Second}, upstream.Descriptor{Addr: addr})
	_, err = d.DialContext(context.Background(), "tcp", "127.0.0.1:1")
	if !errors.Is(err, rsocks5.ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	if rsocks5.ReplyCode(err) != rsocks5.RepConnectionRefused {
		t.Fatalf("unexpected reply code 0x%02x", rsocks5.ReplyCode(err))
	}
}
