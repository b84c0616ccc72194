//go:build unix

package testutil

import (
	"net"
	"testing"

	"golang.org/x/sys/unix"
)

// KeepAliveEnabled reports the SO_KEEPALIVE socket option of c.
func KeepAliveEnabled(t *testing.T, c net.Conn) bool {
	t.Helper()

	tc, ok := c.(*net.TCPConn)
	if !ok {
		t.Fatalf("expected *net.TCPConn, got %T", c)
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		t.Fatal(err)
	}

	var (
		v       int
		sockErr error
	)
	if err := raw.Control(func(fd uintptr) {
		v, sockErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE)
	}); err != nil {
		t.Fatal(err)
	}
	if sockErr != nil {
		t.Fatal(sockErr)
	}
	return v != 0
}
