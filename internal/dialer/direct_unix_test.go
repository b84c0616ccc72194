//go:build unix

package dialer

import (
	"context"
	"testing"
	"time"

	"github.com/die-net/rotor/internal/config"
	"github.com/die-net/rotor/internal/testutil"
)

func TestDirectDialerKeepAlive(t *testing.T) {
	tests := []struct {
		setting string
		want    bool
	}{
		{setting: "off", want: false},
		{setting: "on", want: true},
		{setting: "30:10:3", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			ka, err := config.ParseTCPKeepAlive(tt.setting)
			if err != nil {
				t.Fatal(err)
			}
			echoLn := testutil.StartEchoTCPServer(t, ctx)

			d := NewDirectDialer(Config{DialTimeout: time.Second, KeepAlive: ka})
			conn, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()

			if got := testutil.KeepAliveEnabled(t, conn); got != tt.want {
				t.Fatalf("SO_KEEPALIVE = %v, want %v", got, tt.want)
			}
		})
	}
}
