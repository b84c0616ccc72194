package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CopyBidirectional relays between left and right until either direction
// reaches EOF or fails, or ctx is done. Both connections are closed on
// return. It returns the byte counts in each direction and the first real
// I/O error; errors caused by closing the other side are not reported.
func CopyBidirectional(ctx context.Context, left, right net.Conn) (leftToRight, rightToLeft int64, err error) {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var g errgroup.Group
	g.Go(func() error {
		var err error
		leftToRight, err = io.Copy(right, left)
		closeBoth()
		return relayErr(err)
	})
	g.Go(func() error {
		var err error
		rightToLeft, err = io.Copy(left, right)
		closeBoth()
		return relayErr(err)
	})

	err = g.Wait()
	return leftToRight, rightToLeft, err
}

func relayErr(err error) error {
	if err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
