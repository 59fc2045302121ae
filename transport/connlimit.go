// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package transport

import (
	"net"
	"sync"

	"github.com/hashicorp/go-connlimit"
)

// wrapConnLimit caps concurrent connections per remote address, guarding
// the single scheduler/Controller slot from one misbehaving client opening
// unbounded sessions. maxPerAddr <= 0 disables the limit. go-connlimit
// exposes a per-connection Limiter.Accept, not a net.Listener wrapper, so
// limitedListener supplies the net.Listener adapter gRPC's Serve expects.
func wrapConnLimit(ln net.Listener, maxPerAddr int) (net.Listener, error) {
	if maxPerAddr <= 0 {
		return ln, nil
	}
	return &limitedListener{
		Listener: ln,
		limiter:  connlimit.NewLimiter(connlimit.Config{MaxConnsPerClientIP: maxPerAddr}),
	}, nil
}

type limitedListener struct {
	net.Listener
	limiter *connlimit.Limiter
}

// Accept retries past connections that the limiter rejects, closing them
// immediately, so a capped-out client never ties up this listener.
func (l *limitedListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		free, err := l.limiter.Accept(conn)
		if err != nil {
			conn.Close()
			continue
		}
		return &limitedConn{Conn: conn, free: free}, nil
	}
}

type limitedConn struct {
	net.Conn
	free     func()
	closeOne sync.Once
}

func (c *limitedConn) Close() error {
	c.closeOne.Do(c.free)
	return c.Conn.Close()
}
