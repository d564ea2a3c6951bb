// Package transport moves raw datagrams. It knows nothing about the records
// it carries.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// MaxDatagramSize bounds a single read; larger datagrams are truncated and
// then rejected by the codec's length check.
const MaxDatagramSize = 1024

const pollInterval = 250 * time.Millisecond

var ErrClosed = errors.New("transport: closed")

type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

type Receiver interface {
	Receive(ctx context.Context) (Datagram, error)
	Close() error
}

type Datagram struct {
	Payload []byte
	From    net.Addr
	At      time.Time
}

// UDPBroadcaster sends every payload to one fixed destination, normally a
// subnet broadcast address.
type UDPBroadcaster struct {
	conn *net.UDPConn
	dst  *net.UDPAddr
}

func NewUDPBroadcaster(host string, port int) (*UDPBroadcaster, error) {
	dst, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve broadcast %s:%d: %w", host, port, err)
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("transport: open broadcast socket: %w", err)
	}
	return &UDPBroadcaster{conn: conn, dst: dst}, nil
}

func (b *UDPBroadcaster) Send(ctx context.Context, payload []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = b.conn.SetWriteDeadline(deadline)
	} else {
		_ = b.conn.SetWriteDeadline(time.Time{})
	}
	_, err := b.conn.WriteToUDP(payload, b.dst)
	return err
}

func (b *UDPBroadcaster) Destination() string {
	return b.dst.String()
}

func (b *UDPBroadcaster) Close() error {
	return b.conn.Close()
}

// UDPListener receives datagrams on a bound port.
type UDPListener struct {
	conn *net.UDPConn
	buf  []byte
}

func ListenUDP(host string, port int) (*UDPListener, error) {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve listen %s:%d: %w", host, port, err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &UDPListener{conn: conn, buf: make([]byte, MaxDatagramSize)}, nil
}

// Receive blocks until a datagram arrives or ctx ends. The returned payload
// is a fresh copy.
func (l *UDPListener) Receive(ctx context.Context) (Datagram, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Datagram{}, err
		}
		_ = l.conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, from, err := l.conn.ReadFromUDP(l.buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return Datagram{}, ErrClosed
			}
			return Datagram{}, err
		}
		payload := make([]byte, n)
		copy(payload, l.buf[:n])
		return Datagram{Payload: payload, From: from, At: time.Now()}, nil
	}
}

func (l *UDPListener) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

func (l *UDPListener) Close() error {
	return l.conn.Close()
}
