// Package client speaks the relay protocol from the subscriber side.
package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

// Client is one subscriber connection. It is not safe for concurrent
// Receive calls; Send may run alongside Receive.
type Client struct {
	conn    net.Conn
	framing proto.Framing
	decoder proto.Decoder
	buf     []byte
	pending []proto.Message
	log     *zerolog.Logger
}

// Dial connects to a relay listener.
func Dial(ctx context.Context, addr string, framing proto.Framing, logger *zerolog.Logger) (*Client, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	return &Client{
		conn:    conn,
		framing: framing,
		decoder: proto.NewDecoder(framing, proto.DefaultMaxFrame),
		buf:     make([]byte, proto.DefaultMaxFrame),
		log:     logger,
	}, nil
}

// Send writes one message. Sentinel senders such as "<screenshot>" issue
// control commands.
func (c *Client) Send(msg proto.Message) error {
	data, err := proto.Encode(c.framing, msg)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Receive returns the next event, blocking until one arrives, the deadline
// of ctx passes or the connection fails.
func (c *Client) Receive(ctx context.Context) (proto.Message, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return proto.Message{}, err
		}
		defer c.conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	}

	for len(c.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return proto.Message{}, err
		}
		n, err := c.conn.Read(c.buf)
		if n > 0 {
			msgs, frameErrs := c.decoder.Feed(c.buf[:n])
			for _, fe := range frameErrs {
				c.log.Warn().Err(fe.Err).Str("reason", fe.Reason).Msg("dropped event fragment")
			}
			c.pending = append(c.pending, msgs...)
		}
		if err != nil && len(c.pending) == 0 {
			return proto.Message{}, fmt.Errorf("read: %w", err)
		}
	}

	msg := c.pending[0]
	c.pending = c.pending[1:]
	return msg, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
