package rpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Client holds one connection. Calls are serialised, so share a Client
// only when request volume is low.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	encoder *json.Encoder
	decoder *json.Decoder
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return &Client{
		conn:    conn,
		encoder: json.NewEncoder(conn),
		decoder: json.NewDecoder(conn),
	}, nil
}

// Call invokes method and decodes the result into result (may be nil). The
// context deadline, if any, bounds the round trip.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshaling params: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	req := Request{Method: method, ID: uuid.NewString(), Params: raw}
	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("sending %s: %w", method, err)
	}

	var resp Response
	if err := c.decoder.Decode(&resp); err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}
	if resp.ID != req.ID {
		return fmt.Errorf("%s: response id %s does not match request %s", method, resp.ID, req.ID)
	}
	if resp.Error != "" {
		if sentinel, ok := codeSentinels[resp.Code]; ok {
			return fmt.Errorf("%s: %w: %s", method, sentinel, resp.Error)
		}
		return fmt.Errorf("%s: rpc error: %s", method, resp.Error)
	}

	if result != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
