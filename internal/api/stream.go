package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/meghana-0211/email-automation/internal/apperr"
)

// EventStream is an open push channel connection. Frames are read strictly
// in arrival order by a single consumer.
type EventStream struct {
	conn *websocket.Conn

	closeOnce sync.Once
	closeErr  error
}

// DialEvents opens the backend push channel. The connection is closed when
// ctx is cancelled.
func (c *Client) DialEvents(ctx context.Context) (*EventStream, error) {
	wsURL, err := c.eventsURL()
	if err != nil {
		return nil, err
	}

	conn, err := websocket.Dial(wsURL, "", c.baseURL)
	if err != nil {
		return nil, &apperr.TransportError{Op: "dial " + wsURL, Err: err}
	}

	s := &EventStream{conn: conn}
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return s, nil
}

// eventsURL derives the websocket endpoint from the HTTP base URL.
func (c *Client) eventsURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if c.apiKey != "" {
		q := u.Query()
		q.Set("api_key", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Next blocks until the next frame arrives. It returns a TransportError when
// the connection is closed or the peer goes away.
func (s *EventStream) Next() (*Event, error) {
	var ev Event
	if err := websocket.JSON.Receive(s.conn, &ev); err != nil {
		return nil, &apperr.TransportError{Op: "read event stream", Err: err}
	}
	return &ev, nil
}

// Close closes the underlying connection. Safe to call more than once.
func (s *EventStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
