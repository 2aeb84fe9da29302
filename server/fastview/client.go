package fastview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = time.Second
	maxMessageSize = 8192

	pingPeriod = 200 * time.Millisecond
	// A peer silent for this long is considered gone.
	pongWait = 4 * pingPeriod

	closeGracePeriod = time.Second
)

var upgrader = websocket.Upgrader{}

// ErrPongDeadlineExceeded is returned by Sync when the browser stops answering pings.
var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// Client publishes updates unidirectionally to a browser over a websocket.
type Client[T any] struct {
	updates <-chan T
	conn    *websocket.Conn
	rootCtx context.Context
}

// NewClient upgrades the request to a websocket and returns a client publishing updates to it.
func NewClient[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T], error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	return &Client[T]{
		updates: updates,
		conn:    conn,
		rootCtx: r.Context(),
	}, nil
}

// Sync publishes incoming updates to the client until it disconnects, the request
// context ends, or the updates chan is closed. It returns nil on an orderly disconnect.
//
// Two routines share the socket: read drains the peer and runs the pong handler, and write
// is the connection's only data writer. Pings go through WriteControl, which gorilla
// permits concurrently with the data writer.
func (cli *Client[T]) Sync() error {
	defer cli.close()

	lastPong := make(chan time.Time, 1)
	cli.conn.SetPongHandler(func(string) error {
		select {
		case <-lastPong:
		default:
		}
		lastPong <- time.Now()
		return nil
	})

	group, groupCtx := errgroup.WithContext(cli.rootCtx)
	go func() {
		<-groupCtx.Done()
		// Unblocks read.
		_ = cli.conn.SetReadDeadline(time.Now())
	}()
	group.Go(func() error {
		return cli.read(groupCtx)
	})
	group.Go(func() error {
		return cli.write(groupCtx, lastPong)
	})

	if err := group.Wait(); err != nil && !isClosure(err) {
		return err
	}
	return nil
}

func (cli *Client[T]) read(ctx context.Context) error {
	for ctx.Err() == nil {
		if _, _, err := cli.conn.ReadMessage(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

// write forwards every update in order and pings on each tick. A slow client backs
// up the updates chan, and upstream producers drop snapshots rather than block.
func (cli *Client[T]) write(ctx context.Context, lastPong <-chan time.Time) error {
	pings := channerics.NewTicker(ctx.Done(), pingPeriod)
	heardFrom := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case at := <-lastPong:
			heardFrom = at
		case <-pings:
			if time.Since(heardFrom) > pongWait {
				return ErrPongDeadlineExceeded
			}
			err := cli.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if isError(err) {
				return fmt.Errorf("ping failed: %w", err)
			}
		case update, ok := <-cli.updates:
			if !ok {
				return nil
			}
			if err := cli.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("set write deadline: %w", err)
			}
			if err := cli.conn.WriteJSON(update); isError(err) {
				return fmt.Errorf("publish failed: %w", err)
			}
		}
	}
}

// close says goodbye and gives the peer a moment to read it before dropping the connection.
func (cli *Client[T]) close() {
	_ = cli.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	time.Sleep(closeGracePeriod)
	cli.conn.Close()
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}
