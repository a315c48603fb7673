package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 1 * time.Second
	readDeadline   = time.Second
	writeDeadline  = time.Second
	maxMessageSize = 8192

	pubResolution    = time.Millisecond * 100
	pingResolution   = time.Millisecond * 500
	pongWait         = pingResolution * 4
	closeGracePeriod = 10 * time.Second
)

// ErrPongDeadlineExceeded is returned from pingPong when the peer stops
// responding to pings.
var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// ErrSockCongestion indicates too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

// client supervises one upgraded websocket connection, adapted from the
// teacher's fastview.client[T]: the same ping-pong/errgroup/serialized
// read-write skeleton, but bidirectional -- incoming messages are parsed and
// dispatched to handleMessage instead of discarded, per the teacher's own
// "FUTURE: this is where it would be easy to implement a bidirectional
// client" comment.
type client[T any] struct {
	ws             *websock
	updates        <-chan T
	handleMessage  func(ControlMessage) error
	rootCtx        context.Context
}

func newClient[T any](
	ws *websocket.Conn,
	ctx context.Context,
	updates <-chan T,
	handleMessage func(ControlMessage) error,
) *client[T] {
	return &client[T]{
		ws:            newWebSocket(ws),
		updates:       updates,
		handleMessage: handleMessage,
		rootCtx:       ctx,
	}
}

// Sync runs the client's read pump, ping-pong, and publish loop until any
// one of them errors or the connection closes.
func (cli *client[T]) Sync() error {
	group, groupCtx := errgroup.WithContext(cli.rootCtx)

	group.Go(func() error { return cli.readMessages(groupCtx) })
	group.Go(func() error { return cli.pingPong(groupCtx) })
	group.Go(func() error { return cli.publish(groupCtx) })

	err := group.Wait()
	cli.ws.Close()
	return err
}

func (cli *client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		case <-ctx.Done():
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *client[T]) ping(ctx context.Context) error {
	return cli.ws.Write(ctx, func(ws *websocket.Conn) error {
		err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		if err != nil && isError(err) {
			err = fmt.Errorf("ping failed: %w", err)
		}
		return err
	})
}

// readMessages parses and dispatches control messages from the peer. Reads
// must run continuously regardless, since gorilla/websocket only invokes
// the pong handler while a Read call is in flight.
func (cli *client[T]) readMessages(ctx context.Context) error {
	for {
		var msg ControlMessage
		err := cli.ws.Read(ctx, func(ws *websocket.Conn) error {
			return ws.ReadJSON(&msg)
		})
		if err != nil {
			if isClosure(err) {
				return nil
			}
			return err
		}
		if cli.handleMessage != nil {
			if err := cli.handleMessage(msg); err != nil {
				return err
			}
		}
	}
}

func (cli *client[T]) publish(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			if !ok {
				return nil
			}

			err := cli.ws.Write(ctx, func(ws *websocket.Conn) error {
				if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return fmt.Errorf("failed to set deadline: %w", err)
				}
				if err := ws.WriteJSON(update); err != nil && isError(err) {
					return fmt.Errorf("publish failed: %w", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}
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

// websock serializes reads and writes to the underlying connection, since
// gorilla/websocket permits only one concurrent reader and one concurrent
// writer.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

func (sock *websock) Conn() *websocket.Conn { return sock.ws }

func (sock *websock) Close() {
	_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = sock.ws.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	sock.ws.Close()
}

func (sock *websock) Read(ctx context.Context, readFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	case <-time.After(readDeadline):
		return ErrSockCongestion
	}
}

func (sock *websock) Write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
