package corba

import (
	"encoding/binary"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/ifabos/go-corba/giop"
	"github.com/stretchr/testify/require"
)

// acceptOnce starts a listener that accepts a single connection, reads one
// GIOP request frame, and passes its header and body to handle, which writes
// any reply itself. It returns the listener's address.
func acceptOnce(t *testing.T, handle func(conn net.Conn, header giop.MessageHeader, body []byte)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		header, body, err := readGIOPFrame(conn)
		if err != nil {
			return
		}
		handle(conn, header, body)
	}()

	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func replyNoException(requestID uint32, args []interface{}) []byte {
	body := giop.NewCDRMarshaller(binary.BigEndian)
	body.WriteReplyHeader(&giop.ReplyHeader{RequestID: requestID, ReplyStatus: giop.ReplyStatusNoException})
	EncodeArgs(body, args)
	return body.Bytes()
}

func TestConnectionPoolReusesConnection(t *testing.T) {
	addr := acceptOnce(t, func(conn net.Conn, header giop.MessageHeader, body []byte) {
		bu := giop.NewCDRUnmarshaller(body, binary.BigEndian)
		req, _ := bu.ReadRequestHeaderVersion(2)
		writeGIOPFrame(conn, giop.MsgReply, replyNoException(req.RequestID, []interface{}{"pong"}))
		// Keep the connection open for a second invocation.
		header2, body2, err := readGIOPFrame(conn)
		if err != nil {
			return
		}
		_ = header2
		bu2 := giop.NewCDRUnmarshaller(body2, binary.BigEndian)
		req2, _ := bu2.ReadRequestHeaderVersion(2)
		writeGIOPFrame(conn, giop.MsgReply, replyNoException(req2.RequestID, []interface{}{"pong2"}))
	})

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	pool := NewConnectionPool()
	defer pool.Close()

	c1, err := pool.Get(host, port)
	require.NoError(t, err)
	c2, err := pool.Get(host, port)
	require.NoError(t, err)
	require.Same(t, c1, c2)

	result, ex, err := c1.Invoke([]byte("key"), "ping", nil, false, time.Second)
	require.NoError(t, err)
	require.Nil(t, ex)
	require.Equal(t, "pong", result)

	result2, ex2, err := c2.Invoke([]byte("key"), "ping", nil, false, time.Second)
	require.NoError(t, err)
	require.Nil(t, ex2)
	require.Equal(t, "pong2", result2)
}

func TestOnewayInvokeDoesNotWaitForReply(t *testing.T) {
	received := make(chan string, 1)
	addr := acceptOnce(t, func(conn net.Conn, header giop.MessageHeader, body []byte) {
		bu := giop.NewCDRUnmarshaller(body, binary.BigEndian)
		req, _ := bu.ReadRequestHeaderVersion(2)
		received <- req.Operation
		// No reply is sent for a oneway call.
	})

	host, portStr, _ := net.SplitHostPort(addr)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	pool := NewConnectionPool()
	defer pool.Close()

	conn, err := pool.Get(host, port)
	require.NoError(t, err)

	result, ex, err := conn.Invoke([]byte("key"), "fireAndForget", nil, true, time.Second)
	require.NoError(t, err)
	require.Nil(t, ex)
	require.Nil(t, result)

	select {
	case op := <-received:
		require.Equal(t, "fireAndForget", op)
	case <-time.After(time.Second):
		t.Fatal("server never observed the oneway request")
	}
}

func TestInvokeTimesOutWhenServerNeverReplies(t *testing.T) {
	addr := acceptOnce(t, func(conn net.Conn, header giop.MessageHeader, body []byte) {
		// Deliberately never reply.
		time.Sleep(500 * time.Millisecond)
	})

	host, portStr, _ := net.SplitHostPort(addr)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	pool := NewConnectionPool()
	defer pool.Close()

	conn, err := pool.Get(host, port)
	require.NoError(t, err)

	_, ex, err := conn.Invoke([]byte("key"), "slow", nil, false, 20*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, ex)
	require.Equal(t, "TIMEOUT", ex.Name())
}

func TestInvokeRejectsOnceConnectionIsAtPendingCap(t *testing.T) {
	addr := acceptOnce(t, func(conn net.Conn, header giop.MessageHeader, body []byte) {
		time.Sleep(500 * time.Millisecond)
	})

	host, portStr, _ := net.SplitHostPort(addr)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	pool := NewConnectionPool()
	defer pool.Close()

	conn, err := pool.Get(host, port)
	require.NoError(t, err)

	conn.mu.Lock()
	for i := 0; i < maxPendingRequests; i++ {
		conn.pending[conn.nextRequestID()] = make(chan pendingReply, 1)
	}
	conn.mu.Unlock()

	_, ex, err := conn.Invoke([]byte("key"), "op", nil, false, time.Second)
	require.NoError(t, err)
	require.NotNil(t, ex)
	require.Equal(t, "NO_RESOURCES", ex.Name())
}

func TestInvokeOnClosedConnectionFailsFast(t *testing.T) {
	addr := acceptOnce(t, func(conn net.Conn, header giop.MessageHeader, body []byte) {})

	host, portStr, _ := net.SplitHostPort(addr)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	pool := NewConnectionPool()
	conn, err := pool.Get(host, port)
	require.NoError(t, err)

	require.NoError(t, conn.Close())

	_, ex, err := conn.Invoke([]byte("key"), "op", nil, false, time.Second)
	require.Error(t, err)
	require.Nil(t, ex)
}
