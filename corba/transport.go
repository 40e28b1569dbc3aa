// Package corba provides a CORBA implementation in Go
package corba

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ifabos/go-corba/giop"
)

// DefaultInvokeTimeout bounds how long a two-way invocation waits for its
// reply before the caller sees a TIMEOUT system exception.
const DefaultInvokeTimeout = 30 * time.Second

// maxPendingRequests bounds how many two-way invocations a single
// Connection will track concurrently; beyond that a caller gets
// NO_RESOURCES rather than an unbounded pending map.
const maxPendingRequests = 4096

// connState tracks a Connection's lifecycle for diagnostics and for
// rejecting use after the socket starts tearing down.
type connState int32

const (
	connConnecting connState = iota
	connOpen
	connClosing
	connClosed
)

type pendingReply struct {
	status uint32
	body   []byte
	err    error
}

// Connection is a single IIOP transport connection to a peer ORB. One
// goroutine demultiplexes replies off the wire by request ID so that many
// callers can share the connection for concurrent two-way invocations.
type Connection struct {
	address string

	writeMu sync.Mutex
	conn    net.Conn

	mu        sync.Mutex
	pending   map[uint32]chan pendingReply
	requestID uint32
	closed    bool

	state int32 // connState, accessed atomically
}

func dialConnection(address string) (*Connection, error) {
	c := &Connection{
		address: address,
		pending: make(map[uint32]chan pendingReply),
	}
	atomic.StoreInt32(&c.state, int32(connConnecting))

	conn, err := net.Dial("tcp", address)
	if err != nil {
		atomic.StoreInt32(&c.state, int32(connClosed))
		return nil, fmt.Errorf("failed to connect to CORBA peer at %s: %w", address, err)
	}

	c.conn = conn
	atomic.StoreInt32(&c.state, int32(connOpen))
	go c.readLoop()
	return c, nil
}

func (c *Connection) nextRequestID() uint32 {
	return atomic.AddUint32(&c.requestID, 1)
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) connState() connState {
	return connState(atomic.LoadInt32(&c.state))
}

func (c *Connection) readLoop() {
	for {
		header, body, err := readGIOPFrame(c.conn)
		if err != nil {
			c.abort(err)
			return
		}

		switch header.MsgType {
		case giop.MsgReply:
			bu := giop.NewCDRUnmarshaller(body, binary.BigEndian)
			replyHeader, err := bu.ReadReplyHeader()
			if err != nil {
				continue
			}
			payload, err := bu.ReadRemaining()
			if err != nil {
				continue
			}
			c.deliver(replyHeader.RequestID, pendingReply{status: replyHeader.ReplyStatus, body: payload})

		case giop.MsgLocateReply:
			bu := giop.NewCDRUnmarshaller(body, binary.BigEndian)
			requestID, err := bu.ReadULong()
			if err != nil {
				continue
			}
			status, err := bu.ReadULong()
			if err != nil {
				continue
			}
			c.deliver(requestID, pendingReply{status: status})

		case giop.MsgCloseConn:
			c.abort(fmt.Errorf("connection to %s closed by peer", c.address))
			return

		case giop.MsgMessageError:
			c.abort(fmt.Errorf("peer at %s reported a malformed GIOP message", c.address))
			return

		default:
			// Requests, cancels, and fragments arriving on a client-initiated
			// connection are protocol errors; drop the connection rather than
			// desynchronize the frame boundary.
			c.abort(fmt.Errorf("unexpected message type %d from %s", header.MsgType, c.address))
			return
		}
	}
}

func (c *Connection) deliver(requestID uint32, reply pendingReply) {
	c.mu.Lock()
	ch, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()

	if ok {
		ch <- reply
	}
}

func (c *Connection) abort(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint32]chan pendingReply)
	c.mu.Unlock()

	atomic.StoreInt32(&c.state, int32(connClosed))

	for _, ch := range pending {
		ch <- pendingReply{err: err}
	}
	c.conn.Close()
}

// Close sends a CloseConnection message and tears down the socket.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.state, int32(connClosing))
	c.writeMu.Lock()
	writeGIOPFrame(c.conn, giop.MsgCloseConn, nil) // best effort
	c.writeMu.Unlock()
	c.abort(fmt.Errorf("connection to %s closed locally", c.address))
	return nil
}

// Invoke sends a GIOP request carrying a dynamically-tagged argument list
// and, unless oneway is true, waits for the matching reply. The returned
// exception, if any, is already a decoded Exception; err carries transport
// and framing failures.
func (c *Connection) Invoke(objectKey []byte, operation string, args []interface{}, oneway bool, timeout time.Duration) (interface{}, Exception, error) {
	if c.isClosed() {
		return nil, nil, COMM_FAILURE(1, CompletionStatusNo)
	}

	requestID := c.nextRequestID()
	requestMsg := giop.NewRequestMessage(requestID, objectKey, operation, !oneway)
	requestHeader := requestMsg.Body.(*giop.RequestHeader)

	body := giop.NewCDRMarshaller(binary.BigEndian)
	body.WriteRequestHeader(requestHeader)
	if err := EncodeArgs(body, args); err != nil {
		return nil, nil, err
	}

	var replyCh chan pendingReply
	if !oneway {
		replyCh = make(chan pendingReply, 1)
		c.mu.Lock()
		if len(c.pending) >= maxPendingRequests {
			c.mu.Unlock()
			return nil, NO_RESOURCES(0, CompletionStatusNo), nil
		}
		c.pending[requestID] = replyCh
		c.mu.Unlock()
	}

	c.writeMu.Lock()
	err := writeGIOPFrame(c.conn, giop.MsgRequest, body.Bytes())
	c.writeMu.Unlock()
	if err != nil {
		if replyCh != nil {
			c.mu.Lock()
			delete(c.pending, requestID)
			c.mu.Unlock()
		}
		return nil, nil, COMM_FAILURE(2, CompletionStatusMaybe)
	}

	if oneway {
		return nil, nil, nil
	}

	if timeout <= 0 {
		timeout = DefaultInvokeTimeout
	}

	select {
	case reply := <-replyCh:
		if reply.err != nil {
			return nil, nil, reply.err
		}
		return decodeReplyBody(reply.status, reply.body)

	case <-time.After(timeout):
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
		return nil, TIMEOUT(0, CompletionStatusMaybe), nil
	}
}

func decodeReplyBody(status uint32, body []byte) (interface{}, Exception, error) {
	switch status {
	case giop.ReplyStatusNoException:
		u := giop.NewCDRUnmarshaller(body, binary.BigEndian)
		results, err := DecodeArgs(u)
		if err != nil {
			return nil, nil, MARSHAL(1, CompletionStatusYes)
		}
		if len(results) == 0 {
			return nil, nil, nil
		}
		if len(results) == 1 {
			return results[0], nil, nil
		}
		return results, nil, nil

	case giop.ReplyStatusUserException, giop.ReplyStatusSystemException:
		ex, err := UnmarshalException(body, nil)
		if err != nil {
			return nil, MARSHAL(2, CompletionStatusYes), nil
		}
		return nil, ex, nil

	case giop.ReplyStatusLocationForward, giop.ReplyStatusLocationForwardPerm:
		return nil, REBIND(0, CompletionStatusNo), nil

	default:
		return nil, UNKNOWN(uint32(status), CompletionStatusNo), nil
	}
}

// ConnectionPool hands out shared Connections keyed by host:port, dialing
// lazily and evicting a connection once it has failed.
type ConnectionPool struct {
	mu    sync.Mutex
	conns map[string]*Connection
}

// NewConnectionPool creates an empty connection pool.
func NewConnectionPool() *ConnectionPool {
	return &ConnectionPool{conns: make(map[string]*Connection)}
}

// Get returns a live connection to host:port, reusing one already open.
func (p *ConnectionPool) Get(host string, port int) (*Connection, error) {
	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	p.mu.Lock()
	if conn, ok := p.conns[address]; ok {
		if !conn.isClosed() {
			p.mu.Unlock()
			return conn, nil
		}
		delete(p.conns, address)
	}
	p.mu.Unlock()

	conn, err := dialConnection(address)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if existing, ok := p.conns[address]; ok && !existing.isClosed() {
		p.mu.Unlock()
		conn.Close()
		return existing, nil
	}
	p.conns[address] = conn
	p.mu.Unlock()

	return conn, nil
}

// Close closes every pooled connection.
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]*Connection)
	p.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// defaultConnectionPool backs ObjectRefs created without an explicit pool,
// e.g. via ParseIOR-based lookups that never saw an *ORB.
var defaultConnectionPool = NewConnectionPool()
