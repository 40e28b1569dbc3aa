// Package corba provides a CORBA implementation in Go
package corba

import (
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/ifabos/go-corba/giop"
)

// Server accepts IIOP connections and dispatches incoming requests through
// the root POA; object keys are looked up in the root POA only, and no other
// POA is consulted.
type Server struct {
	orb      *ORB
	running  bool
	mu       sync.RWMutex
	listener net.Listener
	host     string
	port     int
}

// CreateServer creates a new server bound to the given host and port. The
// server has no listening socket until Run is called.
func (o *ORB) CreateServer(host string, port int) (*Server, error) {
	s := &Server{
		orb:  o,
		host: host,
		port: port,
	}

	o.mu.Lock()
	o.servers = append(o.servers, s)
	o.mu.Unlock()

	return s, nil
}

// RegisterServant activates servant under the root POA with objectName itself
// as its ObjectID. It returns only an error (no object reference): one when
// servant has no Dispatch method or the id is already active. This is the simple, non-POA-aware entry point most small servers use;
// callers that need explicit POA control should activate objects on a POA
// directly instead.
func (s *Server) RegisterServant(objectName string, servant interface{}) error {
	if _, ok := servant.(interface {
		Dispatch(methodName string, args []interface{}) (interface{}, error)
	}); !ok {
		return fmt.Errorf("servant does not implement Dispatch method")
	}

	root := s.orb.GetRootPOA()
	return root.ActivateObjectWithID(ObjectID(objectName), servant)
}

// Bind registers an object with a name for the server (alias for RegisterServant)
func (s *Server) Bind(objectName string, obj interface{}) error {
	return s.RegisterServant(objectName, obj)
}

// Run starts the server, binding the root POA's endpoint to this server's
// listening address before accepting connections.
func (s *Server) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	return s.startIIOPListener()
}

// Shutdown stops the server
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("server is not running")
	}

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			return fmt.Errorf("error closing listener: %w", err)
		}
	}

	s.running = false
	return nil
}

// Stop is an alias for Shutdown
func (s *Server) Stop() error {
	return s.Shutdown()
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// startIIOPListener opens the listening socket, records its address on the
// root POA so CreateReferenceWithId hands out dialable IORs, and begins
// accepting connections in the background.
func (s *Server) startIIOPListener() error {
	var err error
	address := fmt.Sprintf("%s:%d", s.host, s.port)
	s.listener, err = net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	tcpAddr := s.listener.Addr().(*net.TCPAddr)
	boundHost := s.host
	if boundHost == "" || boundHost == "0.0.0.0" {
		boundHost = "localhost"
	}
	s.orb.GetRootPOA().BindEndpoint(boundHost, tcpAddr.Port)

	log.Printf("corba: IIOP server listening on %s", s.listener.Addr())

	go func() {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				s.mu.RLock()
				running := s.running
				s.mu.RUnlock()
				if !running {
					return
				}
				log.Printf("corba: error accepting connection: %v", err)
				continue
			}

			go s.handleConnection(conn)
		}
	}()

	return nil
}

// handleConnection reads GIOP frames off conn until it errors, closes, or
// the peer sends a CloseConnection message.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	for {
		header, body, err := readGIOPFrame(conn)
		if err != nil {
			return
		}

		switch header.MsgType {
		case giop.MsgRequest:
			bu := giop.NewCDRUnmarshaller(body, binary.BigEndian)
			requestHeader, err := bu.ReadRequestHeaderVersion(header.Version[1])
			if err != nil {
				log.Printf("corba: malformed request header: %v", err)
				return
			}
			if err := resolveRequestObjectKey(requestHeader); err != nil {
				log.Printf("corba: unresolvable request target: %v", err)
				if requestHeader.ResponseExpected {
					s.sendExceptionReply(conn, requestHeader.RequestID, OBJECT_NOT_EXIST(1, CompletionStatusNo))
				}
				continue
			}
			args, err := DecodeArgs(bu)
			if err != nil {
				log.Printf("corba: malformed request arguments: %v", err)
				if requestHeader.ResponseExpected {
					s.sendExceptionReply(conn, requestHeader.RequestID, MARSHAL(1, CompletionStatusNo))
				}
				continue
			}
			s.handleGIOPRequest(conn, requestHeader, args)

		case giop.MsgLocateRequest:
			lu := giop.NewCDRUnmarshaller(body, binary.BigEndian)
			requestID, err := lu.ReadULong()
			if err != nil {
				return
			}
			objectKey, err := lu.ReadOctetSequence()
			if err != nil {
				return
			}
			s.handleGIOPLocateRequest(conn, requestID, objectKey)

		case giop.MsgCancelRequest:
			// Requests run to completion on this connection's goroutine
			// before the next frame is read; there is nothing in flight to
			// cancel.

		case giop.MsgCloseConn:
			return

		case giop.MsgMessageError:
			return

		default:
			log.Printf("corba: unsupported GIOP message type %d", header.MsgType)
			writeGIOPFrame(conn, giop.MsgMessageError, nil)
			return
		}
	}
}

// resolveRequestObjectKey fills in requestHeader.ObjectKey for GIOP 1.2
// requests whose TargetAddress arm is not KeyAddr (readRequestHeaderV12
// already does this for the common KeyAddr case). ProfileAddr carries an
// encoded IIOP profile directly; ReferenceAddr carries a full encoded IOR
// plus the index of the profile to use.
func resolveRequestObjectKey(requestHeader *giop.RequestHeader) error {
	if len(requestHeader.ObjectKey) > 0 || requestHeader.Target == nil {
		return nil
	}

	switch requestHeader.Target.Disposition {
	case giop.ProfileAddr:
		profile := requestHeader.Target.Profile
		if profile == nil {
			return fmt.Errorf("corba: ProfileAddr target with no profile data")
		}
		body, err := DecodeIIOPProfile(profile.ProfileData)
		if err != nil {
			return err
		}
		requestHeader.ObjectKey = body.ObjectKey
		return nil
	case giop.ReferenceAddr:
		ref := requestHeader.Target.Reference
		if ref == nil {
			return fmt.Errorf("corba: ReferenceAddr target with no reference data")
		}
		ior, err := DecodeIOR(ref.IOR)
		if err != nil {
			return err
		}
		if int(ref.SelectedProfileIndex) >= len(ior.Profiles) {
			return fmt.Errorf("corba: ReferenceAddr selected_profile_index %d out of range", ref.SelectedProfileIndex)
		}
		body, err := DecodeIIOPProfile(ior.Profiles[ref.SelectedProfileIndex].Profile)
		if err != nil {
			return err
		}
		requestHeader.ObjectKey = body.ObjectKey
		return nil
	default:
		return fmt.Errorf("corba: request with empty object key and KeyAddr target")
	}
}

// resolvePOAAndServant looks objectKey up in the root POA, the only POA this
// server dispatches through, enforcing its POAManager's state.
func (s *Server) resolvePOAAndServant(objectKey []byte) (*POA, interface{}, Exception) {
	poa := s.orb.GetRootPOA()

	if poa.managerState() == POAManagerHolding {
		poa.WaitWhileHolding()
	}

	switch poa.managerState() {
	case POAManagerDiscarding:
		return nil, nil, TRANSIENT(1, CompletionStatusNo)
	case POAManagerInactive:
		return nil, nil, OBJ_ADAPTER(2, CompletionStatusNo)
	}

	servant, err := poa.IDToServant(ObjectID(objectKey))
	if err != nil {
		return poa, nil, OBJECT_NOT_EXIST(1, CompletionStatusNo)
	}
	return poa, servant, nil
}

// handleGIOPRequest resolves the target servant through the POA, runs the
// implicit CORBA::Object operations or dispatches to the servant, and
// replies (unless the request is a oneway call with no response expected).
func (s *Server) handleGIOPRequest(conn net.Conn, request *giop.RequestHeader, args []interface{}) {
	poa, servant, ex := s.resolvePOAAndServant(request.ObjectKey)
	if ex != nil {
		if request.ResponseExpected {
			s.sendExceptionReply(conn, request.RequestID, ex)
		}
		return
	}

	result, handled, ex := s.dispatchImplicitOperation(poa, request.ObjectKey, request.Operation, servant, args)
	if !handled {
		invoker, ok := servant.(interface {
			Dispatch(methodName string, args []interface{}) (interface{}, error)
		})
		if !ok {
			ex = OBJ_ADAPTER(3, CompletionStatusNo)
		} else {
			result, ex = SafeInvoke(func() (interface{}, error) {
				return invoker.Dispatch(request.Operation, args)
			})
		}
	}

	if !request.ResponseExpected {
		return
	}

	if ex != nil {
		s.sendExceptionReply(conn, request.RequestID, ex)
		return
	}

	s.sendSuccessReply(conn, request.RequestID, result)
}

// dispatchImplicitOperation handles the pseudo-operations every CORBA object
// responds to regardless of what its servant implements.
func (s *Server) dispatchImplicitOperation(poa *POA, objectKey []byte, operation string, servant interface{}, args []interface{}) (interface{}, bool, Exception) {
	switch operation {
	case "_is_a":
		if len(args) != 1 {
			return nil, true, BAD_PARAM(5, CompletionStatusNo)
		}
		repoID, ok := args[0].(string)
		if !ok {
			return nil, true, BAD_PARAM(6, CompletionStatusNo)
		}
		actual, ok := servantRepositoryID(servant)
		if !ok {
			return nil, true, OBJ_ADAPTER(5, CompletionStatusNo)
		}
		return actual == repoID, true, nil

	case "_non_existent":
		return false, true, nil

	case "_interface":
		repoID, ok := servantRepositoryID(servant)
		if !ok {
			return nil, true, OBJ_ADAPTER(4, CompletionStatusNo)
		}
		return repoID, true, nil

	case "_get_component":
		return poa.CreateReferenceWithId(objectKey, ""), true, nil

	default:
		return nil, false, nil
	}
}

func servantRepositoryID(servant interface{}) (string, bool) {
	type repositoryIDer interface {
		RepositoryID() string
	}
	if r, ok := servant.(repositoryIDer); ok {
		return r.RepositoryID(), true
	}
	return FormatRepositoryID(fmt.Sprintf("%T", servant), "1.0"), true
}

// handleGIOPLocateRequest processes a GIOP locate request message
func (s *Server) handleGIOPLocateRequest(conn net.Conn, requestID uint32, objectKey []byte) {
	_, _, ex := s.resolvePOAAndServant(objectKey)
	if ex != nil {
		s.sendLocateReply(conn, requestID, giop.LocateStatusUnknownObject)
		return
	}
	s.sendLocateReply(conn, requestID, giop.LocateStatusObjectHere)
}

// sendSuccessReply sends a successful reply carrying the dynamically-tagged
// result value.
func (s *Server) sendSuccessReply(conn net.Conn, requestID uint32, result interface{}) {
	replyHeader := &giop.ReplyHeader{
		ServiceContexts: make(giop.ServiceContextList, 0),
		RequestID:       requestID,
		ReplyStatus:     giop.ReplyStatusNoException,
	}

	body := giop.NewCDRMarshaller(binary.BigEndian)
	body.WriteReplyHeader(replyHeader)

	var results []interface{}
	if result != nil {
		results = []interface{}{result}
	}
	if err := EncodeArgs(body, results); err != nil {
		log.Printf("corba: error encoding reply result: %v", err)
		s.sendExceptionReply(conn, requestID, MARSHAL(2, CompletionStatusYes))
		return
	}

	if err := writeGIOPFrame(conn, giop.MsgReply, body.Bytes()); err != nil {
		log.Printf("corba: error sending success reply: %v", err)
	}
}

// sendLocateReply sends a locate reply
func (s *Server) sendLocateReply(conn net.Conn, requestID uint32, status uint32) {
	body := giop.NewCDRMarshaller(binary.BigEndian)
	body.WriteULong(requestID)
	body.WriteULong(status)

	if err := writeGIOPFrame(conn, giop.MsgLocateReply, body.Bytes()); err != nil {
		log.Printf("corba: error sending locate reply: %v", err)
	}
}

// sendExceptionReply sends an exception reply, marshaling ex with real CDR
// encoding into the reply body (not a service context, per GIOP framing).
func (s *Server) sendExceptionReply(conn net.Conn, requestID uint32, ex Exception) {
	var replyStatus uint32
	if IsSystemException(ex) {
		replyStatus = giop.ReplyStatusSystemException
	} else {
		replyStatus = giop.ReplyStatusUserException
	}

	replyHeader := &giop.ReplyHeader{
		ServiceContexts: make(giop.ServiceContextList, 0),
		RequestID:       requestID,
		ReplyStatus:     replyStatus,
	}

	body := giop.NewCDRMarshaller(binary.BigEndian)
	body.WriteReplyHeader(replyHeader)

	exData, err := MarshalException(ex)
	if err != nil {
		log.Printf("corba: error marshalling exception: %v", err)
		return
	}
	body.WriteRaw(exData)

	if err := writeGIOPFrame(conn, giop.MsgReply, body.Bytes()); err != nil {
		log.Printf("corba: error sending exception reply: %v", err)
	}
}
