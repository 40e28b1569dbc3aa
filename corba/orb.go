// Package corba provides CORBA functionality for Go
package corba

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ifabos/go-corba/giop"
)

// shutdownWaitCap bounds how long Shutdown(true) blocks for pending
// invocations to drain before giving up and tearing down anyway.
const shutdownWaitCap = 30 * time.Second

// ORB represents the Object Request Broker which enables communication
// between objects in a distributed environment
type ORB struct {
	mu                sync.RWMutex
	isInitialized     bool
	defaultContext    *Context
	connections       *ConnectionPool
	rootPOA           *POA
	poaManagers       []*POAManager
	initialReferences map[string]*ObjectRef
	namingService     *NamingServiceServant
	servers           []*Server

	pending    int64 // in-flight invocations started through orb.invoke, atomic
	shutdownCh chan struct{}
}

// Constants for well-known CORBA service names
const (
	NamingServiceName = "NameService"
	RootPOAName       = "RootPOA"
)

// Init initializes and returns a new ORB instance, the entry point the rest
// of this package's types are reached through.
func Init() *ORB {
	return &ORB{
		isInitialized:     true,
		defaultContext:    NewContext(),
		connections:       NewConnectionPool(),
		initialReferences: make(map[string]*ObjectRef),
		shutdownCh:        make(chan struct{}),
	}
}

// Shutdown terminates the ORB. Once it returns, new invocations through any
// ObjectRef bound to this ORB fail with BAD_INV_ORDER, every Server created
// via CreateServer has had its listener closed, and run() has returned. If
// wait is true, Shutdown first blocks until every invocation started through
// Invoke/InvokeWithEncoded has completed, bounded by shutdownWaitCap; pending
// outbound requests still in flight when the cap expires are aborted along
// with the connection pool.
func (orb *ORB) Shutdown(wait bool) {
	orb.mu.Lock()
	if !orb.isInitialized {
		orb.mu.Unlock()
		return
	}
	orb.isInitialized = false
	pool := orb.connections
	servers := orb.servers
	close(orb.shutdownCh)
	orb.mu.Unlock()

	if wait {
		deadline := time.Now().Add(shutdownWaitCap)
		for atomic.LoadInt64(&orb.pending) > 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
	}

	for _, s := range servers {
		s.Shutdown()
	}

	if pool != nil {
		pool.Close()
	}
}

// run blocks until Shutdown is called on this ORB, mirroring CORBA's
// ORB::run(). Servers accept connections on their own goroutines regardless
// of whether run is ever called; it exists for callers that structure their
// main loop around it.
func (orb *ORB) run() {
	orb.mu.RLock()
	ch := orb.shutdownCh
	orb.mu.RUnlock()
	<-ch
}

// Run blocks the calling goroutine until Shutdown is called.
func (orb *ORB) Run() {
	orb.run()
}

// invoke performs a two-way invocation of op on target with args, tracking it
// against this ORB's in-flight count so Shutdown(true) can wait for it.
func (orb *ORB) invoke(target *ObjectRef, op string, args []interface{}) (interface{}, error) {
	if !orb.IsInitialized() {
		return nil, BAD_INV_ORDER(1, CompletionStatusNo)
	}

	atomic.AddInt64(&orb.pending, 1)
	defer atomic.AddInt64(&orb.pending, -1)

	return target.Invoke(op, args...)
}

// Invoke is the exported form of invoke: it performs a two-way call of op on
// target, counted against this ORB's pending-shutdown tracking.
func (orb *ORB) Invoke(target *ObjectRef, op string, args ...interface{}) (interface{}, error) {
	return orb.invoke(target, op, args)
}

// InvokeWithEncoded performs a two-way call of op on target using an
// already-CDR-encoded argument list (as produced by EncodeArgs), decoding the
// reply according to returnTC when one is supplied. It is the entry point
// DSI-style callers use when they have raw wire bytes rather than a Go
// argument list in hand.
func (orb *ORB) InvokeWithEncoded(target *ObjectRef, op string, encodedArgs []byte, returnTC TypeCode) (interface{}, error) {
	u := giop.NewCDRUnmarshaller(encodedArgs, binary.BigEndian)
	args, err := DecodeArgs(u)
	if err != nil {
		return nil, MARSHAL(3, CompletionStatusNo)
	}

	result, err := orb.invoke(target, op, args)
	if err != nil {
		return nil, err
	}

	if returnTC == nil || result == nil {
		return result, nil
	}
	return CORBAToGo(result, returnTC)
}

// IsInitialized returns whether the ORB is initialized
func (orb *ORB) IsInitialized() bool {
	orb.mu.RLock()
	defer orb.mu.RUnlock()
	return orb.isInitialized
}

// GetDefaultContext returns the default context for the ORB
func (orb *ORB) GetDefaultContext() *Context {
	return orb.defaultContext
}

// RegisterInitialReference binds a name (e.g. "NameService") to an object
// reference resolvable via resolve_initial_references.
func (orb *ORB) RegisterInitialReference(name string, ref *ObjectRef) error {
	orb.mu.Lock()
	defer orb.mu.Unlock()

	if _, exists := orb.initialReferences[name]; exists {
		return BAD_PARAM(2, CompletionStatusNo)
	}
	orb.initialReferences[name] = ref
	return nil
}

// ResolveInitialReferences looks up a name bound with RegisterInitialReference.
func (orb *ORB) ResolveInitialReferences(name string) (*ObjectRef, error) {
	orb.mu.RLock()
	defer orb.mu.RUnlock()

	ref, exists := orb.initialReferences[name]
	if !exists {
		return nil, INV_OBJREF(0, CompletionStatusNo)
	}
	return ref, nil
}

// ObjectToReference activates obj under the root POA (if it is not already
// an ObjectRef) and returns a reference to it.
func (orb *ORB) ObjectToReference(obj interface{}) (*ObjectRef, error) {
	if ref, ok := obj.(*ObjectRef); ok {
		return ref, nil
	}

	root := orb.GetRootPOA()
	oid, err := root.ActivateObject(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to activate object: %w", err)
	}

	repoID := FormatRepositoryID(fmt.Sprintf("%T", obj), "1.0")
	return root.CreateReferenceWithId([]byte(oid), repoID), nil
}

// StringToObject converts a stringified object reference (IOR, or a
// corbaloc/corbaname URL) to an ObjectRef.
func (orb *ORB) StringToObject(str string) (*ObjectRef, error) {
	var ior *IOR
	var name Name

	switch {
	case strings.HasPrefix(str, "corbaloc:"):
		var err error
		ior, err = ParseCorbaloc(str)
		if err != nil {
			return nil, err
		}

	case strings.HasPrefix(str, "corbaname:"):
		var err error
		ior, name, err = ParseCorbaname(str)
		if err != nil {
			return nil, err
		}

	default:
		var err error
		ior, err = ParseIOR(str)
		if err != nil {
			return nil, fmt.Errorf("failed to parse IOR string: %w", err)
		}
	}

	profile, err := ior.GetPrimaryIIOPProfile()
	if err != nil {
		return nil, fmt.Errorf("failed to extract IIOP profile: %w", err)
	}

	ref := newObjectRef(orb.connections, profile.Host, int(profile.Port), profile.ObjectKey, ior.TypeID)
	ref.ior = ior

	if len(name) == 0 {
		return ref, nil
	}

	resolved, err := ref.Invoke("resolve", name.String())
	if err != nil {
		return nil, fmt.Errorf("corbaname: resolve failed: %w", err)
	}
	resolvedRef, ok := resolved.(*ObjectRef)
	if !ok {
		return nil, fmt.Errorf("corbaname: resolve did not return an object reference")
	}
	return resolvedRef, nil
}

// ObjectToString converts an ObjectRef to a stringified object reference (IOR)
func (orb *ORB) ObjectToString(objRef *ObjectRef) (string, error) {
	if objRef == nil {
		return "", fmt.Errorf("cannot convert nil object reference to string")
	}
	return objRef.ToString()
}

// ActivateNamingService creates the naming service root context, activates
// it under the root POA, and registers it as the "NameService" initial
// reference.
func (orb *ORB) ActivateNamingService() (*NamingServiceServant, error) {
	orb.mu.Lock()
	if orb.namingService != nil {
		orb.mu.Unlock()
		return nil, fmt.Errorf("naming service is already active")
	}
	orb.mu.Unlock()

	servant := NewNamingServiceServant(orb)

	root := orb.GetRootPOA()
	oid := ObjectID("NameService")
	if err := root.ActivateObjectWithID(oid, servant); err != nil {
		return nil, fmt.Errorf("failed to activate naming service: %w", err)
	}

	ref := root.CreateReferenceWithId([]byte(oid), "IDL:omg.org/CosNaming/NamingContext:1.0")
	if err := orb.RegisterInitialReference(NamingServiceName, ref); err != nil {
		return nil, err
	}

	orb.mu.Lock()
	orb.namingService = servant
	orb.mu.Unlock()

	return servant, nil
}

// GetNamingService returns the local naming service instance, if active.
func (orb *ORB) GetNamingService() (*NamingServiceServant, error) {
	orb.mu.RLock()
	defer orb.mu.RUnlock()

	if orb.namingService == nil {
		return nil, fmt.Errorf("naming service is not active")
	}
	return orb.namingService, nil
}

// ResolveNameService connects to a naming service running on host:port.
func (orb *ORB) ResolveNameService(host string, port int) (*NamingServiceClient, error) {
	return ConnectToNameService(orb, host, port)
}

// GetRootPOA returns the root POA, creating it if it doesn't exist
func (orb *ORB) GetRootPOA() *POA {
	orb.mu.Lock()
	defer orb.mu.Unlock()

	if orb.rootPOA == nil {
		orb.rootPOA = orb.NewRootPOA()
	}
	return orb.rootPOA
}

// GetPOA retrieves a POA by its name path, separated by "/"
func (orb *ORB) GetPOA(poaNamePath string) (*POA, error) {
	if poaNamePath == "" || poaNamePath == RootPOAName {
		return orb.GetRootPOA(), nil
	}

	root := orb.GetRootPOA()
	segments := parseNamePath(poaNamePath)
	current := root

	for i, segment := range segments {
		if i == 0 && segment == RootPOAName {
			continue
		}

		child, err := current.FindPOA(segment, true)
		if err != nil {
			return nil, fmt.Errorf("POA not found at segment '%s' of path '%s': %w",
				segment, poaNamePath, err)
		}
		current = child
	}

	return current, nil
}

func parseNamePath(path string) []string {
	parts := make([]string, 0)
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// GetPOAManager returns the POA manager with the given index
func (orb *ORB) GetPOAManager(index int) (*POAManager, error) {
	orb.mu.RLock()
	defer orb.mu.RUnlock()

	if index < 0 || index >= len(orb.poaManagers) {
		return nil, fmt.Errorf("invalid POA manager index: %d", index)
	}
	return orb.poaManagers[index], nil
}

// CreatePOAManager creates a new POA manager
func (orb *ORB) CreatePOAManager() *POAManager {
	return orb.NewPOAManager()
}
