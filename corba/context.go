// Package corba provides a CORBA implementation in Go
package corba

import (
	"fmt"
	"sync"
	"time"
)

// Context represents a CORBA context object: a property bag that travels
// with an invocation, consulted by name and falling back to a parent
// context when a property is not set locally.
type Context struct {
	mu         sync.RWMutex
	properties map[string]interface{}
	parent     *Context
}

// NewContext creates a new, empty CORBA context.
func NewContext() *Context {
	return &Context{
		properties: make(map[string]interface{}),
	}
}

// SetParent sets the parent context consulted when a property is missing.
func (c *Context) SetParent(parent *Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parent = parent
}

// GetParent returns the parent context, or nil if there is none.
func (c *Context) GetParent() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.parent
}

// Set adds or updates a property in this context.
func (c *Context) Set(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.properties[name] = value
}

// Get retrieves a property, checking the parent chain if not found locally.
func (c *Context) Get(name string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if val, exists := c.properties[name]; exists {
		return val, true
	}
	if c.parent != nil {
		return c.parent.Get(name)
	}
	return nil, false
}

// GetAll returns the merged properties of this context and its ancestors,
// with this context's values taking precedence.
func (c *Context) GetAll() map[string]interface{} {
	result := make(map[string]interface{})

	if c.parent != nil {
		for k, v := range c.parent.GetAll() {
			result[k] = v
		}
	}

	c.mu.RLock()
	for k, v := range c.properties {
		result[k] = v
	}
	c.mu.RUnlock()

	return result
}

// ObjectRef is a proxy for a remote (or, once bound, local) CORBA object. It
// carries enough of the object's IOR to reconnect and re-invoke even after
// the underlying transport connection drops.
type ObjectRef struct {
	Name       string
	ServerHost string
	ServerPort int

	ior       *IOR
	objectKey []byte
	typeID    string

	pool *ConnectionPool
	orb  *ORB
}

// newObjectRef builds an ObjectRef bound to a connection pool, normally the
// ORB's own pool so connections are shared across every reference it hands out.
func newObjectRef(pool *ConnectionPool, host string, port int, objectKey []byte, typeID string) *ObjectRef {
	if pool == nil {
		pool = defaultConnectionPool
	}
	return &ObjectRef{
		Name:       ObjectKeyToString(objectKey),
		ServerHost: host,
		ServerPort: port,
		objectKey:  objectKey,
		typeID:     typeID,
		pool:       pool,
	}
}

// Invoke calls operation on the referenced object and waits for its reply.
func (ref *ObjectRef) Invoke(operation string, args ...interface{}) (interface{}, error) {
	return ref.invoke(operation, args, false, 0)
}

// InvokeOneway calls operation without waiting for a reply.
func (ref *ObjectRef) InvokeOneway(operation string, args ...interface{}) error {
	_, err := ref.invoke(operation, args, true, 0)
	return err
}

// InvokeTimeout calls operation, bounding how long it waits for a reply.
func (ref *ObjectRef) InvokeTimeout(operation string, timeout time.Duration, args ...interface{}) (interface{}, error) {
	return ref.invoke(operation, args, false, timeout)
}

func (ref *ObjectRef) invoke(operation string, args []interface{}, oneway bool, timeout time.Duration) (interface{}, error) {
	if ref.IsNil() {
		return nil, NewCORBASystemException("OBJECT_NOT_EXIST", 0, CompletionStatusNo)
	}

	if ref.orb != nil && !ref.orb.IsInitialized() {
		return nil, BAD_INV_ORDER(0, CompletionStatusNo)
	}

	pool := ref.pool
	if pool == nil {
		pool = defaultConnectionPool
	}

	conn, err := pool.Get(ref.ServerHost, ref.ServerPort)
	if err != nil {
		return nil, COMM_FAILURE(0, CompletionStatusNo)
	}

	result, ex, err := conn.Invoke(ref.objectKey, operation, args, oneway, timeout)
	if err != nil {
		return nil, err
	}
	if ex != nil {
		return nil, ex
	}
	return result, nil
}

// IsNil reports whether this is a nil object reference.
func (ref *ObjectRef) IsNil() bool {
	return ref == nil || (ref.ServerHost == "" && len(ref.objectKey) == 0)
}

// Equals reports whether two references name the same object.
func (ref *ObjectRef) Equals(other *ObjectRef) bool {
	if ref.IsNil() || other.IsNil() {
		return ref.IsNil() && other.IsNil()
	}

	if ref.ior != nil && other.ior != nil && ref.ior.TypeID != other.ior.TypeID {
		return false
	}

	if len(ref.objectKey) != len(other.objectKey) {
		return false
	}
	for i := range ref.objectKey {
		if ref.objectKey[i] != other.objectKey[i] {
			return false
		}
	}
	return ref.ServerHost == other.ServerHost && ref.ServerPort == other.ServerPort
}

// IsEquivalent is the CORBA::Object name for Equals; the two references are
// considered the same object if their object keys and endpoints agree.
func (ref *ObjectRef) IsEquivalent(other *ObjectRef) bool {
	return ref.Equals(other)
}

// IsA implements CORBA::Object::is_a. It returns true without a round trip
// when repoId equals the reference's own type ID; otherwise it sends the
// implicit "_is_a" pseudo-operation to the remote object and returns its
// answer (false if the call fails).
func (ref *ObjectRef) IsA(repoId string) bool {
	if ref.IsNil() {
		return false
	}
	if ref.GetTypeID() == repoId {
		return true
	}
	result, err := ref.Invoke("_is_a", repoId)
	if err != nil {
		return false
	}
	b, ok := result.(bool)
	return ok && b
}

// NonExistent implements CORBA::Object::non_existent: true if the remote
// object can be determined not to exist without raising an exception.
func (ref *ObjectRef) NonExistent() bool {
	if ref.IsNil() {
		return true
	}
	result, err := ref.Invoke("_non_existent")
	if err != nil {
		// A COMM_FAILURE or similar transport error doesn't prove
		// non-existence; only a definite false/true answer does.
		return IsSystemException(err) && err.(Exception).Name() == "OBJECT_NOT_EXIST"
	}
	b, ok := result.(bool)
	return ok && b
}

// Hash implements CORBA::Object::hash: a hash value in [0, maximum) derived
// from the object key and the server host, stable across calls for the same
// reference.
func (ref *ObjectRef) Hash(maximum uint32) uint32 {
	if maximum == 0 {
		return 0
	}
	var h uint32 = 2166136261 // FNV-1a offset basis
	for _, b := range ref.objectKey {
		h ^= uint32(b)
		h *= 16777619
	}
	for i := 0; i < len(ref.ServerHost); i++ {
		h ^= uint32(ref.ServerHost[i])
		h *= 16777619
	}
	return h % maximum
}

// GetIOR returns the IOR backing this reference, building one on demand.
func (ref *ObjectRef) GetIOR() *IOR {
	if ref.ior == nil {
		ior := NewIOR(ref.typeID)
		ior.AddIIOPProfile(IIOP_1_2, ref.ServerHost, uint16(ref.ServerPort), ref.objectKey)
		ref.ior = ior
	}
	return ref.ior
}

// SetIOR replaces the IOR backing this reference and refreshes the derived
// host/port/object-key fields from its primary IIOP profile.
func (ref *ObjectRef) SetIOR(ior *IOR) error {
	if ior == nil {
		return fmt.Errorf("cannot set nil IOR")
	}

	profile, err := ior.GetPrimaryIIOPProfile()
	if err != nil {
		return err
	}

	ref.ior = ior
	ref.typeID = ior.TypeID
	ref.ServerHost = profile.Host
	ref.ServerPort = int(profile.Port)
	ref.objectKey = profile.ObjectKey
	ref.Name = ObjectKeyToString(profile.ObjectKey)
	return nil
}

// GetTypeID returns the object's repository ID.
func (ref *ObjectRef) GetTypeID() string {
	if ref.ior != nil {
		return ref.ior.TypeID
	}
	return ref.typeID
}

// SetTypeID sets the object's repository ID.
func (ref *ObjectRef) SetTypeID(typeID string) {
	ref.typeID = typeID
	if ref.ior != nil {
		ref.ior.TypeID = typeID
	}
}

// ToString returns the stringified IOR ("IOR:...") for this reference.
func (ref *ObjectRef) ToString() (string, error) {
	return ref.GetIOR().ToString(), nil
}
