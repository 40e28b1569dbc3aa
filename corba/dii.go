// Package corba provides a CORBA implementation in Go
package corba

import (
	"errors"
)

// Common DII errors
var (
	ErrInvalidArgument      = errors.New("invalid argument type")
	ErrInvalidOperation     = errors.New("invalid operation")
	ErrNoResponse           = errors.New("no response received")
	ErrOperationNotComplete = errors.New("operation not complete")
)

// NamedValue represents a named parameter in a DII request
type NamedValue struct {
	Name     string
	Value    interface{}
	Flags    int      // For parameter direction (in, out, inout)
	TypeCode TypeCode // Declared type of Value; recorded only, Invoke encodes Value by its Go type
}

// Parameter flags
const (
	FlagIn       = 1 // Input parameter
	FlagOut      = 2 // Output parameter
	FlagInOut    = 3 // Input/Output parameter
	FlagDeferred = 4 // Deferred (asynchronous) invocation
)

// Request represents a dynamic invocation request
type Request struct {
	Target           *ObjectRef     // The target object reference
	Operation        string         // The operation name to invoke
	Parameters       []*NamedValue  // The parameters for the operation
	Result           *NamedValue    // To store the result
	Exception        error          // To store any exceptions
	Context          *Context       // Context for the request
	Status           int            // Status of the request
	ResponseReceived bool           // Whether a response has been received
	Flags            int            // Request flags
	Environment      interface{}    // Environment for the request
	ServerRequest    *ServerRequest // For DSI integration
	ReturnTypeCode   TypeCode       // Declared type of the result; recorded only, not used to decode it

	deferred chan error // set by SendDeferred, drained by PollResponse/GetResponse
}

// Request status
const (
	StatusInit       = 0
	StatusInProgress = 1
	StatusCompleted  = 2
	StatusError      = 3
)

// NewRequest creates a new request for the specified operation on the target
func NewRequest(target *ObjectRef, operation string) *Request {
	return &Request{
		Target:     target,
		Operation:  operation,
		Parameters: make([]*NamedValue, 0),
		Result: &NamedValue{
			Name:  "result",
			Value: nil,
			Flags: FlagOut,
		},
		Context:          NewContext(),
		Status:           StatusInit,
		ResponseReceived: false,
		Flags:            0,
	}
}

// AddParameter adds a parameter to the request
func (r *Request) AddParameter(name string, value interface{}, flag int) error {
	// Validate flag
	if flag != FlagIn && flag != FlagOut && flag != FlagInOut {
		return ErrInvalidArgument
	}

	param := &NamedValue{
		Name:  name,
		Value: value,
		Flags: flag,
	}

	r.Parameters = append(r.Parameters, param)
	return nil
}

// AddParameterWithTypeCode adds a parameter and records tc in its TypeCode
// field. Invoke and SendOneway do not consult that TypeCode: every argument
// is encoded from its Go value, exactly as for AddParameter.
func (r *Request) AddParameterWithTypeCode(name string, value interface{}, flag int, tc TypeCode) error {
	if flag != FlagIn && flag != FlagOut && flag != FlagInOut {
		return ErrInvalidArgument
	}

	r.Parameters = append(r.Parameters, &NamedValue{
		Name:     name,
		Value:    value,
		Flags:    flag,
		TypeCode: tc,
	})
	return nil
}

// SetReturnTypeCode records the TypeCode of the operation's result in
// ReturnTypeCode. Invoke does not consult it: the result is decoded from the
// type tags carried in the reply itself.
func (r *Request) SetReturnTypeCode(tc TypeCode) {
	r.ReturnTypeCode = tc
}

// SetResult sets the result value of the request
func (r *Request) SetResult(value interface{}) {
	r.Result.Value = value
}

// GetResult returns the result value of the request
func (r *Request) GetResult() interface{} {
	return r.Result.Value
}

// Invoke sends the request and waits for a response
func (r *Request) Invoke() error {
	// Check if the target is valid
	if r.Target == nil || r.Target.IsNil() {
		return NewCORBASystemException("OBJECT_NOT_EXIST", 0, CompletionStatusNo)
	}

	// Set the request status to in progress
	r.Status = StatusInProgress

	// Extract parameter values for the invocation
	args := make([]interface{}, len(r.Parameters))
	for i, param := range r.Parameters {
		args[i] = param.Value
	}

	// Call the target object reference's Invoke method
	result, err := r.Target.Invoke(r.Operation, args...)
	if err != nil {
		r.Status = StatusError
		r.Exception = err
		return err
	}

	// Store the result
	r.Result.Value = result
	r.ResponseReceived = true
	r.Status = StatusCompleted
	return nil
}

// SendOneway sends the request without waiting for any reply, per
// CORBA::Request::send_oneway. It never populates Result or raises a remote
// exception; only a failure to transmit the request at all is reported.
func (r *Request) SendOneway() error {
	if r.Target == nil || r.Target.IsNil() {
		return NewCORBASystemException("OBJECT_NOT_EXIST", 0, CompletionStatusNo)
	}

	r.Status = StatusInProgress

	args := make([]interface{}, len(r.Parameters))
	for i, param := range r.Parameters {
		args[i] = param.Value
	}

	if err := r.Target.InvokeOneway(r.Operation, args...); err != nil {
		r.Status = StatusError
		r.Exception = err
		return err
	}

	r.Status = StatusCompleted
	return nil
}

// SendDeferred sends the request on its own goroutine and returns
// immediately; PollResponse/GetResponse observe its eventual completion.
func (r *Request) SendDeferred() error {
	if r.Target == nil || r.Target.IsNil() {
		return NewCORBASystemException("OBJECT_NOT_EXIST", 0, CompletionStatusNo)
	}

	r.Flags |= FlagDeferred
	r.Status = StatusInProgress
	r.deferred = make(chan error, 1)

	go func() {
		r.deferred <- r.Invoke()
	}()

	return nil
}

// PollResponse reports whether a deferred response has arrived without
// blocking the caller.
func (r *Request) PollResponse() bool {
	if r.deferred == nil {
		return r.Status == StatusCompleted
	}

	select {
	case err := <-r.deferred:
		// Invoke already updated Status/Result/Exception; just surface the
		// fact that it is done. Re-send on the channel so a later
		// PollResponse/GetResponse also observes completion.
		r.deferred <- err
		return true
	default:
		return r.Status == StatusCompleted || r.Status == StatusError
	}
}

// GetResponse blocks until a deferred request completes and returns its
// result, or ErrNoResponse if the request was never sent.
func (r *Request) GetResponse() (interface{}, error) {
	if r.deferred != nil {
		if err := <-r.deferred; err != nil {
			return nil, err
		}
		return r.Result.Value, nil
	}

	if !r.ResponseReceived {
		return nil, ErrNoResponse
	}
	if r.Status != StatusCompleted {
		return nil, ErrOperationNotComplete
	}
	return r.Result.Value, nil
}

// RequestProcessor handles DII requests
type RequestProcessor struct {
	orb *ORB
}

// NewRequestProcessor creates a new DII request processor
func NewRequestProcessor(orb *ORB) *RequestProcessor {
	return &RequestProcessor{orb: orb}
}

// CreateRequest creates a new request on the specified object reference
func (rp *RequestProcessor) CreateRequest(
	target *ObjectRef,
	operation string,
	params []*NamedValue,
	result *NamedValue,
	exceptions []string,
	ctx *Context) *Request {

	req := NewRequest(target, operation)

	// Copy parameters
	if params != nil {
		req.Parameters = params
	}

	// Set result if provided
	if result != nil {
		req.Result = result
	}

	// Set context if provided
	if ctx != nil {
		req.Context = ctx
	}

	return req
}

// ToServerRequest converts a DII Request to a DSI ServerRequest for server-side processing
func (r *Request) ToServerRequest() *ServerRequest {
	if r.ServerRequest != nil {
		return r.ServerRequest
	}

	// Create new server request
	sr := NewServerRequest(r.Operation, "", 0) // ObjectKey and RequestID would be set by actual implementation

	// Copy arguments from parameters
	for _, param := range r.Parameters {
		if param.Flags == FlagIn || param.Flags == FlagInOut {
			sr.AddArgument(param.Value)
		}
	}

	// Copy context
	sr.Context = r.Context

	// Store reference to server request
	r.ServerRequest = sr

	return sr
}

// UpdateFromServerRequest updates the request with information from a server request
func (r *Request) UpdateFromServerRequest(sr *ServerRequest) {
	// Copy result
	r.SetResult(sr.Result)

	// Copy exception
	r.Exception = sr.Exception

	// Update status
	if sr.Exception != nil {
		r.Status = StatusError
	} else {
		r.Status = StatusCompleted
	}

	r.ResponseReceived = true
}

// InvokeServerRequest processes a server request using a dynamic implementation
func InvokeServerRequest(servant DynamicImplementation, request *ServerRequest) error {
	// Pass the request to the dynamic implementation for processing
	return servant.Invoke(request)
}
