// Package corba provides a CORBA implementation in Go. This file dispatches
// incoming invocations to the Naming Service's binding tree.
package corba

import (
	"strings"
)

// NamingContextRepositoryID is the CORBA repository ID every activated
// NamingContext servant (root or nested) answers to.
const NamingContextRepositoryID = "IDL:omg.org/CosNaming/NamingContext:1.0"

// NamingServiceServant is a CORBA servant that implements the Naming Service
type NamingServiceServant struct {
	rootContext *NamingContext
}

// NewNamingServiceServant creates a new naming service servant
func NewNamingServiceServant(orb *ORB) *NamingServiceServant {
	return &NamingServiceServant{
		rootContext: NewNamingContext(orb, "NameService"),
	}
}

// GetRootContext returns the root naming context
func (ns *NamingServiceServant) GetRootContext() *NamingContext {
	return ns.rootContext
}

// Dispatch handles incoming CORBA method calls to the naming service
func (ns *NamingServiceServant) Dispatch(methodName string, args []interface{}) (interface{}, error) {
	return dispatchNamingOperation(ns.rootContext, methodName, args)
}

// Dispatch lets a nested NamingContext be activated as its own servant, so
// an ObjectRef returned from new_context/bind_new_context is a real,
// independently addressable CosNaming::NamingContext rather than a bare Go
// value that could never survive a trip over the wire.
func (nc *NamingContext) Dispatch(methodName string, args []interface{}) (interface{}, error) {
	return dispatchNamingOperation(nc, methodName, args)
}

// dispatchNamingOperation implements the CosNaming::NamingContext operations
// against ctx, shared by the root servant and every nested context activated
// through new_context/bind_new_context.
func dispatchNamingOperation(ctx *NamingContext, methodName string, args []interface{}) (interface{}, error) {
	switch methodName {
	case "bind":
		if len(args) < 2 {
			return nil, BAD_PARAM(10, CompletionStatusNo)
		}

		name, err := parseCorbaName(args[0])
		if err != nil {
			return nil, err
		}

		obj := args[1]
		return nil, ctx.Bind(name, obj)

	case "rebind":
		if len(args) < 2 {
			return nil, BAD_PARAM(11, CompletionStatusNo)
		}

		name, err := parseCorbaName(args[0])
		if err != nil {
			return nil, err
		}

		obj := args[1]
		return nil, ctx.Rebind(name, obj)

	case "bind_context":
		if len(args) < 2 {
			return nil, BAD_PARAM(12, CompletionStatusNo)
		}

		name, err := parseCorbaName(args[0])
		if err != nil {
			return nil, err
		}

		if _, ok := resolveLocalNamingContext(ctx, args[1]); !ok {
			if _, ok := args[1].(*ObjectRef); !ok {
				return nil, ErrInvalidContext
			}
		}

		return nil, ctx.BindContext(name, args[1])

	case "rebind_context":
		if len(args) < 2 {
			return nil, BAD_PARAM(13, CompletionStatusNo)
		}

		name, err := parseCorbaName(args[0])
		if err != nil {
			return nil, err
		}

		if _, ok := resolveLocalNamingContext(ctx, args[1]); !ok {
			if _, ok := args[1].(*ObjectRef); !ok {
				return nil, ErrInvalidContext
			}
		}

		return nil, ctx.RebindContext(name, args[1])

	case "resolve":
		if len(args) < 1 {
			return nil, BAD_PARAM(14, CompletionStatusNo)
		}

		name, err := parseCorbaName(args[0])
		if err != nil {
			return nil, err
		}

		return ctx.Resolve(name)

	case "unbind":
		if len(args) < 1 {
			return nil, BAD_PARAM(15, CompletionStatusNo)
		}

		name, err := parseCorbaName(args[0])
		if err != nil {
			return nil, err
		}

		return nil, ctx.Unbind(name)

	case "list":
		return ctx.List(), nil

	case "new_context":
		// A context not yet bound to the naming tree, but already a real
		// CORBA object: activated under the root POA so the ObjectRef
		// returned to the caller can be invoked remotely.
		return activateNestedContext(ctx, "temp")

	case "bind_new_context":
		if len(args) < 1 {
			return nil, BAD_PARAM(16, CompletionStatusNo)
		}

		name, err := parseCorbaName(args[0])
		if err != nil {
			return nil, err
		}

		ref, err := activateNestedContext(ctx, "nc_"+name.String())
		if err != nil {
			return nil, err
		}

		if err := ctx.BindContext(name, ref); err != nil {
			return nil, err
		}

		return ref, nil

	default:
		return nil, OBJ_ADAPTER(6, CompletionStatusNo)
	}
}

// activateNestedContext creates a new NamingContext, activates it as its own
// servant under ctx's owning ORB's root POA, and returns an ObjectRef for it.
func activateNestedContext(ctx *NamingContext, id string) (*ObjectRef, error) {
	if ctx.orb == nil {
		return nil, OBJ_ADAPTER(7, CompletionStatusNo)
	}

	nested := NewNamingContext(ctx.orb, id)
	poa := ctx.orb.GetRootPOA()
	objectID, err := poa.ActivateObject(nested)
	if err != nil {
		return nil, err
	}

	return poa.CreateReferenceWithId([]byte(objectID), NamingContextRepositoryID), nil
}

// parseCorbaName parses a CORBA name from a string or interface{} representation
func parseCorbaName(nameArg interface{}) (Name, error) {
	switch n := nameArg.(type) {
	case Name:
		return n, nil
	case string:
		return parseStringName(n)
	case []interface{}:
		// Assume array of name components
		result := make(Name, 0, len(n))
		for _, comp := range n {
			m, ok := comp.(map[string]string)
			if !ok {
				return nil, ErrInvalidNameFormat
			}

			id, ok := m["id"]
			if !ok {
				return nil, ErrInvalidNameFormat
			}

			kind := m["kind"] // kind is optional

			result = append(result, NameComponent{ID: id, Kind: kind})
		}
		return result, nil
	default:
		return nil, ErrInvalidNameFormat
	}
}

// parseStringName parses a string into a CORBA Name
// Format: "id1.kind1/id2.kind2/id3.kind3"
// Kind is optional: "id1/id2/id3"
func parseStringName(s string) (Name, error) {
	if s == "" {
		return nil, ErrInvalidNameFormat
	}

	components := strings.Split(s, "/")
	result := make(Name, 0, len(components))

	for _, comp := range components {
		if comp == "" {
			continue // Skip empty components
		}

		parts := strings.SplitN(comp, ".", 2)
		id := parts[0]

		var kind string
		if len(parts) > 1 {
			kind = parts[1]
		}

		result = append(result, NameComponent{ID: id, Kind: kind})
	}

	if len(result) == 0 {
		return nil, ErrInvalidNameFormat
	}

	return result, nil
}
