package corba

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBindNewContextActivatesAddressableServant(t *testing.T) {
	orb := Init()
	ns := NewNamingServiceServant(orb)

	result, err := ns.Dispatch("bind_new_context", []interface{}{"sub"})
	require.NoError(t, err)
	ref, ok := result.(*ObjectRef)
	require.True(t, ok)

	servant, err := orb.GetRootPOA().IDToServant(ObjectID(ref.objectKey))
	require.NoError(t, err)
	nested, ok := servant.(*NamingContext)
	require.True(t, ok)
	require.NoError(t, nested.Bind(Name{{ID: "leaf"}}, "value"))

	resolved, err := ns.Dispatch("resolve", []interface{}{"sub"})
	require.NoError(t, err)
	resolvedRef, ok := resolved.(*ObjectRef)
	require.True(t, ok)
	require.Equal(t, ref.objectKey, resolvedRef.objectKey)
}

func TestBindContextAcceptsActivatedContextReference(t *testing.T) {
	orb := Init()
	ns := NewNamingServiceServant(orb)

	result, err := ns.Dispatch("new_context", nil)
	require.NoError(t, err)
	ref, ok := result.(*ObjectRef)
	require.True(t, ok)

	_, err = ns.Dispatch("bind_context", []interface{}{"mounted", ref})
	require.NoError(t, err)

	resolved, err := ns.Dispatch("resolve", []interface{}{"mounted"})
	require.NoError(t, err)
	resolvedRef, ok := resolved.(*ObjectRef)
	require.True(t, ok)
	require.Equal(t, ref.objectKey, resolvedRef.objectKey)
}

func TestDispatchUnknownOperationIsSystemException(t *testing.T) {
	orb := Init()
	ns := NewNamingServiceServant(orb)

	_, err := ns.Dispatch("frobnicate", nil)
	require.Error(t, err)
	require.True(t, IsSystemException(err))
	require.Equal(t, "OBJ_ADAPTER", err.(Exception).Name())
}

func TestDispatchMissingArgumentsIsBadParam(t *testing.T) {
	orb := Init()
	ns := NewNamingServiceServant(orb)

	_, err := ns.Dispatch("bind", []interface{}{"onlyonearg"})
	require.Error(t, err)
	require.True(t, IsSystemException(err))
	require.Equal(t, "BAD_PARAM", err.(Exception).Name())
}
