package corba

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSystemExceptionRepositoryID(t *testing.T) {
	ex := OBJECT_NOT_EXIST(7, CompletionStatusNo)
	require.Equal(t, "IDL:omg.org/CORBA/OBJECT_NOT_EXIST:1.0", ex.ID())
	require.Equal(t, "OBJECT_NOT_EXIST", ex.Name())
	require.Equal(t, uint32(7), ex.Minor())
	require.Equal(t, CompletionStatusNo, ex.Completed())
	require.True(t, IsSystemException(ex))
	require.False(t, IsUserException(ex))
}

func TestMarshalUnmarshalSystemException(t *testing.T) {
	ex := MARSHAL(42, CompletionStatusMaybe)

	data, err := MarshalException(ex)
	require.NoError(t, err)

	decoded, err := UnmarshalException(data, nil)
	require.NoError(t, err)
	require.True(t, IsSystemException(decoded))
	require.Equal(t, "MARSHAL", decoded.Name())
	require.Equal(t, uint32(42), decoded.Minor())
	require.Equal(t, CompletionStatusMaybe, decoded.Completed())
}

func TestMarshalUnmarshalUserException(t *testing.T) {
	ex := NewCORBAUserException("AccountOverdrawn", "IDL:Bank/AccountOverdrawn:1.0")
	ex.SetMember("balance", int32(-150))
	ex.SetMember("accountId", "acct-001")

	data, err := MarshalException(ex)
	require.NoError(t, err)

	decoded, err := UnmarshalException(data, nil)
	require.NoError(t, err)
	require.True(t, IsUserException(decoded))
	require.Equal(t, "IDL:Bank/AccountOverdrawn:1.0", decoded.ID())

	userEx := decoded.(*UserException)
	balance, ok := userEx.GetMember("balance")
	require.True(t, ok)
	require.Equal(t, int32(-150), balance)

	acct, ok := userEx.GetMember("accountId")
	require.True(t, ok)
	require.Equal(t, "acct-001", acct)
}

func TestAllStandardExceptionsConstructAndReportCompletion(t *testing.T) {
	constructors := map[string]func(uint32, CompletionStatus) *SystemException{
		"UNKNOWN":                 UNKNOWN,
		"BAD_PARAM":               BAD_PARAM,
		"NO_MEMORY":               NO_MEMORY,
		"IMP_LIMIT":               IMP_LIMIT,
		"COMM_FAILURE":            COMM_FAILURE,
		"INV_OBJREF":              INV_OBJREF,
		"NO_PERMISSION":           NO_PERMISSION,
		"INTERNAL":                INTERNAL,
		"MARSHAL":                 MARSHAL,
		"INITIALIZE":              INITIALIZE,
		"NO_IMPLEMENT":            NO_IMPLEMENT,
		"BAD_TYPECODE":            BAD_TYPECODE,
		"BAD_OPERATION":           BAD_OPERATION,
		"NO_RESOURCES":            NO_RESOURCES,
		"NO_RESPONSE":             NO_RESPONSE,
		"PERSIST_STORE":           PERSIST_STORE,
		"BAD_INV_ORDER":           BAD_INV_ORDER,
		"TRANSIENT":               TRANSIENT,
		"FREE_MEM":                FREE_MEM,
		"INV_IDENT":               INV_IDENT,
		"INV_FLAG":                INV_FLAG,
		"INTF_REPOS":              INTF_REPOS,
		"BAD_CONTEXT":             BAD_CONTEXT,
		"OBJ_ADAPTER":             OBJ_ADAPTER,
		"DATA_CONVERSION":         DATA_CONVERSION,
		"OBJECT_NOT_EXIST":        OBJECT_NOT_EXIST,
		"TRANSACTION_REQUIRED":    TRANSACTION_REQUIRED,
		"TRANSACTION_ROLLEDBACK":  TRANSACTION_ROLLEDBACK,
		"INVALID_TRANSACTION":     INVALID_TRANSACTION,
		"INV_POLICY":              INV_POLICY,
		"CODESET_INCOMPATIBLE":    CODESET_INCOMPATIBLE,
		"REBIND":                  REBIND,
		"TIMEOUT":                 TIMEOUT,
		"TRANSACTION_UNAVAILABLE": TRANSACTION_UNAVAILABLE,
		"TRANSACTION_MODE":        TRANSACTION_MODE,
		"BAD_QOS":                 BAD_QOS,
	}

	require.Len(t, constructors, 35)

	for name, ctor := range constructors {
		ex := ctor(3, CompletionStatusYes)
		require.Equal(t, name, ex.Name(), "constructor for %s produced wrong Name()", name)
		require.Equal(t, "IDL:omg.org/CORBA/"+name+":1.0", ex.ID())
	}
}
