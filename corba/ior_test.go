package corba

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIORNilHasNoProfiles(t *testing.T) {
	ior := NewIOR("IDL:Test/Echo:1.0")
	require.True(t, ior.IsNil())

	ior.AddIIOPProfile(IIOPVersion{Major: 1, Minor: 2}, "localhost", 12345, []byte("key"))
	require.False(t, ior.IsNil())
}

func TestIORStringifyParseRoundTrip(t *testing.T) {
	ior := NewIOR("IDL:Test/Echo:1.0")
	ior.AddIIOPProfile(IIOPVersion{Major: 1, Minor: 2}, "localhost", 12345, []byte("the-object-key"))

	s := ior.ToString()
	require.Regexp(t, "^IOR:[0-9a-f]+$", s)

	parsed, err := ParseIOR(s)
	require.NoError(t, err)
	require.Equal(t, ior.TypeID, parsed.TypeID)

	profile, err := parsed.GetPrimaryIIOPProfile()
	require.NoError(t, err)
	require.Equal(t, "localhost", profile.Host)
	require.Equal(t, uint16(12345), profile.Port)
	require.Equal(t, []byte("the-object-key"), profile.ObjectKey)

	require.Equal(t, s, parsed.ToString())
}

func TestIORStringifyIsLowerCaseHex(t *testing.T) {
	ior := NewIOR("IDL:Test/Echo:1.0")
	ior.AddIIOPProfile(IIOPVersion{Major: 1, Minor: 2}, "host", 1, []byte{0xAB, 0xCD})

	s := ior.ToString()
	require.Equal(t, s, toLowerASCII(s))
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func TestIOREmptyObjectKeyRoundTrip(t *testing.T) {
	ior := NewIOR("IDL:Test/Echo:1.0")
	ior.AddIIOPProfile(IIOPVersion{Major: 1, Minor: 2}, "localhost", 1, []byte{})

	parsed, err := ParseIOR(ior.ToString())
	require.NoError(t, err)

	profile, err := parsed.GetPrimaryIIOPProfile()
	require.NoError(t, err)
	require.Empty(t, profile.ObjectKey)
}

func TestIORLargeObjectKeyRoundTrip(t *testing.T) {
	key := make([]byte, 10000)
	for i := range key {
		key[i] = byte(i % 256)
	}

	ior := NewIOR("IDL:Test/Echo:1.0")
	ior.AddIIOPProfile(IIOPVersion{Major: 1, Minor: 2}, "localhost", 1, key)

	parsed, err := ParseIOR(ior.ToString())
	require.NoError(t, err)

	profile, err := parsed.GetPrimaryIIOPProfile()
	require.NoError(t, err)
	require.Equal(t, key, profile.ObjectKey)
}

func TestParseCorbaloc(t *testing.T) {
	ior, err := ParseCorbaloc("corbaloc:iiop:localhost:9999/MyObject")
	require.NoError(t, err)
	require.False(t, ior.IsNil())

	profile, err := ior.GetPrimaryIIOPProfile()
	require.NoError(t, err)
	require.Equal(t, "localhost", profile.Host)
	require.Equal(t, uint16(9999), profile.Port)
	require.Equal(t, []byte("MyObject"), profile.ObjectKey)
}

func TestParseCorbalocMultipleTargets(t *testing.T) {
	ior, err := ParseCorbaloc("corbaloc:iiop:host1:1111,iiop:host2:2222/key")
	require.NoError(t, err)
	require.Len(t, ior.Profiles, 2)
}

func TestParseCorbaname(t *testing.T) {
	ior, name, err := ParseCorbaname("corbaname:iiop:localhost:9999/NameService#Applications/Echo.Service")
	require.NoError(t, err)
	require.False(t, ior.IsNil())
	require.Len(t, name, 2)
	require.Equal(t, "Applications", name[0].ID)
	require.Equal(t, "Echo", name[1].ID)
	require.Equal(t, "Service", name[1].Kind)
}

func TestFormatRepositoryID(t *testing.T) {
	require.Equal(t, "IDL:Test/Echo:1.0", FormatRepositoryID("Test.Echo", "1.0"))
	require.Equal(t, "IDL:Already/Formatted:2.0", FormatRepositoryID("IDL:Already/Formatted:2.0", ""))
}

func TestGenerateObjectKeyIsRandomAnd16Bytes(t *testing.T) {
	a := GenerateObjectKey("")
	b := GenerateObjectKey("")
	require.Len(t, a, 16)
	require.NotEqual(t, a, b)
}
