package corba

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicTypeCodeAccessorsRejectKindMismatch(t *testing.T) {
	tc, err := GetBasicTypeCode(TC_LONG)
	require.NoError(t, err)

	_, err = tc.ContentType()
	require.Error(t, err)
	require.True(t, IsSystemException(err))
	require.Equal(t, "BAD_PARAM", err.(Exception).Name())

	_, err = tc.MemberType(0)
	require.Error(t, err)

	_, err = tc.MemberName(0)
	require.Error(t, err)
}

func TestStructTypeCodeMembers(t *testing.T) {
	shortTC, err := GetBasicTypeCode(TC_SHORT)
	require.NoError(t, err)
	stringTC, err := GetBasicTypeCode(TC_STRING)
	require.NoError(t, err)

	st, err := CreateStructTypeCode("IDL:Test/Point:1.0", "Point")
	require.NoError(t, err)
	st.AddMember("x", shortTC)
	st.AddMember("label", stringTC)

	require.Equal(t, 2, st.MemberCount())

	name, err := st.MemberName(0)
	require.NoError(t, err)
	require.Equal(t, "x", name)

	mt, err := st.MemberType(1)
	require.NoError(t, err)
	require.Equal(t, TC_STRING, mt.(TypeCodeImpl).TCKind())

	_, err = st.MemberName(5)
	require.Error(t, err)
}

func TestSequenceTypeCodeContentType(t *testing.T) {
	octetTC, err := GetBasicTypeCode(TC_OCTET)
	require.NoError(t, err)

	seq, err := CreateSequenceTypeCode("", "", octetTC, 0)
	require.NoError(t, err)
	require.Equal(t, TC_SEQUENCE, seq.TCKind())

	content, err := seq.ContentType()
	require.NoError(t, err)
	require.Equal(t, TC_OCTET, content.(TypeCodeImpl).TCKind())
}

func TestEnumTypeCodeMembers(t *testing.T) {
	en, err := CreateEnumTypeCode("IDL:Test/Color:1.0", "Color")
	require.NoError(t, err)
	en.AddMember("RED")
	en.AddMember("GREEN")
	en.AddMember("BLUE")

	require.Equal(t, 3, en.MemberCount())
	name, err := en.MemberName(2)
	require.NoError(t, err)
	require.Equal(t, "BLUE", name)
}

func TestUnionTypeCodeDiscriminatorAndDefault(t *testing.T) {
	longTC, err := GetBasicTypeCode(TC_LONG)
	require.NoError(t, err)
	stringTC, err := GetBasicTypeCode(TC_STRING)
	require.NoError(t, err)

	u, err := CreateUnionTypeCode("IDL:Test/U:1.0", "U", longTC)
	require.NoError(t, err)
	u.AddMember("asString", int32(0), stringTC)
	u.AddMember("asLong", int32(1), longTC)
	require.NoError(t, u.SetDefaultMember(1))

	require.Equal(t, 2, u.MemberCount())
	disc, err := u.DiscriminatorType()
	require.NoError(t, err)
	require.Equal(t, TC_LONG, disc.(TypeCodeImpl).TCKind())
	require.Equal(t, 1, u.DefaultIndex())
}

func TestDeeplyNestedSequenceTypeCode(t *testing.T) {
	octetTC, err := GetBasicTypeCode(TC_OCTET)
	require.NoError(t, err)

	var inner TypeCode = octetTC
	for i := 0; i < 8; i++ {
		seq, err := CreateSequenceTypeCode("", "", inner, 0)
		require.NoError(t, err)
		inner = seq
	}

	require.Equal(t, TC_SEQUENCE, inner.(TypeCodeImpl).TCKind())

	depth := 0
	cur := inner
	for {
		impl, ok := cur.(TypeCodeImpl)
		require.True(t, ok)
		if impl.TCKind() != TC_SEQUENCE {
			break
		}
		depth++
		next, err := impl.ContentType()
		require.NoError(t, err)
		cur = next
	}
	require.Equal(t, 8, depth)
}
