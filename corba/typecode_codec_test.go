package corba

import (
	"encoding/binary"
	"testing"

	"github.com/ifabos/go-corba/giop"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeWithTypeCodeStructRoundTrips(t *testing.T) {
	shortTC, err := GetBasicTypeCode(TC_SHORT)
	require.NoError(t, err)
	stringTC, err := GetBasicTypeCode(TC_STRING)
	require.NoError(t, err)

	pointTC, err := CreateStructTypeCode("IDL:Test/RoundTripPoint:1.0", "RoundTripPoint")
	require.NoError(t, err)
	pointTC.AddMember("x", shortTC)
	pointTC.AddMember("label", stringTC)

	in := &Struct{
		TypeID: pointTC.Id(),
		Names:  []string{"x", "label"},
		Values: []interface{}{int16(7), "origin"},
	}

	m := giop.NewCDRMarshaller(binary.BigEndian)
	require.NoError(t, EncodeWithTypeCode(m, in, pointTC))

	u := giop.NewCDRUnmarshaller(m.Bytes(), binary.BigEndian)
	out, err := DecodeWithTypeCode(u, pointTC)
	require.NoError(t, err)

	got, ok := out.(*Struct)
	require.True(t, ok)
	require.Equal(t, []string{"x", "label"}, got.Names)
	require.Equal(t, int16(7), got.Values[0])
	require.Equal(t, "origin", got.Values[1])
}

func TestEncodeDecodeWithTypeCodeUnionRoundTrips(t *testing.T) {
	longTC, err := GetBasicTypeCode(TC_LONG)
	require.NoError(t, err)
	stringTC, err := GetBasicTypeCode(TC_STRING)
	require.NoError(t, err)

	unionTC, err := CreateUnionTypeCode("IDL:Test/RoundTripChoice:1.0", "RoundTripChoice", longTC)
	require.NoError(t, err)
	unionTC.AddMember("asText", int32(1), stringTC)
	require.NoError(t, unionTC.SetDefaultMember(0))

	in := &Union{
		TypeID:       unionTC.Id(),
		Discriminant: int32(1),
		MemberName:   "asText",
		Value:        "hello",
	}

	m := giop.NewCDRMarshaller(binary.BigEndian)
	require.NoError(t, EncodeWithTypeCode(m, in, unionTC))

	u := giop.NewCDRUnmarshaller(m.Bytes(), binary.BigEndian)
	out, err := DecodeWithTypeCode(u, unionTC)
	require.NoError(t, err)

	got, ok := out.(*Union)
	require.True(t, ok)
	require.Equal(t, "asText", got.MemberName)
	require.Equal(t, "hello", got.Value)
}

func TestEncodeDecodeWithTypeCodeSequenceOfStringRoundTrips(t *testing.T) {
	stringTC, err := GetBasicTypeCode(TC_STRING)
	require.NoError(t, err)

	seqTC, err := CreateSequenceTypeCode("", "sequence<string>", stringTC, 0)
	require.NoError(t, err)

	in := []interface{}{"alpha", "beta", "gamma"}

	m := giop.NewCDRMarshaller(binary.BigEndian)
	require.NoError(t, EncodeWithTypeCode(m, in, seqTC))

	u := giop.NewCDRUnmarshaller(m.Bytes(), binary.BigEndian)
	out, err := DecodeWithTypeCode(u, seqTC)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeDecodeWithTypeCodeEnumRoundTrips(t *testing.T) {
	enumTC, err := CreateEnumTypeCode("IDL:Test/RoundTripColor:1.0", "RoundTripColor")
	require.NoError(t, err)
	enumTC.AddMember("RED")
	enumTC.AddMember("GREEN")
	enumTC.AddMember("BLUE")

	m := giop.NewCDRMarshaller(binary.BigEndian)
	require.NoError(t, EncodeWithTypeCode(m, &EnumValue{Ordinal: 1}, enumTC))

	u := giop.NewCDRUnmarshaller(m.Bytes(), binary.BigEndian)
	out, err := DecodeWithTypeCode(u, enumTC)
	require.NoError(t, err)

	got, ok := out.(*EnumValue)
	require.True(t, ok)
	require.Equal(t, int32(1), got.Ordinal)
	require.Equal(t, "GREEN", got.Name)
}

func TestEncodeArgsSupportsGoStructArguments(t *testing.T) {
	type Point struct {
		X     int32
		Label string
	}

	args := []interface{}{Point{X: 3, Label: "p"}}

	m := giop.NewCDRMarshaller(binary.BigEndian)
	require.NoError(t, EncodeArgs(m, args))

	u := giop.NewCDRUnmarshaller(m.Bytes(), binary.BigEndian)
	decoded, err := DecodeArgs(u)
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	s, ok := decoded[0].(*Struct)
	require.True(t, ok)
	x, ok := s.Get("X")
	require.True(t, ok)
	require.Equal(t, int32(3), x)
	label, ok := s.Get("Label")
	require.True(t, ok)
	require.Equal(t, "p", label)
}

func TestWriteReadTypeCodeRoundTripsAny(t *testing.T) {
	stringTC, err := GetBasicTypeCode(TC_STRING)
	require.NoError(t, err)
	seqTC, err := CreateSequenceTypeCode("", "sequence<string>", stringTC, 0)
	require.NoError(t, err)

	m := giop.NewCDRMarshaller(binary.BigEndian)
	require.NoError(t, WriteTypeCode(m, seqTC))

	u := giop.NewCDRUnmarshaller(m.Bytes(), binary.BigEndian)
	readBack, err := ReadTypeCode(u)
	require.NoError(t, err)
	require.Equal(t, TC_SEQUENCE, readBack.(TypeCodeImpl).TCKind())
}
