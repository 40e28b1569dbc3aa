package giop

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCDRAlignment(t *testing.T) {
	m := NewCDRMarshaller(binary.BigEndian)

	m.WriteOctet(1)
	require.Equal(t, 1, m.Size())

	m.WriteShort(2) // must align to 2
	require.Equal(t, 4, m.Size())

	m.WriteOctet(3)
	require.Equal(t, 5, m.Size())

	m.WriteLong(4) // must align to 4
	require.Equal(t, 12, m.Size())

	m.WriteOctet(5)
	require.Equal(t, 13, m.Size())

	m.WriteDouble(6) // must align to 8
	require.Equal(t, 24, m.Size())
}

func TestCDRPrimitiveRoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		m := NewCDRMarshaller(order)
		m.WriteBool(true)
		m.WriteBool(false)
		m.WriteOctet(0xAB)
		m.WriteShort(-1)
		m.WriteShort(math.MinInt16)
		m.WriteUShort(0xFFFF)
		m.WriteLong(-123456)
		m.WriteULong(0x7FFFFFFF) // 2^31 - 1
		m.WriteLongLong(-1)
		m.WriteULongLong(math.MaxUint64)
		m.WriteFloat(float32(math.Inf(1)))
		m.WriteDouble(math.Inf(-1))

		u := NewCDRUnmarshaller(m.Bytes(), order)
		b, err := u.ReadBool()
		require.NoError(t, err)
		require.True(t, b)

		b, err = u.ReadBool()
		require.NoError(t, err)
		require.False(t, b)

		oc, err := u.ReadOctet()
		require.NoError(t, err)
		require.Equal(t, byte(0xAB), oc)

		s, err := u.ReadShort()
		require.NoError(t, err)
		require.Equal(t, int16(-1), s)

		s, err = u.ReadShort()
		require.NoError(t, err)
		require.Equal(t, int16(math.MinInt16), s)

		us, err := u.ReadUShort()
		require.NoError(t, err)
		require.Equal(t, uint16(0xFFFF), us)

		l, err := u.ReadLong()
		require.NoError(t, err)
		require.Equal(t, int32(-123456), l)

		ul, err := u.ReadULong()
		require.NoError(t, err)
		require.Equal(t, uint32(0x7FFFFFFF), ul)

		ll, err := u.ReadLongLong()
		require.NoError(t, err)
		require.Equal(t, int64(-1), ll)

		ull, err := u.ReadULongLong()
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64), ull)

		f, err := u.ReadFloat()
		require.NoError(t, err)
		require.True(t, math.IsInf(float64(f), 1))

		d, err := u.ReadDouble()
		require.NoError(t, err)
		require.True(t, math.IsInf(d, -1))
	}
}

func TestCDRNaN(t *testing.T) {
	m := NewCDRMarshaller(binary.BigEndian)
	m.WriteDouble(math.NaN())
	u := NewCDRUnmarshaller(m.Bytes(), binary.BigEndian)
	v, err := u.ReadDouble()
	require.NoError(t, err)
	require.True(t, math.IsNaN(v))
}

func TestCDRStringEmptyEncodesLengthOneWithNUL(t *testing.T) {
	m := NewCDRMarshaller(binary.BigEndian)
	m.WriteString("")
	data := m.Bytes()

	length := binary.BigEndian.Uint32(data[0:4])
	require.Equal(t, uint32(1), length)
	require.Equal(t, byte(0), data[4])

	u := NewCDRUnmarshaller(data, binary.BigEndian)
	s, err := u.ReadString()
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestCDRStringRoundTrip(t *testing.T) {
	m := NewCDRMarshaller(binary.LittleEndian)
	m.WriteString("hello, corba")
	u := NewCDRUnmarshaller(m.Bytes(), binary.LittleEndian)
	s, err := u.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello, corba", s)
}

func TestCDROctetSequenceRoundTrip(t *testing.T) {
	m := NewCDRMarshaller(binary.BigEndian)
	m.WriteOctetSequence([]byte{})
	m.WriteOctetSequence([]byte{1, 2, 3, 4, 5})

	u := NewCDRUnmarshaller(m.Bytes(), binary.BigEndian)
	empty, err := u.ReadOctetSequence()
	require.NoError(t, err)
	require.Empty(t, empty)

	seq, err := u.ReadOctetSequence()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, seq)
}

func TestCDRUnderflowIsMarshalFailure(t *testing.T) {
	u := NewCDRUnmarshaller([]byte{0x00, 0x01}, binary.BigEndian)
	_, err := u.ReadLong()
	require.Error(t, err)
}

func TestCDRLargeObjectKey(t *testing.T) {
	key := make([]byte, 10000)
	for i := range key {
		key[i] = byte(i)
	}

	m := NewCDRMarshaller(binary.BigEndian)
	m.WriteOctetSequence(key)

	u := NewCDRUnmarshaller(m.Bytes(), binary.BigEndian)
	got, err := u.ReadOctetSequence()
	require.NoError(t, err)
	require.Equal(t, key, got)
}

func TestMessageHeaderRoundTrip(t *testing.T) {
	for _, version := range [][2]byte{GIOP_1_0, GIOP_1_1, GIOP_1_2} {
		for _, tc := range []struct {
			flags byte
			order binary.ByteOrder
		}{
			{0x00, binary.BigEndian},
			{0x01, binary.LittleEndian},
		} {
			header := MessageHeader{
				Magic:   [4]byte{'G', 'I', 'O', 'P'},
				Version: version,
				Flags:   tc.flags,
				MsgType: MsgRequest,
				MsgSize: 42,
			}

			// The header's message-size field is encoded per the flags
			// endianness, as section 4.4 requires; magic/version are
			// always big endian regardless of the marshaller's order.
			hm := NewCDRMarshaller(tc.order)
			hm.WriteMessageHeader(header)

			hu := NewCDRUnmarshaller(hm.Bytes(), binary.BigEndian)
			got, err := hu.ReadMessageHeader()
			require.NoError(t, err)
			require.Equal(t, header, got)
		}
	}
}

func TestReadMessageHeaderRejectsBadMagic(t *testing.T) {
	header := MessageHeader{
		Magic:   [4]byte{'X', 'X', 'X', 'X'},
		Version: GIOP_1_2,
		MsgType: MsgRequest,
	}
	require.Error(t, header.Validate())
}

func TestGIOPMessageRoundTrip(t *testing.T) {
	msg := NewRequestMessage(7, []byte("objkey"), "echo", true)
	data, err := MarshalGIOPMessage(msg)
	require.NoError(t, err)

	got, err := UnmarshalGIOPMessage(data)
	require.NoError(t, err)
	require.Equal(t, MsgRequest, int(got.Header.MsgType))

	reqHeader, ok := got.Body.(*RequestHeader)
	require.True(t, ok)
	require.Equal(t, uint32(7), reqHeader.RequestID)
	require.Equal(t, "echo", reqHeader.Operation)
	require.Equal(t, []byte("objkey"), reqHeader.ObjectKey)
}
