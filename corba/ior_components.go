package corba

import (
	"encoding/binary"
	"fmt"
)

// CodeSets represents the TAG_CODE_SETS component structure from the CORBA spec.
type CodeSets struct {
	NativeCharCodeSet  uint32
	NativeWCharCodeSet uint32
	ConvCharCodeSets   []uint32
	ConvWcharCodeSets  []uint32
}

// DecodeCodeSetsComponent decodes a TAG_CODE_SETS component.
func DecodeCodeSetsComponent(data []byte) (*CodeSets, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("code sets component data too short")
	}

	byteOrder, data, err := GetByteOrderFromData(data)
	if err != nil {
		return nil, err
	}

	if len(data) < 8 {
		return nil, fmt.Errorf("code sets component data too short after byte order flag")
	}

	result := &CodeSets{}
	pos := 0

	result.NativeCharCodeSet = byteOrder.Uint32(data[pos : pos+4])
	pos += 4

	result.NativeWCharCodeSet = byteOrder.Uint32(data[pos : pos+4])
	pos += 4

	if pos+4 <= len(data) {
		count := byteOrder.Uint32(data[pos : pos+4])
		pos += 4

		if count > 0 {
			result.ConvCharCodeSets = make([]uint32, count)
			for i := uint32(0); i < count; i++ {
				if pos+4 > len(data) {
					return nil, fmt.Errorf("code sets component data corrupted")
				}
				result.ConvCharCodeSets[i] = byteOrder.Uint32(data[pos : pos+4])
				pos += 4
			}
		}
	}

	if pos+4 <= len(data) {
		count := byteOrder.Uint32(data[pos : pos+4])
		pos += 4

		if count > 0 {
			result.ConvWcharCodeSets = make([]uint32, count)
			for i := uint32(0); i < count; i++ {
				if pos+4 > len(data) {
					return nil, fmt.Errorf("code sets component data corrupted")
				}
				result.ConvWcharCodeSets[i] = byteOrder.Uint32(data[pos : pos+4])
				pos += 4
			}
		}
	}

	return result, nil
}

// EncodeCodeSetsComponent encodes a CodeSets structure into a component body.
func EncodeCodeSetsComponent(codeSets *CodeSets, byteOrder binary.ByteOrder) []byte {
	size := 8

	if codeSets.ConvCharCodeSets != nil {
		size += 4 + (4 * len(codeSets.ConvCharCodeSets))
	} else {
		size += 4
	}

	if codeSets.ConvWcharCodeSets != nil {
		size += 4 + (4 * len(codeSets.ConvWcharCodeSets))
	} else {
		size += 4
	}

	buf := make([]byte, size)
	pos := 0

	byteOrder.PutUint32(buf[pos:pos+4], codeSets.NativeCharCodeSet)
	pos += 4

	byteOrder.PutUint32(buf[pos:pos+4], codeSets.NativeWCharCodeSet)
	pos += 4

	if codeSets.ConvCharCodeSets != nil {
		byteOrder.PutUint32(buf[pos:pos+4], uint32(len(codeSets.ConvCharCodeSets)))
		pos += 4
		for _, code := range codeSets.ConvCharCodeSets {
			byteOrder.PutUint32(buf[pos:pos+4], code)
			pos += 4
		}
	} else {
		byteOrder.PutUint32(buf[pos:pos+4], 0)
		pos += 4
	}

	if codeSets.ConvWcharCodeSets != nil {
		byteOrder.PutUint32(buf[pos:pos+4], uint32(len(codeSets.ConvWcharCodeSets)))
		pos += 4
		for _, code := range codeSets.ConvWcharCodeSets {
			byteOrder.PutUint32(buf[pos:pos+4], code)
			pos += 4
		}
	} else {
		byteOrder.PutUint32(buf[pos:pos+4], 0)
		pos += 4
	}

	return AddByteOrderFlag(buf, byteOrder)
}

// SSLData represents an inert TAG_SSL_SEC_TRANS component body. Secure
// invocation itself is out of scope; this only lets the IOR codec round-trip
// a profile that happens to carry this component tag.
type SSLData struct {
	TargetSupports uint16
	TargetRequires uint16
	Port           uint16
}

// DecodeSSLComponent decodes a TAG_SSL_SEC_TRANS component.
func DecodeSSLComponent(data []byte) (*SSLData, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("SSL component data too short")
	}

	byteOrder, data, err := GetByteOrderFromData(data)
	if err != nil {
		return nil, err
	}

	if len(data) < 6 {
		return nil, fmt.Errorf("SSL component data too short after byte order flag")
	}

	result := &SSLData{}
	pos := 0

	result.TargetSupports = byteOrder.Uint16(data[pos : pos+2])
	pos += 2

	result.TargetRequires = byteOrder.Uint16(data[pos : pos+2])
	pos += 2

	result.Port = byteOrder.Uint16(data[pos : pos+2])

	return result, nil
}

// EncodeSSLComponent encodes an SSLData structure into a component body.
func EncodeSSLComponent(ssl *SSLData, byteOrder binary.ByteOrder) []byte {
	buf := make([]byte, 6)
	pos := 0

	byteOrder.PutUint16(buf[pos:pos+2], ssl.TargetSupports)
	pos += 2

	byteOrder.PutUint16(buf[pos:pos+2], ssl.TargetRequires)
	pos += 2

	byteOrder.PutUint16(buf[pos:pos+2], ssl.Port)

	return AddByteOrderFlag(buf, byteOrder)
}

// DecodeComponent decodes a tagged component by its tag, falling back to the
// raw bytes for tags this module does not interpret.
func DecodeComponent(tag uint32, data []byte) (interface{}, error) {
	switch tag {
	case TAG_CODE_SETS:
		return DecodeCodeSetsComponent(data)
	case TAG_SSL_SEC_TRANS:
		return DecodeSSLComponent(data)
	default:
		return data, nil
	}
}
