// Package corba provides a CORBA implementation in Go
package corba

import (
	"fmt"
	"reflect"

	"github.com/ifabos/go-corba/giop"
)

// argTag identifies how a single dynamically-typed argument or result value
// was encoded on the wire. Without an IDL compiler to generate per-operation
// marshaling code, requests built through the DII (corba.Request) and
// servants dispatched through the dynamic Dispatch(method, args) contract
// have no static signature to marshal against, so each value carries its own
// tag the way a CORBA Any does. This is the DII fringe: the primitive tags
// below are handled inline, but any composite value (struct/union/enum) is
// carried as a tagged CORBA any — its TypeCode travels with it on the wire
// (see EncodeAny/DecodeAny in typecode_codec.go) and EncodeWithTypeCode does
// the actual marshaling. A caller that already knows its TypeCode ahead of
// time should call EncodeWithTypeCode/DecodeWithTypeCode directly instead of
// going through this self-describing envelope.
type argTag byte

const (
	argTagNil argTag = iota
	argTagBool
	argTagOctet
	argTagShort
	argTagUShort
	argTagLong
	argTagULong
	argTagLongLong
	argTagULongLong
	argTagFloat
	argTagDouble
	argTagString
	argTagOctetSeq
	argTagSequence
	argTagObjectRef
	argTagAny // struct, union, enum, or anything else carried with its TypeCode
)

// EncodeArgs writes a self-describing argument list: a ulong count followed
// by a tagged value for each argument.
func EncodeArgs(m *giop.CDRMarshaller, args []interface{}) error {
	m.WriteULong(uint32(len(args)))
	for _, arg := range args {
		if err := EncodeAnyValue(m, arg); err != nil {
			return err
		}
	}
	return nil
}

// DecodeArgs reads an argument list written by EncodeArgs.
func DecodeArgs(u *giop.CDRUnmarshaller) ([]interface{}, error) {
	count, err := u.ReadULong()
	if err != nil {
		return nil, err
	}

	args := make([]interface{}, count)
	for i := uint32(0); i < count; i++ {
		val, err := DecodeAnyValue(u)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}
	return args, nil
}

// EncodeAnyValue writes a single tagged value, recursing into slices.
func EncodeAnyValue(m *giop.CDRMarshaller, value interface{}) error {
	if value == nil {
		m.WriteOctet(byte(argTagNil))
		return nil
	}

	if ref, ok := value.(*ObjectRef); ok {
		m.WriteOctet(byte(argTagObjectRef))
		iorString, err := ref.ToString()
		if err != nil {
			return err
		}
		m.WriteString(iorString)
		return nil
	}

	switch value.(type) {
	case *Struct, Struct, *Union, Union, *EnumValue, EnumValue:
		m.WriteOctet(byte(argTagAny))
		return EncodeAny(m, value)
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Bool:
		m.WriteOctet(byte(argTagBool))
		m.WriteBool(v.Bool())
	case reflect.Int8:
		m.WriteOctet(byte(argTagOctet))
		m.WriteOctet(byte(v.Int()))
	case reflect.Uint8:
		m.WriteOctet(byte(argTagOctet))
		m.WriteOctet(byte(v.Uint()))
	case reflect.Int16:
		m.WriteOctet(byte(argTagShort))
		m.WriteShort(int16(v.Int()))
	case reflect.Uint16:
		m.WriteOctet(byte(argTagUShort))
		m.WriteUShort(uint16(v.Uint()))
	case reflect.Int, reflect.Int32:
		m.WriteOctet(byte(argTagLong))
		m.WriteLong(int32(v.Int()))
	case reflect.Uint, reflect.Uint32:
		m.WriteOctet(byte(argTagULong))
		m.WriteULong(uint32(v.Uint()))
	case reflect.Int64:
		m.WriteOctet(byte(argTagLongLong))
		m.WriteLongLong(v.Int())
	case reflect.Uint64:
		m.WriteOctet(byte(argTagULongLong))
		m.WriteULongLong(v.Uint())
	case reflect.Float32:
		m.WriteOctet(byte(argTagFloat))
		m.WriteFloat(float32(v.Float()))
	case reflect.Float64:
		m.WriteOctet(byte(argTagDouble))
		m.WriteDouble(v.Float())
	case reflect.String:
		m.WriteOctet(byte(argTagString))
		m.WriteString(v.String())
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			m.WriteOctet(byte(argTagOctetSeq))
			m.WriteOctetSequence(v.Bytes())
			return nil
		}
		m.WriteOctet(byte(argTagSequence))
		length := v.Len()
		m.WriteULong(uint32(length))
		for i := 0; i < length; i++ {
			if err := EncodeAnyValue(m, v.Index(i).Interface()); err != nil {
				return err
			}
		}
	case reflect.Struct:
		m.WriteOctet(byte(argTagAny))
		return EncodeAny(m, value)
	default:
		return fmt.Errorf("corba: cannot encode argument of type %T as a dynamic value", value)
	}

	return nil
}

// DecodeAnyValue reads a single tagged value written by EncodeAnyValue.
func DecodeAnyValue(u *giop.CDRUnmarshaller) (interface{}, error) {
	tagByte, err := u.ReadOctet()
	if err != nil {
		return nil, err
	}

	switch argTag(tagByte) {
	case argTagNil:
		return nil, nil
	case argTagBool:
		return u.ReadBool()
	case argTagOctet:
		return u.ReadOctet()
	case argTagShort:
		return u.ReadShort()
	case argTagUShort:
		return u.ReadUShort()
	case argTagLong:
		return u.ReadLong()
	case argTagULong:
		return u.ReadULong()
	case argTagLongLong:
		return u.ReadLongLong()
	case argTagULongLong:
		return u.ReadULongLong()
	case argTagFloat:
		return u.ReadFloat()
	case argTagDouble:
		return u.ReadDouble()
	case argTagString:
		return u.ReadString()
	case argTagOctetSeq:
		return u.ReadOctetSequence()
	case argTagObjectRef:
		iorString, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		ior, err := ParseIOR(iorString)
		if err != nil {
			return nil, err
		}
		profile, err := ior.GetPrimaryIIOPProfile()
		if err != nil {
			return nil, err
		}
		ref := newObjectRef(defaultConnectionPool, profile.Host, int(profile.Port), profile.ObjectKey, ior.TypeID)
		ref.ior = ior
		return ref, nil
	case argTagSequence:
		length, err := u.ReadULong()
		if err != nil {
			return nil, err
		}
		seq := make([]interface{}, length)
		for i := uint32(0); i < length; i++ {
			val, err := DecodeAnyValue(u)
			if err != nil {
				return nil, err
			}
			seq[i] = val
		}
		return seq, nil
	case argTagAny:
		return DecodeAny(u)
	default:
		return nil, fmt.Errorf("corba: unknown dynamic value tag %d", tagByte)
	}
}
