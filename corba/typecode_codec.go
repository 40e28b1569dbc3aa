// Package corba provides a CORBA implementation in Go
package corba

import (
	"fmt"
	"reflect"

	"github.com/ifabos/go-corba/giop"
)

// Struct is the generic wire representation of a CORBA struct value used
// when no generated Go type exists for it. Names/Values are parallel slices
// in declaration order.
type Struct struct {
	TypeID string
	Names  []string
	Values []interface{}
}

// Get returns the value of the named member, if present.
func (s *Struct) Get(name string) (interface{}, bool) {
	for i, n := range s.Names {
		if n == name {
			return s.Values[i], true
		}
	}
	return nil, false
}

// Union is the generic wire representation of a CORBA union value.
type Union struct {
	TypeID       string
	Discriminant interface{}
	MemberName   string
	Value        interface{}
}

// EnumValue is the generic wire representation of a CORBA enum value,
// carrying both the ordinal (the actual CDR wire value) and its symbolic
// name for readability.
type EnumValue struct {
	TypeID  string
	Ordinal int32
	Name    string
}

// EncodeWithTypeCode marshals value onto m in the pure CDR layout tc
// describes (CORBA 3.4 section 15.3), with no self-describing tag: the
// reader must already know tc, exactly as an operation with a known IDL
// signature would. Composite kinds recurse into their members/elements;
// objrefs are marshaled as a stringified IOR, matching how an Object
// parameter is carried when no local servant is being passed by value.
func EncodeWithTypeCode(m *giop.CDRMarshaller, value interface{}, tc TypeCode) error {
	impl, ok := tc.(TypeCodeImpl)
	if !ok {
		return fmt.Errorf("corba: typecode %s has no wire representation", tc.String())
	}

	switch impl.TCKind() {
	case TC_NULL, TC_VOID:
		return nil

	case TC_BOOLEAN:
		b, err := toBool(value)
		if err != nil {
			return err
		}
		m.WriteBool(b)
		return nil

	case TC_CHAR, TC_OCTET:
		o, err := toUint64(value)
		if err != nil {
			return err
		}
		m.WriteOctet(byte(o))
		return nil

	case TC_SHORT:
		i, err := toInt64(value)
		if err != nil {
			return err
		}
		m.WriteShort(int16(i))
		return nil

	case TC_USHORT:
		u, err := toUint64(value)
		if err != nil {
			return err
		}
		m.WriteUShort(uint16(u))
		return nil

	case TC_LONG:
		i, err := toInt64(value)
		if err != nil {
			return err
		}
		m.WriteLong(int32(i))
		return nil

	case TC_ULONG:
		u, err := toUint64(value)
		if err != nil {
			return err
		}
		m.WriteULong(uint32(u))
		return nil

	case TC_LONGLONG:
		i, err := toInt64(value)
		if err != nil {
			return err
		}
		m.WriteLongLong(i)
		return nil

	case TC_ULONGLONG:
		u, err := toUint64(value)
		if err != nil {
			return err
		}
		m.WriteULongLong(u)
		return nil

	case TC_FLOAT:
		f, err := toFloat64(value)
		if err != nil {
			return err
		}
		m.WriteFloat(float32(f))
		return nil

	case TC_DOUBLE:
		f, err := toFloat64(value)
		if err != nil {
			return err
		}
		m.WriteDouble(f)
		return nil

	case TC_STRING:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("corba: expected string, got %T", value)
		}
		m.WriteString(s)
		return nil

	case TC_SEQUENCE:
		return encodeSequenceWithTypeCode(m, value, impl)

	case TC_STRUCT:
		return encodeStructWithTypeCode(m, value, impl)

	case TC_UNION:
		return encodeUnionWithTypeCode(m, value, impl)

	case TC_ENUM:
		return encodeEnumWithTypeCode(m, value, impl)

	case TC_ALIAS:
		content, err := impl.ContentType()
		if err != nil {
			return err
		}
		return EncodeWithTypeCode(m, value, content)

	case TC_OBJREF:
		ref, ok := value.(*ObjectRef)
		if !ok {
			if value == nil {
				m.WriteString("")
				return nil
			}
			return fmt.Errorf("corba: expected *ObjectRef, got %T", value)
		}
		if ref.IsNil() {
			m.WriteString("")
			return nil
		}
		iorString, err := ref.ToString()
		if err != nil {
			return err
		}
		m.WriteString(iorString)
		return nil

	case TC_ANY:
		return EncodeAny(m, value)

	default:
		return fmt.Errorf("corba: typecode-directed encoding not supported for kind %s", impl.TCKind())
	}
}

// DecodeWithTypeCode unmarshals a value in the pure CDR layout tc describes.
// Composite values without a matching generated Go type are returned using
// the generic Struct/Union/EnumValue representations.
func DecodeWithTypeCode(u *giop.CDRUnmarshaller, tc TypeCode) (interface{}, error) {
	impl, ok := tc.(TypeCodeImpl)
	if !ok {
		return nil, fmt.Errorf("corba: typecode %s has no wire representation", tc.String())
	}

	switch impl.TCKind() {
	case TC_NULL, TC_VOID:
		return nil, nil
	case TC_BOOLEAN:
		return u.ReadBool()
	case TC_CHAR, TC_OCTET:
		return u.ReadOctet()
	case TC_SHORT:
		return u.ReadShort()
	case TC_USHORT:
		return u.ReadUShort()
	case TC_LONG:
		return u.ReadLong()
	case TC_ULONG:
		return u.ReadULong()
	case TC_LONGLONG:
		return u.ReadLongLong()
	case TC_ULONGLONG:
		return u.ReadULongLong()
	case TC_FLOAT:
		return u.ReadFloat()
	case TC_DOUBLE:
		return u.ReadDouble()
	case TC_STRING:
		return u.ReadString()

	case TC_SEQUENCE:
		return decodeSequenceWithTypeCode(u, impl)

	case TC_STRUCT:
		return decodeStructWithTypeCode(u, impl)

	case TC_UNION:
		return decodeUnionWithTypeCode(u, impl)

	case TC_ENUM:
		return decodeEnumWithTypeCode(u, impl)

	case TC_ALIAS:
		content, err := impl.ContentType()
		if err != nil {
			return nil, err
		}
		return DecodeWithTypeCode(u, content)

	case TC_OBJREF:
		iorString, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		if iorString == "" {
			return (*ObjectRef)(nil), nil
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

	case TC_ANY:
		return DecodeAny(u)

	default:
		return nil, fmt.Errorf("corba: typecode-directed decoding not supported for kind %s", impl.TCKind())
	}
}

func encodeSequenceWithTypeCode(m *giop.CDRMarshaller, value interface{}, tc TypeCodeImpl) error {
	elemTC, err := tc.ContentType()
	if err != nil {
		return err
	}

	elems, err := toInterfaceSlice(value)
	if err != nil {
		return err
	}

	m.WriteULong(uint32(len(elems)))
	for _, elem := range elems {
		if err := EncodeWithTypeCode(m, elem, elemTC); err != nil {
			return err
		}
	}
	return nil
}

func decodeSequenceWithTypeCode(u *giop.CDRUnmarshaller, tc TypeCodeImpl) (interface{}, error) {
	elemTC, err := tc.ContentType()
	if err != nil {
		return nil, err
	}

	length, err := u.ReadULong()
	if err != nil {
		return nil, err
	}

	result := make([]interface{}, length)
	for i := uint32(0); i < length; i++ {
		val, err := DecodeWithTypeCode(u, elemTC)
		if err != nil {
			return nil, err
		}
		result[i] = val
	}
	return result, nil
}

func encodeStructWithTypeCode(m *giop.CDRMarshaller, value interface{}, tc TypeCodeImpl) error {
	count := tc.MemberCount()
	for i := 0; i < count; i++ {
		name, err := tc.MemberName(i)
		if err != nil {
			return err
		}
		memberTC, err := tc.MemberType(i)
		if err != nil {
			return err
		}
		memberVal, err := structMemberValue(value, name, i)
		if err != nil {
			return err
		}
		if err := EncodeWithTypeCode(m, memberVal, memberTC); err != nil {
			return err
		}
	}
	return nil
}

func decodeStructWithTypeCode(u *giop.CDRUnmarshaller, tc TypeCodeImpl) (interface{}, error) {
	count := tc.MemberCount()
	s := &Struct{
		TypeID: tc.Id(),
		Names:  make([]string, count),
		Values: make([]interface{}, count),
	}
	for i := 0; i < count; i++ {
		name, err := tc.MemberName(i)
		if err != nil {
			return nil, err
		}
		memberTC, err := tc.MemberType(i)
		if err != nil {
			return nil, err
		}
		val, err := DecodeWithTypeCode(u, memberTC)
		if err != nil {
			return nil, err
		}
		s.Names[i] = name
		s.Values[i] = val
	}
	return s, nil
}

// structMemberValue extracts member name's value from value, which may be
// the generic *Struct representation or an ordinary Go struct with an
// exported field of the same name.
func structMemberValue(value interface{}, name string, index int) (interface{}, error) {
	switch s := value.(type) {
	case *Struct:
		if v, ok := s.Get(name); ok {
			return v, nil
		}
		if index < len(s.Values) {
			return s.Values[index], nil
		}
		return nil, fmt.Errorf("corba: struct value missing member %q", name)
	case Struct:
		return structMemberValue(&s, name, index)
	}

	return reflectStructField(value, name)
}

func encodeUnionWithTypeCode(m *giop.CDRMarshaller, value interface{}, tc TypeCodeImpl) error {
	u, ok := value.(*Union)
	if !ok {
		if uv, ok := value.(Union); ok {
			u = &uv
		} else {
			return fmt.Errorf("corba: expected *Union, got %T", value)
		}
	}

	discTC, err := tc.DiscriminatorType()
	if err != nil {
		return err
	}
	if err := EncodeWithTypeCode(m, u.Discriminant, discTC); err != nil {
		return err
	}

	memberTC, found, err := unionMemberTypeCode(tc, u.Discriminant, u.MemberName)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("corba: union discriminant %v has no matching case", u.Discriminant)
	}
	return EncodeWithTypeCode(m, u.Value, memberTC)
}

func decodeUnionWithTypeCode(u *giop.CDRUnmarshaller, tc TypeCodeImpl) (interface{}, error) {
	discTC, err := tc.DiscriminatorType()
	if err != nil {
		return nil, err
	}
	disc, err := DecodeWithTypeCode(u, discTC)
	if err != nil {
		return nil, err
	}

	memberTC, memberName, found, err := unionMemberLookup(tc, disc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("corba: union discriminant %v has no matching case", disc)
	}

	val, err := DecodeWithTypeCode(u, memberTC)
	if err != nil {
		return nil, err
	}

	return &Union{TypeID: tc.Id(), Discriminant: disc, MemberName: memberName, Value: val}, nil
}

// unionMemberTypeCode finds the TypeCode for the case matching discriminant,
// preferring an exact name match (memberName) when the labels tie.
func unionMemberTypeCode(tc TypeCodeImpl, discriminant interface{}, memberName string) (TypeCode, bool, error) {
	if memberName != "" {
		for i := 0; i < tc.MemberCount(); i++ {
			label, lerr := tc.MemberLabel(i)
			name, nerr := tc.MemberName(i)
			if lerr == nil && nerr == nil && name == memberName && fmt.Sprintf("%v", label) == fmt.Sprintf("%v", discriminant) {
				mtc, err := tc.MemberType(i)
				return mtc, err == nil, err
			}
		}
	}
	mtc, _, found, err := unionMemberLookup(tc, discriminant)
	if err != nil || !found {
		return nil, found, err
	}
	return mtc, true, nil
}

func unionMemberLookup(tc TypeCodeImpl, discriminant interface{}) (TypeCode, string, bool, error) {
	count := tc.MemberCount()
	defaultIdx := tc.DefaultIndex()

	for i := 0; i < count; i++ {
		label, err := tc.MemberLabel(i)
		if err != nil {
			return nil, "", false, err
		}
		if fmt.Sprintf("%v", label) == fmt.Sprintf("%v", discriminant) {
			name, err := tc.MemberName(i)
			if err != nil {
				return nil, "", false, err
			}
			memberTC, err := tc.MemberType(i)
			if err != nil {
				return nil, "", false, err
			}
			return memberTC, name, true, nil
		}
	}

	if defaultIdx >= 0 && defaultIdx < count {
		name, err := tc.MemberName(defaultIdx)
		if err != nil {
			return nil, "", false, err
		}
		memberTC, err := tc.MemberType(defaultIdx)
		if err != nil {
			return nil, "", false, err
		}
		return memberTC, name, true, nil
	}

	return nil, "", false, nil
}

func encodeEnumWithTypeCode(m *giop.CDRMarshaller, value interface{}, tc TypeCodeImpl) error {
	ordinal, err := enumOrdinal(value, tc)
	if err != nil {
		return err
	}
	m.WriteULong(uint32(ordinal))
	return nil
}

func decodeEnumWithTypeCode(u *giop.CDRUnmarshaller, tc TypeCodeImpl) (interface{}, error) {
	ordinal, err := u.ReadULong()
	if err != nil {
		return nil, err
	}
	name := ""
	if n, err := tc.MemberName(int(ordinal)); err == nil {
		name = n
	}
	return &EnumValue{TypeID: tc.Id(), Ordinal: int32(ordinal), Name: name}, nil
}

func toBool(value interface{}) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("corba: expected bool, got %T", value)
}

func toInt64(value interface{}) (int64, error) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	default:
		return 0, fmt.Errorf("corba: expected integer, got %T", value)
	}
}

func toUint64(value interface{}) (uint64, error) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(v.Int()), nil
	default:
		return 0, fmt.Errorf("corba: expected integer, got %T", value)
	}
}

func toFloat64(value interface{}) (float64, error) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	default:
		return 0, fmt.Errorf("corba: expected float, got %T", value)
	}
}

// toInterfaceSlice normalizes a sequence value into a plain []interface{}
// regardless of whether it arrived as one already or as a concrete Go slice.
func toInterfaceSlice(value interface{}) ([]interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if s, ok := value.([]interface{}); ok {
		return s, nil
	}

	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("corba: expected sequence, got %T", value)
	}

	out := make([]interface{}, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}

// reflectStructField extracts an exported field's value from an ordinary Go
// struct (or pointer to one) by name.
func reflectStructField(value interface{}, name string) (interface{}, error) {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("corba: cannot read field %q of a nil pointer", name)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("corba: expected struct, got %T", value)
	}
	field := v.FieldByName(name)
	if !field.IsValid() {
		return nil, fmt.Errorf("corba: struct %s has no field %q", v.Type().Name(), name)
	}
	return field.Interface(), nil
}

func enumOrdinal(value interface{}, tc TypeCodeImpl) (int32, error) {
	switch v := value.(type) {
	case *EnumValue:
		return v.Ordinal, nil
	case EnumValue:
		return v.Ordinal, nil
	case int32:
		return v, nil
	case int:
		return int32(v), nil
	case string:
		count := tc.MemberCount()
		for i := 0; i < count; i++ {
			name, err := tc.MemberName(i)
			if err == nil && name == v {
				return int32(i), nil
			}
		}
		return 0, fmt.Errorf("corba: %q is not a member of enum %s", v, tc.Name())
	default:
		return 0, fmt.Errorf("corba: cannot use %T as an enum value", value)
	}
}

// EncodeAny writes value as a self-describing CORBA any: its TypeCode
// followed by the value encoded against that TypeCode.
func EncodeAny(m *giop.CDRMarshaller, value interface{}) error {
	tc, err := TypeCodeFromValue(value)
	if err != nil {
		return err
	}
	if err := WriteTypeCode(m, tc); err != nil {
		return err
	}
	return EncodeWithTypeCode(m, value, tc)
}

// DecodeAny reads a value written by EncodeAny.
func DecodeAny(u *giop.CDRUnmarshaller) (interface{}, error) {
	tc, err := ReadTypeCode(u)
	if err != nil {
		return nil, err
	}
	return DecodeWithTypeCode(u, tc)
}

// WriteTypeCode marshals tc's structural description so a peer with no
// shared registry entry for it can still decode a value encoded against it.
// This does not attempt to match the CORBA encapsulation-based TypeCode wire
// format byte for byte; it is a self-consistent structural encoding scoped to
// this implementation's own encode/decode pair.
func WriteTypeCode(m *giop.CDRMarshaller, tc TypeCode) error {
	impl, ok := tc.(TypeCodeImpl)
	if !ok {
		return fmt.Errorf("corba: typecode %s cannot be marshaled", tc.String())
	}

	kind := impl.TCKind()
	m.WriteULong(uint32(kind))

	switch kind {
	case TC_SEQUENCE:
		elemTC, err := impl.ContentType()
		if err != nil {
			return err
		}
		return WriteTypeCode(m, elemTC)

	case TC_ALIAS:
		m.WriteString(impl.Id())
		m.WriteString(impl.Name())
		content, err := impl.ContentType()
		if err != nil {
			return err
		}
		return WriteTypeCode(m, content)

	case TC_OBJREF:
		m.WriteString(impl.Id())
		m.WriteString(impl.Name())
		return nil

	case TC_STRUCT:
		m.WriteString(impl.Id())
		m.WriteString(impl.Name())
		count := impl.MemberCount()
		m.WriteULong(uint32(count))
		for i := 0; i < count; i++ {
			name, err := impl.MemberName(i)
			if err != nil {
				return err
			}
			memberTC, err := impl.MemberType(i)
			if err != nil {
				return err
			}
			m.WriteString(name)
			if err := WriteTypeCode(m, memberTC); err != nil {
				return err
			}
		}
		return nil

	case TC_UNION:
		m.WriteString(impl.Id())
		m.WriteString(impl.Name())
		discTC, err := impl.DiscriminatorType()
		if err != nil {
			return err
		}
		if err := WriteTypeCode(m, discTC); err != nil {
			return err
		}
		m.WriteLong(int32(impl.DefaultIndex()))
		count := impl.MemberCount()
		m.WriteULong(uint32(count))
		for i := 0; i < count; i++ {
			name, err := impl.MemberName(i)
			if err != nil {
				return err
			}
			label, err := impl.MemberLabel(i)
			if err != nil {
				return err
			}
			memberTC, err := impl.MemberType(i)
			if err != nil {
				return err
			}
			m.WriteString(name)
			if err := EncodeWithTypeCode(m, label, discTC); err != nil {
				return err
			}
			if err := WriteTypeCode(m, memberTC); err != nil {
				return err
			}
		}
		return nil

	case TC_ENUM:
		m.WriteString(impl.Id())
		m.WriteString(impl.Name())
		count := impl.MemberCount()
		m.WriteULong(uint32(count))
		for i := 0; i < count; i++ {
			name, err := impl.MemberName(i)
			if err != nil {
				return err
			}
			m.WriteString(name)
		}
		return nil

	default:
		// Primitive kinds carry no further structure; ReadTypeCode resolves
		// them straight from the registry by kind.
		return nil
	}
}

// ReadTypeCode reconstructs a TypeCode written by WriteTypeCode.
func ReadTypeCode(u *giop.CDRUnmarshaller) (TypeCode, error) {
	kindVal, err := u.ReadULong()
	if err != nil {
		return nil, err
	}
	kind := TCKind(kindVal)

	switch kind {
	case TC_SEQUENCE:
		elemTC, err := ReadTypeCode(u)
		if err != nil {
			return nil, err
		}
		return globalTypeRegistry.GetOrCreateSequenceTypeCode("", "", elemTC, 0)

	case TC_ALIAS:
		id, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		name, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		content, err := ReadTypeCode(u)
		if err != nil {
			return nil, err
		}
		return globalTypeRegistry.GetOrCreateAliasTypeCode(id, name, content)

	case TC_OBJREF:
		id, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		name, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		return globalTypeRegistry.GetOrCreateObjrefTypeCode(id, name)

	case TC_STRUCT:
		id, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		name, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		count, err := u.ReadULong()
		if err != nil {
			return nil, err
		}
		stc, err := globalTypeRegistry.GetOrCreateStructTypeCode("", name)
		if err != nil {
			return nil, err
		}
		_ = id
		for i := uint32(0); i < count; i++ {
			memberName, err := u.ReadString()
			if err != nil {
				return nil, err
			}
			memberTC, err := ReadTypeCode(u)
			if err != nil {
				return nil, err
			}
			stc.AddMember(memberName, memberTC)
		}
		return stc, nil

	case TC_UNION:
		id, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		name, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		discTC, err := ReadTypeCode(u)
		if err != nil {
			return nil, err
		}
		defaultIdx, err := u.ReadLong()
		if err != nil {
			return nil, err
		}
		count, err := u.ReadULong()
		if err != nil {
			return nil, err
		}
		utc, err := globalTypeRegistry.GetOrCreateUnionTypeCode("", name, discTC)
		if err != nil {
			return nil, err
		}
		_ = id
		for i := uint32(0); i < count; i++ {
			memberName, err := u.ReadString()
			if err != nil {
				return nil, err
			}
			label, err := DecodeWithTypeCode(u, discTC)
			if err != nil {
				return nil, err
			}
			memberTC, err := ReadTypeCode(u)
			if err != nil {
				return nil, err
			}
			utc.AddMember(memberName, label, memberTC)
		}
		if int(defaultIdx) >= 0 {
			utc.SetDefaultMember(int(defaultIdx))
		}
		return utc, nil

	case TC_ENUM:
		id, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		name, err := u.ReadString()
		if err != nil {
			return nil, err
		}
		count, err := u.ReadULong()
		if err != nil {
			return nil, err
		}
		etc, err := globalTypeRegistry.GetOrCreateEnumTypeCode("", name)
		if err != nil {
			return nil, err
		}
		_ = id
		for i := uint32(0); i < count; i++ {
			memberName, err := u.ReadString()
			if err != nil {
				return nil, err
			}
			etc.AddMember(memberName)
		}
		return etc, nil

	default:
		return TypeCodeFromKind(kind)
	}
}
