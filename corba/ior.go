// Package corba provides a CORBA implementation in Go
package corba

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IIOPVersion identifies the minor GIOP/IIOP revision a profile speaks.
type IIOPVersion struct {
	Major byte
	Minor byte
}

// String returns the string representation of an IIOP version
func (v IIOPVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// TaggedProfile represents a profile with a specific tag in an IOR
type TaggedProfile struct {
	Tag     uint32
	Profile []byte
}

// TaggedComponent represents a component with a specific tag in an IOR profile
type TaggedComponent struct {
	Tag       uint32
	Component []byte
	// DecodedData stores the decoded component data when available
	DecodedData interface{}
}

// ProfileBody_1_1 represents the profile body for IIOP 1.1 and later
type ProfileBody_1_1 struct {
	Version    IIOPVersion
	Host       string
	Port       uint16
	ObjectKey  []byte
	Components []TaggedComponent
}

// Known profile tags from the CORBA specification
const (
	TAG_INTERNET_IOP        uint32 = 0 // Standard IIOP profile
	TAG_MULTIPLE_COMPONENTS uint32 = 1 // For multiple components
	TAG_SCCP_IOP            uint32 = 2 // For SCCP transport
	TAG_UIPMC               uint32 = 3 // For unreliable multicast
)

// Known component tags from the CORBA specification
const (
	TAG_ORB_TYPE                 uint32 = 0  // The ORB type
	TAG_CODE_SETS                uint32 = 1  // Character and wide character code sets
	TAG_POLICIES                 uint32 = 2  // Policies associated with the object
	TAG_ALTERNATE_IIOP_ADDRESS   uint32 = 3  // Alternative IIOP address
	TAG_ASSOCIATION_OPTIONS      uint32 = 13 // Security association options
	TAG_SEC_NAME                 uint32 = 14 // Security name component
	TAG_SPKM_1_SEC_MECH          uint32 = 15 // SPKM security mechanism
	TAG_SPKM_2_SEC_MECH          uint32 = 16 // SPKM security mechanism
	TAG_KerberosV5_SEC_MECH      uint32 = 17 // Kerberos 5 security mechanism
	TAG_CSI_ECMA_SECRET_SEC_MECH uint32 = 18 // CSI ECMA security mechanism
	TAG_CSI_ECMA_HYBRID_SEC_MECH uint32 = 19 // CSI ECMA security mechanism
	TAG_SSL_SEC_TRANS            uint32 = 20 // SSL security transport
	TAG_CSI_ECMA_PUBLIC_SEC_MECH uint32 = 21 // CSI ECMA security mechanism
	TAG_GENERIC_SEC_MECH         uint32 = 22 // Generic security mechanism
	TAG_JAVA_CODEBASE            uint32 = 25 // Java codebase URL
	TAG_TRANSACTION_POLICY       uint32 = 26 // Transaction policy
	TAG_MESSAGE_ROUTERS          uint32 = 30 // Message routers
	TAG_OTS_POLICY               uint32 = 31 // OTS policy
	TAG_INV_POLICY               uint32 = 32 // Invocation policy
	TAG_CSI_SEC_MECH_LIST        uint32 = 33 // CSI security mechanism list
	TAG_NULL_TAG                 uint32 = 34 // Null tag
	TAG_SECIOP_SEC_TRANS         uint32 = 35 // SECIOP security transport
	TAG_TLS_SEC_TRANS            uint32 = 36 // TLS security transport
)

// IOR represents a CORBA Interoperable Object Reference. An IOR with zero
// profiles is a nil reference.
type IOR struct {
	TypeID   string
	Profiles []TaggedProfile
}

// NewIOR creates a new IOR with specified type ID
func NewIOR(typeID string) *IOR {
	return &IOR{
		TypeID:   typeID,
		Profiles: []TaggedProfile{},
	}
}

// IsNil reports whether the IOR carries no profiles.
func (ior *IOR) IsNil() bool {
	return ior == nil || len(ior.Profiles) == 0
}

// AddIIOPProfile adds a new IIOP profile to the IOR
func (ior *IOR) AddIIOPProfile(version IIOPVersion, host string, port uint16, objectKey []byte) {
	profile := createIIOPProfile(version, host, port, objectKey, nil, binary.BigEndian)
	ior.Profiles = append(ior.Profiles, profile)
}

// AddIIOPProfileWithComponents adds an IIOP profile carrying tagged components.
func (ior *IOR) AddIIOPProfileWithComponents(version IIOPVersion, host string, port uint16, objectKey []byte, components []TaggedComponent) {
	profile := createIIOPProfile(version, host, port, objectKey, components, binary.BigEndian)
	ior.Profiles = append(ior.Profiles, profile)
}

// createIIOPProfile creates a standard IIOP profile
func createIIOPProfile(version IIOPVersion, host string, port uint16, objectKey []byte, components []TaggedComponent, order binary.ByteOrder) TaggedProfile {
	bufSize := 2 + 4 + len(host) + 2 + 4 + len(objectKey)

	if IsIIOP11OrLater(version) {
		bufSize += 4
		for _, comp := range components {
			bufSize += 4 + 4 + len(comp.Component)
		}
	}

	buf := make([]byte, 0, bufSize)

	buf = append(buf, version.Major, version.Minor)

	hostLenBytes := make([]byte, 4)
	order.PutUint32(hostLenBytes, uint32(len(host)))
	buf = append(buf, hostLenBytes...)
	buf = append(buf, []byte(host)...)

	portBytes := make([]byte, 2)
	order.PutUint16(portBytes, port)
	buf = append(buf, portBytes...)

	keyLenBytes := make([]byte, 4)
	order.PutUint32(keyLenBytes, uint32(len(objectKey)))
	buf = append(buf, keyLenBytes...)
	buf = append(buf, objectKey...)

	if IsIIOP11OrLater(version) {
		compCountBytes := make([]byte, 4)
		order.PutUint32(compCountBytes, uint32(len(components)))
		buf = append(buf, compCountBytes...)

		for _, comp := range components {
			tagBytes := make([]byte, 4)
			order.PutUint32(tagBytes, comp.Tag)
			buf = append(buf, tagBytes...)

			componentData := comp.Component
			if comp.DecodedData != nil && ComponentNeedsEndianFlag(comp.Tag) {
				switch comp.Tag {
				case TAG_CODE_SETS:
					if codeSets, ok := comp.DecodedData.(*CodeSets); ok {
						componentData = EncodeCodeSetsComponent(codeSets, order)
					}
				case TAG_SSL_SEC_TRANS:
					if ssl, ok := comp.DecodedData.(*SSLData); ok {
						componentData = EncodeSSLComponent(ssl, order)
					}
				}
			}

			compLenBytes := make([]byte, 4)
			order.PutUint32(compLenBytes, uint32(len(componentData)))
			buf = append(buf, compLenBytes...)
			buf = append(buf, componentData...)
		}
	}

	return TaggedProfile{
		Tag:     TAG_INTERNET_IOP,
		Profile: buf,
	}
}

// encodeBody serializes the IOR body (without the leading endian flag octet)
// using the given byte order.
func (ior *IOR) encodeBody(order binary.ByteOrder) []byte {
	bufSize := 4 + len(ior.TypeID) + 4
	for _, profile := range ior.Profiles {
		bufSize += 4 + 4 + len(profile.Profile)
	}

	buf := make([]byte, 0, bufSize)

	typeIDLenBytes := make([]byte, 4)
	order.PutUint32(typeIDLenBytes, uint32(len(ior.TypeID)))
	buf = append(buf, typeIDLenBytes...)
	buf = append(buf, []byte(ior.TypeID)...)

	profileCountBytes := make([]byte, 4)
	order.PutUint32(profileCountBytes, uint32(len(ior.Profiles)))
	buf = append(buf, profileCountBytes...)

	for _, profile := range ior.Profiles {
		tagBytes := make([]byte, 4)
		order.PutUint32(tagBytes, profile.Tag)
		buf = append(buf, tagBytes...)

		profileLenBytes := make([]byte, 4)
		order.PutUint32(profileLenBytes, uint32(len(profile.Profile)))
		buf = append(buf, profileLenBytes...)
		buf = append(buf, profile.Profile...)
	}

	return buf
}

// Encode serializes the IOR as a leading endian-flag octet (0 = big-endian,
// 1 = little-endian) followed by the body encodeBody writes: the type ID as a
// 4-octet length plus its bytes (no NUL terminator), a 4-octet profile count,
// and each profile as tag, length and body octets. No CDR alignment padding
// is inserted, so this is not the standard CDR encapsulation of an IOR;
// decodeBody reads exactly this layout back.
func (ior *IOR) Encode() []byte {
	return AddByteOrderFlag(ior.encodeBody(binary.BigEndian), binary.BigEndian)
}

// decodeBody deserializes an IOR body (without the endian flag octet).
func decodeBody(data []byte, order binary.ByteOrder) (*IOR, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("data too short to be valid IOR")
	}

	ior := &IOR{}
	pos := 0

	typeIDLen := order.Uint32(data[pos : pos+4])
	pos += 4
	if pos+int(typeIDLen) > len(data) {
		return nil, fmt.Errorf("invalid type ID length")
	}
	ior.TypeID = string(data[pos : pos+int(typeIDLen)])
	pos += int(typeIDLen)

	if pos+4 > len(data) {
		return nil, fmt.Errorf("data too short to contain profile count")
	}
	profileCount := order.Uint32(data[pos : pos+4])
	pos += 4

	ior.Profiles = make([]TaggedProfile, 0, profileCount)
	for i := uint32(0); i < profileCount; i++ {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("data too short to contain profile #%d", i+1)
		}

		tag := order.Uint32(data[pos : pos+4])
		pos += 4

		profileLen := order.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(profileLen) > len(data) {
			return nil, fmt.Errorf("invalid profile data length for profile #%d", i+1)
		}
		profile := make([]byte, profileLen)
		copy(profile, data[pos:pos+int(profileLen)])
		pos += int(profileLen)

		ior.Profiles = append(ior.Profiles, TaggedProfile{Tag: tag, Profile: profile})
	}

	return ior, nil
}

// DecodeIOR deserializes a CDR-encapsulated IOR (leading endian flag octet
// followed by the body in that byte order).
func DecodeIOR(data []byte) (*IOR, error) {
	order, body, err := GetByteOrderFromData(data)
	if err != nil {
		return nil, err
	}
	return decodeBody(body, order)
}

// DecodeIIOPProfile extracts IIOP profile information
func DecodeIIOPProfile(profile []byte) (*ProfileBody_1_1, error) {
	return decodeIIOPProfile(profile, binary.BigEndian)
}

func decodeIIOPProfile(profile []byte, order binary.ByteOrder) (*ProfileBody_1_1, error) {
	if len(profile) < 8 {
		return nil, fmt.Errorf("profile data too short")
	}

	pos := 0

	version := IIOPVersion{Major: profile[pos], Minor: profile[pos+1]}
	pos += 2

	if pos+4 > len(profile) {
		return nil, fmt.Errorf("invalid profile format: missing host length")
	}
	hostLen := order.Uint32(profile[pos : pos+4])
	pos += 4
	if pos+int(hostLen) > len(profile) {
		return nil, fmt.Errorf("invalid host length")
	}
	host := string(profile[pos : pos+int(hostLen)])
	pos += int(hostLen)

	if pos+2 > len(profile) {
		return nil, fmt.Errorf("invalid profile format: missing port")
	}
	port := order.Uint16(profile[pos : pos+2])
	pos += 2

	if pos+4 > len(profile) {
		return nil, fmt.Errorf("invalid profile format: missing object key length")
	}
	keyLen := order.Uint32(profile[pos : pos+4])
	pos += 4
	if pos+int(keyLen) > len(profile) {
		return nil, fmt.Errorf("invalid object key length")
	}
	objectKey := make([]byte, keyLen)
	copy(objectKey, profile[pos:pos+int(keyLen)])
	pos += int(keyLen)

	result := &ProfileBody_1_1{
		Version:    version,
		Host:       host,
		Port:       port,
		ObjectKey:  objectKey,
		Components: []TaggedComponent{},
	}

	if IsIIOP11OrLater(version) {
		if pos+4 <= len(profile) {
			compCount := order.Uint32(profile[pos : pos+4])
			pos += 4

			for i := uint32(0); i < compCount; i++ {
				if pos+8 > len(profile) {
					return nil, fmt.Errorf("invalid component data in profile")
				}

				tag := order.Uint32(profile[pos : pos+4])
				pos += 4

				compLen := order.Uint32(profile[pos : pos+4])
				pos += 4

				if pos+int(compLen) > len(profile) {
					return nil, fmt.Errorf("invalid component length in profile")
				}

				compData := make([]byte, compLen)
				copy(compData, profile[pos:pos+int(compLen)])
				pos += int(compLen)

				component := TaggedComponent{Tag: tag, Component: compData}
				if ComponentNeedsEndianFlag(tag) {
					if decoded, err := DecodeComponent(tag, compData); err == nil {
						component.DecodedData = decoded
					}
				}

				result.Components = append(result.Components, component)
			}
		}
	}

	return result, nil
}

// ParseIOR parses a stringified "IOR:<hex>" format.
func ParseIOR(iorString string) (*IOR, error) {
	if !strings.HasPrefix(iorString, "IOR:") {
		return nil, fmt.Errorf("invalid IOR string format, must start with 'IOR:'")
	}

	hexString := strings.TrimPrefix(iorString, "IOR:")

	data, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, fmt.Errorf("invalid IOR hex format: %w", err)
	}

	return DecodeIOR(data)
}

// ToString converts an IOR to its stringified "IOR:<lower-case hex>" form.
func (ior *IOR) ToString() string {
	data := ior.Encode()
	return "IOR:" + hex.EncodeToString(data)
}

// ParseCorbaloc parses a "corbaloc:iiop:host:port/key[,iiop:host2:port2/key]"
// URL into an IOR carrying one IIOP profile per target.
func ParseCorbaloc(s string) (*IOR, error) {
	const prefix = "corbaloc:"
	if !strings.HasPrefix(s, prefix) {
		return nil, fmt.Errorf("invalid corbaloc string: missing %q prefix", prefix)
	}
	rest := strings.TrimPrefix(s, prefix)

	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return nil, fmt.Errorf("invalid corbaloc string: missing '/<key>'")
	}
	targetList := rest[:slash]
	key, err := unescapeCorbalocKey(rest[slash+1:])
	if err != nil {
		return nil, err
	}

	ior := NewIOR("")
	for _, target := range strings.Split(targetList, ",") {
		target = strings.TrimPrefix(target, "iiop:")
		host, port, err := parseHostPort(target)
		if err != nil {
			return nil, fmt.Errorf("invalid corbaloc target %q: %w", target, err)
		}
		ior.AddIIOPProfile(IIOPVersion{Major: 1, Minor: 2}, host, port, key)
	}

	if len(ior.Profiles) == 0 {
		return nil, fmt.Errorf("corbaloc string names no targets")
	}

	return ior, nil
}

// ParseCorbaname parses a "corbaname:<corbaloc-addr>#<stringified-name>" URL
// into the IOR of the naming service to contact plus the Name to resolve
// there.
func ParseCorbaname(s string) (*IOR, Name, error) {
	const prefix = "corbaname:"
	if !strings.HasPrefix(s, prefix) {
		return nil, nil, fmt.Errorf("invalid corbaname string: missing %q prefix", prefix)
	}
	rest := strings.TrimPrefix(s, prefix)

	addr := rest
	var nameStr string
	if hash := strings.IndexByte(rest, '#'); hash >= 0 {
		addr = rest[:hash]
		nameStr = rest[hash+1:]
	}

	ior, err := ParseCorbaloc("corbaloc:" + addr)
	if err != nil {
		return nil, nil, err
	}

	if nameStr == "" {
		return ior, nil, nil
	}

	name, err := parseStringName(nameStr)
	if err != nil {
		return nil, nil, err
	}
	return ior, name, nil
}

func parseHostPort(target string) (string, uint16, error) {
	idx := strings.LastIndexByte(target, ':')
	if idx < 0 {
		return "", 0, fmt.Errorf("missing port")
	}
	host := target[:idx]
	portStr := target[idx+1:]
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, uint16(port), nil
}

func unescapeCorbalocKey(key string) ([]byte, error) {
	// Percent-decode a url-encoded object key, tolerating raw bytes too.
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == '%' && i+2 < len(key) {
			b, err := hex.DecodeString(key[i+1 : i+3])
			if err != nil {
				return nil, fmt.Errorf("invalid percent-escape in key: %w", err)
			}
			out = append(out, b...)
			i += 2
			continue
		}
		out = append(out, key[i])
	}
	return out, nil
}

// GetIIOPProfiles returns all IIOP profiles in the IOR
func (ior *IOR) GetIIOPProfiles() ([]*ProfileBody_1_1, error) {
	result := make([]*ProfileBody_1_1, 0, len(ior.Profiles))

	for _, profile := range ior.Profiles {
		if profile.Tag == TAG_INTERNET_IOP {
			iiopProfile, err := DecodeIIOPProfile(profile.Profile)
			if err != nil {
				return nil, err
			}
			result = append(result, iiopProfile)
		}
	}

	return result, nil
}

// GetPrimaryIIOPProfile returns the primary (first) IIOP profile
func (ior *IOR) GetPrimaryIIOPProfile() (*ProfileBody_1_1, error) {
	for _, profile := range ior.Profiles {
		if profile.Tag == TAG_INTERNET_IOP {
			return DecodeIIOPProfile(profile.Profile)
		}
	}

	return nil, fmt.Errorf("no IIOP profile found in IOR")
}

// GetComponent retrieves a specific component from an IIOP profile
func (profile *ProfileBody_1_1) GetComponent(tag uint32) (*TaggedComponent, error) {
	for i, comp := range profile.Components {
		if comp.Tag == tag {
			return &profile.Components[i], nil
		}
	}
	return nil, fmt.Errorf("component with tag %d not found", tag)
}

// GetComponentData retrieves and decodes a specific component from an IIOP profile
func (profile *ProfileBody_1_1) GetComponentData(tag uint32) (interface{}, error) {
	comp, err := profile.GetComponent(tag)
	if err != nil {
		return nil, err
	}

	if comp.DecodedData != nil {
		return comp.DecodedData, nil
	}

	return DecodeComponent(tag, comp.Component)
}

// AddComponent adds a component to an IIOP profile
func (profile *ProfileBody_1_1) AddComponent(component TaggedComponent) {
	profile.Components = append(profile.Components, component)
}

// AddComponentData adds a component to an IIOP profile using the structured data
func (profile *ProfileBody_1_1) AddComponentData(tag uint32, data interface{}) {
	component := CreateTaggedComponent(tag, data)
	profile.AddComponent(component)
}

// GetCodeSets retrieves the CodeSets component if available
func (profile *ProfileBody_1_1) GetCodeSets() (*CodeSets, error) {
	data, err := profile.GetComponentData(TAG_CODE_SETS)
	if err != nil {
		return nil, err
	}

	if codeSets, ok := data.(*CodeSets); ok {
		return codeSets, nil
	}

	return nil, fmt.Errorf("invalid CodeSets component data")
}

// GetSSLData retrieves the SSL component if available
func (profile *ProfileBody_1_1) GetSSLData() (*SSLData, error) {
	data, err := profile.GetComponentData(TAG_SSL_SEC_TRANS)
	if err != nil {
		return nil, err
	}

	if ssl, ok := data.(*SSLData); ok {
		return ssl, nil
	}

	return nil, fmt.Errorf("invalid SSL component data")
}

// FormatRepositoryID formats a repository ID according to CORBA standards
// Format: "IDL:<interface_name>:<version>"
func FormatRepositoryID(interfaceName string, version string) string {
	if version == "" {
		version = "1.0"
	}

	if strings.HasPrefix(interfaceName, "IDL:") && strings.Contains(interfaceName, ":") {
		return interfaceName
	}

	name := strings.TrimPrefix(interfaceName, "IDL:")
	name = strings.Replace(name, ".", "/", -1)

	return fmt.Sprintf("IDL:%s:%s", name, version)
}

// ObjectKeyFromString creates an object key from a string
func ObjectKeyFromString(key string) []byte {
	return []byte(key)
}

// ObjectKeyToString converts an object key to a string
func ObjectKeyToString(key []byte) string {
	return string(key)
}

// GenerateObjectKey returns a 16-byte cryptographically random object key,
// optionally prefixed with a human-readable label for debuggability. Random
// keys resist the blind-guessing an enumerable, time-derived key would
// allow.
func GenerateObjectKey(prefix string) []byte {
	id := uuid.New()
	if prefix == "" {
		return id[:]
	}
	key := make([]byte, 0, len(prefix)+1+len(id))
	key = append(key, []byte(prefix)...)
	key = append(key, ':')
	key = append(key, id[:]...)
	return key
}

// CreateTaggedComponent creates a new TaggedComponent with proper endianness handling
func CreateTaggedComponent(tag uint32, data interface{}) TaggedComponent {
	component := TaggedComponent{
		Tag:         tag,
		DecodedData: data,
	}

	switch tag {
	case TAG_CODE_SETS:
		if codeSets, ok := data.(*CodeSets); ok {
			component.Component = EncodeCodeSetsComponent(codeSets, binary.BigEndian)
		}
	case TAG_SSL_SEC_TRANS:
		if ssl, ok := data.(*SSLData); ok {
			component.Component = EncodeSSLComponent(ssl, binary.BigEndian)
		}
	default:
		if rawData, ok := data.([]byte); ok {
			component.Component = rawData
		}
	}

	return component
}
