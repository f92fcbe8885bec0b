package utils

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SixIDHookFunc is the signature of the NewSixID test hook. When it returns
// override=true its id is used instead of a random one.
type SixIDHookFunc func() (id SixID, override bool)

// NewSixIDHook lets tests take over ID generation, e.g. to force collisions.
var NewSixIDHook SixIDHookFunc

// SixID is a 6-byte random entity ID. It renders as 10 characters of
// Crockford Base32 in JSON and URLs, and is stored in Mongo as BinData
// with custom subtype 0x80.
type SixID [6]byte

// NewSixID returns a random SixID.
func NewSixID() SixID {
	if NewSixIDHook != nil {
		if id, override := NewSixIDHook(); override {
			return id
		}
	}

	var id SixID
	if _, err := rand.Read(id[:]); err != nil {
		for i := range id {
			id[i] = 0
		}
	}
	return id
}

// ParseSixID parses the Crockford Base32 string form of a SixID.
func ParseSixID(s string) (SixID, error) {
	return ParseCrockfordSixID(s)
}

const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockfordDecodeMap map[byte]byte

func init() {
	crockfordDecodeMap = make(map[byte]byte, 32)
	for i := range crockfordAlphabet {
		crockfordDecodeMap[crockfordAlphabet[i]] = byte(i)
	}

	// Lowercase letters decode too.
	lower := strings.ToLower(crockfordAlphabet)
	for i := range lower {
		if i >= 10 {
			crockfordDecodeMap[lower[i]] = byte(i)
		}
	}

	// Crockford's confusable characters.
	crockfordDecodeMap['o'] = crockfordDecodeMap['O']
	crockfordDecodeMap['i'] = crockfordDecodeMap['1']
	crockfordDecodeMap['l'] = crockfordDecodeMap['1']
}

// String encodes the ID as uppercase Crockford Base32. 48 bits always fit
// exactly in 10 characters.
func (u SixID) String() string {
	result := make([]byte, 10)
	var bits, offset uint
	resultIndex := 0

	for i := 0; i < 6; i++ {
		bits |= uint(u[i]) << offset
		offset += 8

		for offset >= 5 {
			result[resultIndex] = crockfordAlphabet[bits&0x1F]
			resultIndex++
			bits >>= 5
			offset -= 5
		}
	}

	if offset > 0 {
		result[resultIndex] = crockfordAlphabet[bits&0x1F]
		resultIndex++
	}

	return string(result[:resultIndex])
}

// ParseCrockfordSixID decodes a Crockford Base32 string into a SixID.
// Hyphens and spaces are ignored; an empty string yields the zero ID.
func ParseCrockfordSixID(s string) (SixID, error) {
	if s == "" {
		return SixID{}, nil
	}

	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")

	if len(s) != 10 {
		return SixID{}, errors.New("invalid Crockford Base32 SixID: string length must be 10")
	}

	var bits uint64
	var offset uint
	bytes := make([]byte, 6)
	byteIndex := 0

	for i := 0; i < 10; i++ {
		val, ok := crockfordDecodeMap[s[i]]
		if !ok {
			return SixID{}, errors.New("invalid character in Crockford Base32 SixID")
		}

		bits |= uint64(val) << offset
		offset += 5

		for offset >= 8 && byteIndex < 6 {
			bytes[byteIndex] = byte(bits & 0xFF)
			byteIndex++
			bits >>= 8
			offset -= 8
		}
	}

	if byteIndex != 6 {
		return SixID{}, errors.New("invalid Crockford Base32 SixID: couldn't decode 6 bytes")
	}

	var id SixID
	copy(id[:], bytes)
	return id, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (u SixID) MarshalBinary() ([]byte, error) {
	return u[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (u *SixID) UnmarshalBinary(data []byte) error {
	if len(data) != 6 {
		return errors.New("invalid SixID length")
	}
	copy((*u)[:], data)
	return nil
}

// GetBSON renders the ID as BinData with custom subtype 0x80.
func (u SixID) GetBSON() (interface{}, error) {
	return primitive.Binary{
		Subtype: 0x80,
		Data:    u[:],
	}, nil
}

// MarshalJSON renders the ID as its Crockford Base32 string.
func (u SixID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON parses the Crockford Base32 string form.
func (u *SixID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSixID(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// SetBSON implements the bson.Setter interface. Only BinData with subtype
// 0x80 and exactly 6 bytes is accepted; BSON null decodes to the zero ID.
func (u *SixID) SetBSON(raw interface{}) error {
	if raw == nil {
		*u = SixID{}
		return nil
	}

	bin, ok := raw.(primitive.Binary)
	if !ok {
		*u = SixID{}
		return errors.New("invalid BSON type for SixID: expected primitive.Binary")
	}
	if bin.Subtype != 0x80 || len(bin.Data) != 6 {
		*u = SixID{}
		return errors.New("invalid BSON binary data for SixID: incorrect subtype or length")
	}
	copy((*u)[:], bin.Data)
	return nil
}
