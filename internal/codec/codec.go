// Package codec converts document field values to and from the restricted
// blob-tag alphabet. Equality in the source domain maps to byte equality in
// the encoded domain, and numeric and temporal values are encoded so that
// byte-lexicographic order matches their natural order.
package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Codec errors.
var (
	// ErrUnsupported is returned when a value has no tag encoding.
	// Callers skip tagging the field and continue.
	ErrUnsupported = errors.New("codec: unsupported value type")
)

// MaxTagValueLength is the maximum length of a blob tag value in bytes.
const MaxTagValueLength = 256

// intWidth is the digit width of the order-preserving integer encoding.
// 19 digits cover the full int64 range.
const intWidth = 19

// hexDigits is the uppercase alphabet used by escape sequences.
const hexDigits = "0123456789ABCDEF"

// allowedByte reports whether b may appear verbatim in a tag value.
// The underscore is excluded: it introduces escape sequences.
func allowedByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z':
		return true
	case b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == ' ' || b == '.' || b == '-' || b == '/' || b == ':':
		return true
	default:
		return false
	}
}

// Escape rewrites s into the tag alphabet. Every underscore is doubled and
// every byte outside the alphabet becomes an underscore followed by two
// uppercase hex digits. Multi-byte UTF-8 sequences are escaped per byte.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_':
			b.WriteString("__")
		case allowedByte(c):
			b.WriteByte(c)
		default:
			b.WriteByte('_')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0F])
		}
	}
	return b.String()
}

// Unescape inverts Escape. An underscore followed by two hex digits yields
// the escaped byte; a doubled underscore collapses to one. A trailing or
// malformed escape passes the underscore through unchanged.
func Unescape(tag string) string {
	var b strings.Builder
	b.Grow(len(tag))
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if c != '_' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(tag) && tag[i+1] == '_' {
			b.WriteByte('_')
			i++
			continue
		}
		if i+2 < len(tag) {
			hi, okHi := hexVal(tag[i+1])
			lo, okLo := hexVal(tag[i+2])
			if okHi && okLo {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte('_')
	}
	return b.String()
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// Hash returns the lowercase hexadecimal SHA-256 of the UTF-8 bytes of s.
// Hashed tags support equality predicates only.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// EncodeInt64 encodes n as a fixed-width decimal whose byte order matches
// numeric order. Non-negative values are prefixed with '0' and zero-padded;
// negative values are prefixed with '-' and stored as the ten's complement
// of their magnitude, so that larger negatives sort later and every
// negative sorts before every non-negative ('-' < '0').
func EncodeInt64(n int64) string {
	if n >= 0 {
		return fmt.Sprintf("0%0*d", intWidth, n)
	}
	// 10^19 fits in a uint64; so does the magnitude of math.MinInt64.
	const pow19 = uint64(10_000_000_000_000_000_000)
	var mag uint64
	if n == math.MinInt64 {
		mag = uint64(math.MaxInt64) + 1
	} else {
		mag = uint64(-n)
	}
	return fmt.Sprintf("-%0*d", intWidth, pow19-mag)
}

// timeLayouts are the accepted ISO-8601 input forms, most specific first.
var timeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// canonicalTimeLayout is the encoded form: extended ISO-8601, UTC,
// millisecond precision. All of its characters are in the tag alphabet and
// byte order matches chronological order.
const canonicalTimeLayout = "2006-01-02T15:04:05.000Z"

// ParseTime parses s as an ISO-8601 timestamp. Date-only and zone-less
// forms are interpreted as UTC.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CanonicalTime formats t in the canonical encoded form.
func CanonicalTime(t time.Time) string {
	return t.UTC().Format(canonicalTimeLayout)
}

// Canonical converts v to its canonical pre-escape string form: timestamps
// to the canonical UTC millisecond layout, integral numbers to the
// order-preserving decimal encoding, other strings verbatim. Returns
// ErrUnsupported for values with no tag representation (booleans, maps,
// sequences, nil, non-integral floats).
func Canonical(v any) (string, error) {
	switch x := v.(type) {
	case string:
		if t, ok := ParseTime(x); ok {
			return CanonicalTime(t), nil
		}
		return x, nil
	case time.Time:
		return CanonicalTime(x), nil
	case int:
		return EncodeInt64(int64(x)), nil
	case int32:
		return EncodeInt64(int64(x)), nil
	case int64:
		return EncodeInt64(x), nil
	case float64:
		// JSON numbers arrive as float64; only integral values are
		// representable in the ordered encoding.
		if x == math.Trunc(x) && !math.IsInf(x, 0) && x >= math.MinInt64 && x <= math.MaxInt64 {
			return EncodeInt64(int64(x)), nil
		}
		return "", ErrUnsupported
	case float32:
		return Canonical(float64(x))
	default:
		return "", ErrUnsupported
	}
}

// Encode converts v into a tag value in the reversible form: canonical
// string form, then escaped into the tag alphabet. Returns ErrUnsupported
// when v has no representation or the escaped form would exceed the tag
// value limit. The empty string is unsupported: the substrate rejects
// empty tag values.
func Encode(v any) (string, error) {
	canon, err := Canonical(v)
	if err != nil {
		return "", err
	}
	enc := Escape(canon)
	if enc == "" || len(enc) > MaxTagValueLength {
		return "", ErrUnsupported
	}
	return enc, nil
}

// Decode inverts the reversible form back to the canonical string.
func Decode(tag string) string {
	return Unescape(tag)
}

// TagValue computes the tag value for v on a field with the given
// uniqueness. Unique fields whose reversible encoding would require escape
// sequences, or would overflow the tag value limit, use the hashed form so
// that distinct source values cannot collide after escaping. The same rule
// is applied on the write path and on probe queries, so both sides derive
// identical tags from identical values. The empty string is unsupported on
// any field: the substrate rejects empty tag values, so such fields stay
// untagged and their predicates evaluate in memory.
func TagValue(v any, unique bool) (string, error) {
	canon, err := Canonical(v)
	if err != nil {
		return "", err
	}
	enc := Escape(canon)
	if enc == "" {
		return "", fmt.Errorf("%w: empty string has no tag form", ErrUnsupported)
	}
	if unique && (enc != canon || len(enc) > MaxTagValueLength) {
		if s, ok := v.(string); ok {
			return Hash(s), nil
		}
		return Hash(canon), nil
	}
	if len(enc) > MaxTagValueLength {
		return "", ErrUnsupported
	}
	return enc, nil
}
