package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"with space",
		"a.b-c/d:e",
		"under_score",
		"double__underscore",
		"trailing_",
		"x@y.com",
		"comma,semi;pipe|",
		"ünïcøde 漢字",
		"quote'and\"more",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			enc := Escape(in)
			assert.Regexp(t, `^[A-Za-z0-9 .\-/:_]*$`, enc)
			assert.Equal(t, in, Unescape(enc))
		})
	}
}

func TestEscapeKnownForms(t *testing.T) {
	assert.Equal(t, "a__b", Escape("a_b"))
	assert.Equal(t, "x_40y.com", Escape("x@y.com"))
	assert.Equal(t, "_2C", Escape(","))
}

func TestUnescapeMalformed(t *testing.T) {
	// A lone trailing underscore or a non-hex escape passes through.
	assert.Equal(t, "abc_", Unescape("abc_"))
	assert.Equal(t, "_zz", Unescape("_zz"))
}

func TestHash(t *testing.T) {
	sum := sha256.Sum256([]byte("X@Y.com"))
	assert.Equal(t, hex.EncodeToString(sum[:]), Hash("X@Y.com"))
}

func TestEncodeInt64Ordering(t *testing.T) {
	values := []int64{math.MinInt64, -1000000, -10, -9, -1, 0, 1, 9, 10, 99, 100, 1 << 40, math.MaxInt64}
	encoded := make([]string, len(values))
	for i, v := range values {
		encoded[i] = EncodeInt64(v)
	}
	require.True(t, sort.StringsAreSorted(encoded), "encoded integers must sort in numeric order: %v", encoded)
}

func TestEncodeInt64Alphabet(t *testing.T) {
	for _, v := range []int64{math.MinInt64, -1, 0, 42, math.MaxInt64} {
		assert.Regexp(t, `^[-0][0-9]{19}$`, EncodeInt64(v))
	}
}

func TestCanonicalTime(t *testing.T) {
	canon, err := Canonical("2024-03-01T12:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T10:30:00.000Z", canon)

	canon, err = Canonical("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T00:00:00.000Z", canon)

	canon, err = Canonical(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T10:30:00.000Z", canon)
}

func TestTimeOrdering(t *testing.T) {
	a, _ := Canonical("2023-12-31T23:59:59Z")
	b, _ := Canonical("2024-01-01T00:00:00Z")
	assert.Less(t, a, b)
}

func TestCanonicalUnsupported(t *testing.T) {
	for _, v := range []any{nil, true, 3.14, []string{"a"}, map[string]any{"k": 1}} {
		_, err := Canonical(v)
		assert.ErrorIs(t, err, ErrUnsupported, "value %v", v)
	}
}

func TestEncodeNumbersViaFloat(t *testing.T) {
	// JSON decoding yields float64; integral values take the ordered form.
	enc25, err := Encode(float64(25))
	require.NoError(t, err)
	enc30, err := Encode(float64(30))
	require.NoError(t, err)
	assert.Less(t, enc25, enc30)
}

func TestEncodeLengthLimit(t *testing.T) {
	long := make([]byte, MaxTagValueLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := Encode(string(long))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEmptyStringHasNoTagForm(t *testing.T) {
	// The substrate rejects empty tag values, so neither form exists.
	_, err := Encode("")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = TagValue("", false)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = TagValue("", true)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestTagValueHashedForm(t *testing.T) {
	// Unique fields with characters outside the alphabet take the hashed form.
	v, err := TagValue("X@Y.com", true)
	require.NoError(t, err)
	assert.Equal(t, Hash("X@Y.com"), v)

	// Clean unique values keep the reversible form.
	v, err = TagValue("plain-value", true)
	require.NoError(t, err)
	assert.Equal(t, "plain-value", v)

	// Non-unique fields always use the reversible form.
	v, err = TagValue("x@y.com", false)
	require.NoError(t, err)
	assert.Equal(t, "x_40y.com", v)
}

func TestTagValueOverlongUnique(t *testing.T) {
	long := make([]byte, MaxTagValueLength*2)
	for i := range long {
		long[i] = 'b'
	}
	v, err := TagValue(string(long), true)
	require.NoError(t, err)
	assert.Equal(t, Hash(string(long)), v)
}
