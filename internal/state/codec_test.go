package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// v1State is the baseline schema used across codec tests.
type v1State struct {
	Counter int    `json:"counter"`
	Name    string `json:"name"`
}

func (v1State) StateVersion() int { return 1 }

// v2State adds an optional config section on top of v1.
type v2State struct {
	Counter int      `json:"counter"`
	Name    string   `json:"name"`
	Config  v2Config `json:"config"`
}

func (v2State) StateVersion() int { return 2 }

type v2Config struct {
	Theme string `json:"theme"`
}

func defaultV2Config() v2Config {
	return v2Config{Theme: "light"}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original := v1State{Counter: 10, Name: "x"}

	data, err := Encode(original)
	require.NoError(t, err)

	var decoded v1State
	require.NoError(t, Decode(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestDecode_NewerReaderAppliesDefaults(t *testing.T) {
	// Schema-1 bytes decoded by a schema-2 reader: the new config field
	// keeps the prototype's declared default.
	data, err := Encode(v1State{Counter: 10, Name: "x"})
	require.NoError(t, err)

	decoded := v2State{Config: defaultV2Config()}
	require.NoError(t, Decode(data, &decoded))

	assert.Equal(t, 10, decoded.Counter)
	assert.Equal(t, "x", decoded.Name)
	assert.Equal(t, defaultV2Config(), decoded.Config)
}

func TestDecode_OlderReaderIgnoresUnknownFields(t *testing.T) {
	data, err := Encode(v2State{Counter: 3, Name: "y", Config: defaultV2Config()})
	require.NoError(t, err)

	var decoded v1State
	require.NoError(t, Decode(data, &decoded))
	assert.Equal(t, v1State{Counter: 3, Name: "y"}, decoded)
}

func TestDecode_CorruptBytes(t *testing.T) {
	var decoded v1State
	assert.Error(t, Decode([]byte("not json"), &decoded))
	assert.Error(t, Decode([]byte(`{"version":1}`), &decoded))
}

func TestDecodeVersion(t *testing.T) {
	data, err := Encode(v2State{Counter: 1})
	require.NoError(t, err)

	version, err := DecodeVersion(data)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, err = DecodeVersion([]byte("garbage"))
	assert.Error(t, err)
}

func TestEncode_NilState(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestEncode_DeterministicPayload(t *testing.T) {
	a, err := Encode(v1State{Counter: 5, Name: "same"})
	require.NoError(t, err)
	b, err := Encode(v1State{Counter: 5, Name: "same"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
