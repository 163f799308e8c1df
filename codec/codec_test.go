package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONObject(t *testing.T) {
	res, err := Decode(`{"bias_score": 0.42, "status": "PASS", "flags": ["gender"]}`)
	require.NoError(t, err)
	assert.Equal(t, 0.42, res["bias_score"])
	assert.Equal(t, "PASS", res["status"])
	assert.Equal(t, []any{"gender"}, res["flags"])
}

func TestDecodeFallsBackToTOON(t *testing.T) {
	frame := "audit[2]{metric,value,status}:\n  DPD,0.02,PASS\n  DI,0.85,PASS"

	res, err := Decode(frame)
	require.NoError(t, err)

	rows, ok := res["audit"].([]any)
	require.True(t, ok, "audit should decode as an array")
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"metric": "DPD", "value": 0.02, "status": "PASS"}, rows[0])
	assert.Equal(t, map[string]any{"metric": "DI", "value": 0.85, "status": "PASS"}, rows[1])

	// the same frame must not be claimed by the permissive key/value parser
	_, err = DecodeKV(frame)
	require.Error(t, err)
}

func TestDecodeFallsBackToKV(t *testing.T) {
	res, err := Decode("status: PASS\nscore: 0.9\ncount: 3\npassed: true")
	require.NoError(t, err)
	assert.Equal(t, "PASS", res["status"])
	assert.Equal(t, 0.9, res["score"])
	assert.Equal(t, 3, res["count"])
	assert.Equal(t, true, res["passed"])

	// flat key/value text is not TOON; it must reach the third parser
	_, err = DecodeTOON("status: PASS\nscore: 0.9")
	require.Error(t, err)
}

func TestDecodeUnparsableFrame(t *testing.T) {
	_, err := Decode("@@@ totally unparseable @@@")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no supported encoding")
}

func TestDecodeEmptyFrame(t *testing.T) {
	_, err := Decode("   ")
	require.Error(t, err)
}

func TestDecodeKVEmbeddedJSON(t *testing.T) {
	res, err := DecodeKV(`details: {"group": "age", "score": 1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"group": "age", "score": float64(1)}, res["details"])
}

func TestDecodeKVRejectsPartialMatches(t *testing.T) {
	_, err := DecodeKV("status: PASS\nthis line is garbage")
	require.Error(t, err)
}
