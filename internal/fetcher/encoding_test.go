package fetcher

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_StripsUTF8BOM(t *testing.T) {
	data, err := io.ReadAll(Decode(strings.NewReader("\xEF\xBB\xBFObservationDate,Shorthand\n")))
	require.NoError(t, err)
	assert.Equal(t, "ObservationDate,Shorthand\n", string(data))
}

func TestDecode_UTF16LE(t *testing.T) {
	// "Q1" as UTF-16LE with BOM.
	data, err := io.ReadAll(Decode(strings.NewReader("\xFF\xFEQ\x001\x00")))
	require.NoError(t, err)
	assert.Equal(t, "Q1", string(data))
}

func TestDecode_PlainPassthrough(t *testing.T) {
	data, err := io.ReadAll(Decode(strings.NewReader("02/01/2009,Q2_09")))
	require.NoError(t, err)
	assert.Equal(t, "02/01/2009,Q2_09", string(data))
}
