package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_EncodeDecode(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	watts := make([]float64, 3600)
	for i := range watts {
		watts[i] = float64(150 + i%200)
	}
	hr := []float64{120, 121, 125}

	blob, err := c.Encode(watts, hr, nil)
	require.NoError(t, err)
	assert.Less(t, len(blob), len(watts)*4, "blob should be compressed")

	series, err := c.Decode(blob)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, watts, series[0])
	assert.Equal(t, hr, series[1])
	assert.Empty(t, series[2])
}

func TestCodec_EncodeTooManySeries(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Encode(make([][]float64, 256)...)
	assert.Error(t, err)

	blob, err := c.Encode(make([][]float64, 255)...)
	require.NoError(t, err)
	decoded, err := c.Decode(blob)
	require.NoError(t, err)
	assert.Len(t, decoded, 255)
}

func TestCodec_DecodeEmpty(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	series, err := c.Decode(nil)
	assert.NoError(t, err)
	assert.Nil(t, series)
}

func TestCodec_DecodeUnknownVersion(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	blob := c.encoder.EncodeAll([]byte{99, 0}, nil)
	_, err = c.Decode(blob)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestCodec_DecodeCorrupt(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Decode([]byte("not zstd"))
	assert.Error(t, err)

	// declared length larger than payload
	truncated := c.encoder.EncodeAll([]byte{formatVersion, 1, 0xff, 0xff, 0, 0}, nil)
	_, err = c.Decode(truncated)
	assert.Error(t, err)
}
