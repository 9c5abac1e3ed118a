// Package codec packs sample series into compact zstd-compressed blobs for
// the stream table and the stream cache.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

var byteOrder = binary.LittleEndian

// formatVersion is the first byte of every encoded blob
const formatVersion byte = 1

// ErrUnknownFormat is returned for blobs written by a newer encoder
var ErrUnknownFormat = errors.New("codec: unknown blob format")

// Codec compresses sample series. It is safe for concurrent use.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New creates a Codec with default zstd settings
func New() (*Codec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// Encode packs the series in order. Each series is a uint32 length followed
// by float32 samples.
func (c *Codec) Encode(series ...[]float64) ([]byte, error) {
	if len(series) > math.MaxUint8 {
		return nil, fmt.Errorf("too many series: %d", len(series))
	}

	var buf bytes.Buffer
	buf.WriteByte(formatVersion)

	if err := binary.Write(&buf, byteOrder, uint8(len(series))); err != nil {
		return nil, err
	}
	for _, s := range series {
		if err := writeSeries(&buf, s); err != nil {
			return nil, err
		}
	}

	raw := buf.Bytes()
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Decode reverses Encode. An empty blob decodes to no series.
func (c *Codec) Decode(blob []byte) ([][]float64, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	raw, err := c.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}

	r := bytes.NewReader(raw)
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, ErrUnknownFormat
	}

	var count uint8
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, err
	}

	series := make([][]float64, count)
	for i := range series {
		if series[i], err = readSeries(r); err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
	}
	return series, nil
}

// Close releases the encoder and decoder goroutines
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}

func writeSeries(w io.Writer, s []float64) error {
	if uint64(len(s)) > math.MaxUint32 {
		return fmt.Errorf("series too long: %d samples", len(s))
	}
	if err := binary.Write(w, byteOrder, uint32(len(s))); err != nil {
		return err
	}
	packed := make([]float32, len(s))
	for i, v := range s {
		packed[i] = float32(v)
	}
	return binary.Write(w, byteOrder, packed)
}

func readSeries(r *bytes.Reader) ([]float64, error) {
	var length uint32
	if err := binary.Read(r, byteOrder, &length); err != nil {
		return nil, err
	}
	if int64(length)*4 > int64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	packed := make([]float32, length)
	if err := binary.Read(r, byteOrder, packed); err != nil {
		return nil, err
	}
	s := make([]float64, length)
	for i, v := range packed {
		s[i] = float64(v)
	}
	return s, nil
}
