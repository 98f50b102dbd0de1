package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtstore/rtstore/pkg/errors"
)

var payload = bytes.Repeat([]byte(`{"table":"orders","nodes":["127.0.0.1:9191"]}`), 64)

func TestCompressorRoundTrip(t *testing.T) {
	algorithms := []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2}
	levels := []Level{Fastest, Default, Best}

	for _, algo := range algorithms {
		for _, level := range levels {
			comp, err := NewCompressor(&Config{Algorithm: algo, Level: level})
			require.NoError(t, err)
			assert.Equal(t, algo, comp.Algorithm())
			assert.Equal(t, level, comp.Level())

			t.Run(string(algo)+"/bytes", func(t *testing.T) {
				compressed, err := comp.Compress(payload)
				require.NoError(t, err)
				if algo != None {
					assert.Less(t, len(compressed), len(payload))
				}

				decompressed, err := comp.Decompress(compressed)
				require.NoError(t, err)
				assert.Equal(t, payload, decompressed)
			})

			t.Run(string(algo)+"/stream", func(t *testing.T) {
				var compressed bytes.Buffer
				require.NoError(t, comp.CompressStream(&compressed, bytes.NewReader(payload)))

				var decompressed bytes.Buffer
				require.NoError(t, comp.DecompressStream(&decompressed, &compressed))
				assert.Equal(t, payload, decompressed.Bytes())
			})
		}
	}
}

func TestNewCompressorDefaults(t *testing.T) {
	comp, err := NewCompressor(nil)
	require.NoError(t, err)
	assert.Equal(t, Zstd, comp.Algorithm())
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: "brotli"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", None, false},
		{"zstd", Zstd, false},
		{"lz4", LZ4, false},
		{"s2", S2, false},
		{"deflate", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
