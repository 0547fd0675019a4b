package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/born-ml/synth/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func sampleEnvelope(t *testing.T) *Envelope {
	t.Helper()
	env := NewEnvelope("gaussian_mixture", "generic")
	env.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, env.Set("n_components", 3))
	require.NoError(t, env.Set("fitted", true))
	env.Metadata["origin"] = "test"

	means, err := tensor.FromFloat64(tensor.Shape{3, 2}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	counts, err := tensor.FromInt64(tensor.Shape{3}, []int64{10, 20, 30})
	require.NoError(t, err)
	env.SetTensor("means", means)
	env.SetTensor("counts", counts)
	return env
}

func TestRoundTrip(t *testing.T) {
	env := sampleEnvelope(t)

	data, err := Save(env)
	require.NoError(t, err)
	assert.Equal(t, MagicBytes, string(data[:4]))

	loaded, err := Load(data)
	require.NoError(t, err)

	assert.Equal(t, env.Version, loaded.Version)
	assert.Equal(t, env.Plugin, loaded.Plugin)
	assert.Equal(t, env.Category, loaded.Category)
	assert.True(t, env.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, env.Keys(), loaded.Keys())
	assert.Equal(t, "test", loaded.Metadata["origin"])

	var n int
	require.NoError(t, loaded.Get("n_components", &n))
	assert.Equal(t, 3, n)

	for name, want := range env.Tensors {
		got, err := loaded.Tensor(name)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), name)
	}
}

func TestRoundTripEmpty(t *testing.T) {
	env := NewEnvelope("dummy_sampler", "generic")
	data, err := Save(env)
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)
	assert.Empty(t, loaded.Keys())
	assert.Equal(t, "dummy_sampler", loaded.Plugin)
}

func TestSaveIsDeterministic(t *testing.T) {
	env := sampleEnvelope(t)
	a, err := Save(env)
	require.NoError(t, err)
	b, err := Save(env)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSaveIsDeterministicManyAttributes(t *testing.T) {
	env := NewEnvelope("marginal_distributions", "generic")
	for i := 0; i < 64; i++ {
		require.NoError(t, env.Set(fmt.Sprintf("attr_%02d", i), i))
	}

	first, err := Save(env)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Save(env)
		require.NoError(t, err)
		require.Equal(t, first, again, "save %d", i)
	}

	block, err := encodeAttributes(env.Attributes)
	require.NoError(t, err)
	dec := msgpack.NewDecoder(bytes.NewReader(block))
	n, err := dec.DecodeMapLen()
	require.NoError(t, err)
	require.Equal(t, 64, n)
	prev := ""
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		require.NoError(t, err)
		assert.Less(t, prev, key)
		prev = key
		_, err = dec.DecodeBytes()
		require.NoError(t, err)
	}
}

func TestDataSectionAligned(t *testing.T) {
	data, err := Save(sampleEnvelope(t))
	require.NoError(t, err)

	headerSize := binary.LittleEndian.Uint64(data[16:24])
	dataSize := binary.LittleEndian.Uint64(data[24:32])
	start := FixedHeaderSize + int(headerSize)
	start += int(alignedPadding(int64(start)))
	assert.Zero(t, start%HeaderAlignment)
	assert.Equal(t, len(data), start+int(dataSize))
}

func TestLoadRejectsCorruption(t *testing.T) {
	data, err := Save(sampleEnvelope(t))
	require.NoError(t, err)

	t.Run("checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-1] ^= 0xff
		_, err := Load(bad)
		assert.True(t, errors.Is(err, ErrChecksumMismatch))
	})

	t.Run("checksum skipped", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-1] ^= 0xff
		_, err := Decode(bytes.NewReader(bad), DecodeOptions{SkipChecksumValidation: true})
		assert.NoError(t, err)
	})

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		copy(bad, "NOPE")
		_, err := Load(bad)
		assert.True(t, errors.Is(err, ErrInvalidMagic))
	})

	t.Run("format version", func(t *testing.T) {
		bad := bytes.Clone(data)
		binary.LittleEndian.PutUint32(bad[4:8], 99)
		_, err := Load(bad)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	})

	t.Run("header too large", func(t *testing.T) {
		bad := bytes.Clone(data)
		binary.LittleEndian.PutUint64(bad[16:24], MaxHeaderSize+1)
		_, err := Load(bad)
		assert.True(t, errors.Is(err, ErrHeaderTooLarge))
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Load(data[:len(data)-4])
		assert.True(t, errors.Is(err, ErrTruncated))

		_, err = Load(data[:10])
		assert.True(t, errors.Is(err, ErrTruncated))
	})
}

// rewriteHeader re-encodes the JSON header of a saved envelope after edit.
// The data section and its checksum are kept as they are.
func rewriteHeader(t *testing.T, data []byte, edit func(*Header)) []byte {
	t.Helper()
	header, err := ReadHeader(bytes.NewReader(data))
	require.NoError(t, err)

	start := int64(FixedHeaderSize) + int64(binary.LittleEndian.Uint64(data[16:24]))
	start += alignedPadding(start)
	dataSection := data[start:]

	edit(&header)
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)

	out := bytes.Clone(data[:FixedHeaderSize])
	binary.LittleEndian.PutUint64(out[16:24], uint64(len(headerJSON)))
	out = append(out, headerJSON...)
	out = append(out, make([]byte, alignedPadding(int64(len(out))))...)
	return append(out, dataSection...)
}

func TestLoadRejectsOutOfRangeTensors(t *testing.T) {
	env := NewEnvelope("uniform_sampler", "generic")
	raw, err := tensor.FromFloat64(tensor.Shape{1}, []float64{1})
	require.NoError(t, err)
	env.SetTensor("low", raw)
	data, err := Save(env)
	require.NoError(t, err)

	cases := []struct {
		name string
		edit func(*Header)
	}{
		{"offset near max int64", func(h *Header) { h.Tensors[0].Offset = math.MaxInt64 - 3 }},
		{"offset past data", func(h *Header) { h.Tensors[0].Offset = 1 << 40 }},
		{"shape overflows", func(h *Header) {
			h.Tensors[0].Shape = []int{1 << 32, 1 << 32}
			h.Tensors[0].Size = 0
		}},
		{"shape larger than data", func(h *Header) {
			h.Tensors[0].Shape = []int{1 << 20}
			h.Tensors[0].Size = 8 << 20
		}},
	}
	levels := []ValidationLevel{ValidationStrict, ValidationNormal, ValidationNone}
	for _, tc := range cases {
		bad := rewriteHeader(t, data, tc.edit)
		for _, level := range levels {
			t.Run(fmt.Sprintf("%s/level %d", tc.name, level), func(t *testing.T) {
				var loaded *Envelope
				require.NotPanics(t, func() {
					loaded, err = Decode(bytes.NewReader(bad), DecodeOptions{ValidationLevel: level})
				})
				assert.Nil(t, loaded)
				var validationErr *ValidationError
				require.True(t, errors.As(err, &validationErr), "got %v", err)
				assert.Contains(t, []string{"out_of_bounds", "size_mismatch"}, validationErr.Type)
			})
		}
	}
}

func TestLoadShortInputWithLargeHeaderSize(t *testing.T) {
	data, err := Save(sampleEnvelope(t))
	require.NoError(t, err)

	bad := bytes.Clone(data[:FixedHeaderSize])
	binary.LittleEndian.PutUint64(bad[16:24], MaxHeaderSize)
	_, err = Load(bad)
	assert.True(t, errors.Is(err, ErrTruncated))

	_, err = ReadHeader(bytes.NewReader(bad))
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestLoadKeepsForeignVersion(t *testing.T) {
	env := sampleEnvelope(t)
	env.Version = "invalid"

	data, err := Save(env)
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, "invalid", loaded.Version)
	assert.True(t, errors.Is(CheckVersion(loaded), ErrVersionMismatch))
}

func TestReadHeader(t *testing.T) {
	data, err := Save(sampleEnvelope(t))
	require.NoError(t, err)

	header, err := ReadHeader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, header.FormatVersion)
	assert.Equal(t, "gaussian_mixture", header.Plugin)
	require.Len(t, header.Tensors, 2)
	assert.Equal(t, "counts", header.Tensors[0].Name)
	assert.Equal(t, "means", header.Tensors[1].Name)
	assert.Equal(t, header.AttributesSize, header.Tensors[0].Offset)
}

func TestSaveRejectsBadTensorName(t *testing.T) {
	env := NewEnvelope("p", "generic")
	raw, err := tensor.FromFloat64(tensor.Shape{1}, []float64{1})
	require.NoError(t, err)
	env.SetTensor("../escape", raw)

	_, err = Save(env)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "invalid_name", validationErr.Type)
}
