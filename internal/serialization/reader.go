package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/born-ml/synth/internal/tensor"
	"github.com/vmihailenco/msgpack/v5"
)

// DecodeOptions configures Decode.
type DecodeOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Load decodes an envelope from data with strict validation.
//
// Load does not apply the library version gate; see CheckVersion.
func Load(data []byte) (*Envelope, error) {
	return Decode(bytes.NewReader(data), DecodeOptions{ValidationLevel: ValidationStrict})
}

// fixedHeader is the parsed form of the 64-byte prefix.
type fixedHeader struct {
	flags      uint32
	headerSize uint64
	dataSize   uint64
	checksum   [ChecksumSize]byte
}

func readFixedHeader(r io.Reader) (fixedHeader, error) {
	var fh fixedHeader

	buf := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fh, fmt.Errorf("%w: failed to read fixed header: %w", ErrTruncated, err)
	}

	if string(buf[0:4]) != MagicBytes {
		return fh, ErrInvalidMagic
	}

	formatVersion := binary.LittleEndian.Uint32(buf[4:8])
	if formatVersion != FormatVersion {
		return fh, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedFormat, formatVersion, FormatVersion)
	}

	fh.flags = binary.LittleEndian.Uint32(buf[8:12])
	fh.headerSize = binary.LittleEndian.Uint64(buf[16:24])
	fh.dataSize = binary.LittleEndian.Uint64(buf[24:32])
	copy(fh.checksum[:], buf[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if fh.headerSize > MaxHeaderSize {
		return fh, ErrHeaderTooLarge
	}
	if fh.dataSize > MaxDataSize {
		return fh, ErrDataTooLarge
	}

	return fh, nil
}

func readHeader(r io.Reader, fh fixedHeader) (Header, error) {
	var header Header

	// Read through a limit so a short input cannot force a MaxHeaderSize allocation.
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	headerBytes, err := io.ReadAll(io.LimitReader(r, int64(fh.headerSize)))
	if err != nil {
		return header, fmt.Errorf("%w: failed to read header JSON: %w", ErrTruncated, err)
	}
	if uint64(len(headerBytes)) != fh.headerSize {
		return header, fmt.Errorf("%w: header JSON has %d of %d bytes", ErrTruncated, len(headerBytes), fh.headerSize)
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return header, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	return header, nil
}

// ReadHeader reads only the fixed and JSON headers from r.
func ReadHeader(r io.Reader) (Header, error) {
	fh, err := readFixedHeader(r)
	if err != nil {
		return Header{}, err
	}
	return readHeader(r, fh)
}

// Decode reads a complete envelope from r.
//
//nolint:gocyclo,cyclop // Sequential container parsing
func Decode(r io.Reader, opts DecodeOptions) (*Envelope, error) {
	fh, err := readFixedHeader(r)
	if err != nil {
		return nil, err
	}

	header, err := readHeader(r, fh)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	padding := alignedPadding(int64(FixedHeaderSize) + int64(fh.headerSize))
	if padding > 0 {
		if _, err := io.CopyN(io.Discard, r, padding); err != nil {
			return nil, fmt.Errorf("%w: failed to skip padding: %w", ErrTruncated, err)
		}
	}

	//nolint:gosec // G115: dataSize is bounded by MaxDataSize
	dataSize := int64(fh.dataSize)
	data, err := io.ReadAll(io.LimitReader(r, dataSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read data section: %w", err)
	}
	if int64(len(data)) != dataSize {
		return nil, fmt.Errorf("%w: data section has %d of %d bytes", ErrTruncated, len(data), dataSize)
	}

	if !opts.SkipChecksumValidation {
		if computeChecksum(data) != fh.checksum {
			return nil, ErrChecksumMismatch
		}
	}

	if err := ValidateHeader(&header, dataSize, opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	env := &Envelope{
		Version:    header.Version,
		Plugin:     header.Plugin,
		Category:   header.Category,
		CreatedAt:  header.CreatedAt,
		Attributes: make(map[string][]byte),
		Tensors:    make(map[string]*tensor.RawTensor, len(header.Tensors)),
		Metadata:   header.Metadata,
	}
	if env.Metadata == nil {
		env.Metadata = make(map[string]string)
	}

	attrBlock, err := section(data, 0, header.AttributesSize, "attributes")
	if err != nil {
		return nil, err
	}
	if len(attrBlock) > 0 {
		if err := msgpack.Unmarshal(attrBlock, &env.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes: %w", err)
		}
	}

	for _, meta := range header.Tensors {
		if _, dup := env.Attributes[meta.Name]; dup {
			return nil, &ValidationError{
				Type:    "duplicate_name",
				Tensor:  meta.Name,
				Details: "key is stored both as an attribute and as a tensor",
			}
		}
		raw, err := decodeTensor(data, meta)
		if err != nil {
			return nil, err
		}
		env.Tensors[meta.Name] = raw
	}

	return env, nil
}

func decodeTensor(data []byte, meta TensorMeta) (*tensor.RawTensor, error) {
	dtype, ok := tensor.ParseDataType(meta.DType)
	if !ok {
		return nil, fmt.Errorf("unsupported dtype %q for tensor %s", meta.DType, meta.Name)
	}

	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", meta.Name, err)
	}

	n, ok := shape.NumElementsWithin(len(data) / dtype.Size())
	if !ok {
		return nil, &ValidationError{
			Type:    "out_of_bounds",
			Tensor:  meta.Name,
			Details: fmt.Sprintf("shape %v of %s exceeds data_size %d", meta.Shape, meta.DType, len(data)),
		}
	}
	if want := int64(n * dtype.Size()); want != meta.Size {
		return nil, &ValidationError{
			Type:    "size_mismatch",
			Tensor:  meta.Name,
			Details: fmt.Sprintf("shape %v of %s needs %d bytes, header says %d", meta.Shape, meta.DType, want, meta.Size),
		}
	}

	chunk, err := section(data, meta.Offset, meta.Size, meta.Name)
	if err != nil {
		return nil, err
	}

	raw, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor %s: %w", meta.Name, err)
	}
	copy(raw.Data(), chunk)
	return raw, nil
}

// section bounds-checks a slice of the data section regardless of validation level.
func section(data []byte, offset, size int64, name string) ([]byte, error) {
	n := int64(len(data))
	if offset < 0 || size < 0 || offset > n || size > n-offset {
		return nil, &ValidationError{
			Type:    "out_of_bounds",
			Tensor:  name,
			Details: fmt.Sprintf("offset %d + size %d > data_size %d", offset, size, len(data)),
		}
	}
	return data[offset : offset+size], nil
}
