package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Save encodes the envelope into a new byte slice.
func Save(e *Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the envelope to w.
//
// Output is deterministic for a given envelope: attribute keys are sorted and
// tensors are laid out in name order.
func Encode(w io.Writer, e *Envelope) error {
	if e == nil {
		return fmt.Errorf("envelope is nil")
	}

	attrs, err := encodeAttributes(e.Attributes)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(e.Tensors))
	for name, raw := range e.Tensors {
		if raw == nil {
			return fmt.Errorf("tensor %q is nil", name)
		}
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion:  FormatVersion,
		Version:        e.Version,
		Plugin:         e.Plugin,
		Category:       e.Category,
		CreatedAt:      e.CreatedAt.UTC(),
		AttributesSize: int64(len(attrs)),
		Tensors:        make([]TensorMeta, 0, len(names)),
		Metadata:       e.Metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Data section: attributes first, then tensors in name order.
	data := make([]byte, 0, len(attrs))
	data = append(data, attrs...)
	for _, name := range names {
		raw := e.Tensors[name]
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  raw.DType().String(),
			Shape:  []int(raw.Shape().Clone()),
			Offset: int64(len(data)),
			Size:   int64(raw.ByteSize()),
		})
		data = append(data, raw.Data()[:raw.ByteSize()]...)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	checksum := computeChecksum(data)

	fixedHeader := make([]byte, FixedHeaderSize)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersion))

	flags := uint32(0)
	if len(names) > 0 {
		flags |= FlagHasTensors
	}
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)

	// 0x0C-0x0F: Reserved (0)
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(data)))
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	padding := alignedPadding(int64(FixedHeaderSize) + int64(len(headerJSON)))
	if padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write data section: %w", err)
	}

	return nil
}

// encodeAttributes writes the attribute map in key order. SetSortMapKeys does
// not reach map[string][]byte, so the map is written entry by entry.
func encodeAttributes(attrs map[string][]byte) ([]byte, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeMapLen(len(keys)); err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	for _, k := range keys {
		if err := enc.EncodeString(k); err != nil {
			return nil, fmt.Errorf("failed to encode attribute %q: %w", k, err)
		}
		if err := enc.EncodeBytes(attrs[k]); err != nil {
			return nil, fmt.Errorf("failed to encode attribute %q: %w", k, err)
		}
	}
	return buf.Bytes(), nil
}
