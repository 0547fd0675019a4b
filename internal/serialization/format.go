package serialization

import (
	"crypto/sha256"
	"time"
)

// Format constants.
const (
	MagicBytes      = "SYNB"
	FormatVersion   = 1    // Container layout version, independent of the library version
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	HeaderAlignment = 64   // Data section starts on a 64-byte boundary
	ChecksumSize    = 32   // SHA-256 checksum size
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// Flags for the fixed header.
const (
	FlagHasTensors  uint32 = 1 << 0 // bit 0: tensor data present
	FlagHasMetadata uint32 = 1 << 1 // bit 1: custom metadata present
)

// Header represents the JSON header of a saved envelope.
type Header struct {
	FormatVersion  int               `json:"format_version" yaml:"format_version"`
	Version        string            `json:"version" yaml:"version"`                 // Library compatibility stamp
	Plugin         string            `json:"plugin" yaml:"plugin"`                   // Registered plugin name
	Category       string            `json:"category" yaml:"category"`               // Plugin category
	CreatedAt      time.Time         `json:"created_at" yaml:"created_at"`           // When the envelope was saved
	AttributesSize int64             `json:"attributes_size" yaml:"attributes_size"` // Size of the msgpack block
	Tensors        []TensorMeta      `json:"tensors" yaml:"tensors"`
	Metadata       map[string]string `json:"metadata" yaml:"metadata,omitempty"`
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name" yaml:"name"`     // Tensor name (e.g., "components.means")
	DType  string `json:"dtype" yaml:"dtype"`   // Data type (e.g., "float64")
	Shape  []int  `json:"shape" yaml:"shape"`   // Tensor shape
	Offset int64  `json:"offset" yaml:"offset"` // Bytes from start of the data section
	Size   int64  `json:"size" yaml:"size"`     // Size in bytes
}

func computeChecksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

func alignedPadding(pos int64) int64 {
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}
