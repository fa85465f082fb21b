package service

import (
	"bytes"
	"encoding/binary"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
)

const (
	// headerMetaLength is the size of the fixed portion of the ciphertext
	// header: version (1) + magic (4) + extra header size (2).
	headerMetaLength = 7

	// currentHeaderVersion is the format version written on every encrypt.
	currentHeaderVersion = 3
)

// documentMagic marks a framed field as ours: the ASCII bytes "IRON".
var documentMagic = []byte{73, 82, 79, 78}

// GenerateHeader returns the fixed 7-byte header prepended to every encrypted
// field: current version, magic, and a zero extra-header size. The extra
// header size field is reserved for a future variable-length metadata block.
func GenerateHeader() []byte {
	header := make([]byte, headerMetaLength)
	header[0] = currentHeaderVersion
	copy(header[1:5], documentMagic)
	binary.BigEndian.PutUint16(header[5:7], 0)
	return header
}

// IsCiphertext reports whether bytes carry a recognized ciphertext header:
// at least one encrypted byte after the header, the current version, the
// magic, and a zero extra-header size. A nonzero extra-header size is a
// format this version does not understand, so it fails closed here rather
// than being skipped over.
func IsCiphertext(data []byte) bool {
	return len(data) > headerMetaLength &&
		data[0] == currentHeaderVersion &&
		bytes.Equal(data[1:5], documentMagic) &&
		binary.BigEndian.Uint16(data[5:7]) == 0
}

// ParseHeader validates the frame and returns the payload that follows the
// header (IV plus ciphertext). Returns ErrMalformedCiphertext when the bytes
// were not produced by this format.
func ParseHeader(data []byte) ([]byte, error) {
	if !IsCiphertext(data) {
		return nil, cryptoDomain.ErrMalformedCiphertext
	}
	headerSize := int(binary.BigEndian.Uint16(data[5:7]))
	return data[headerMetaLength+headerSize:], nil
}
