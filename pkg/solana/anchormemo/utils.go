package anchormemo

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
)

func putDiscriminator(dst []byte, v []byte, offset *int) {
	copy(dst[*offset:], v)
	*offset += 8
}

// Borsh strings are a u32 little endian byte length followed by the bytes.
func putString(dst []byte, v string, offset *int) {
	binary.LittleEndian.PutUint32(dst[*offset:], uint32(len(v)))
	*offset += 4

	copy(dst[*offset:], v)
	*offset += len(v)
}
func getString(src []byte, dst *string, offset *int) error {
	if len(src) < *offset+4 {
		return ErrInvalidInstructionData
	}

	length := int(binary.LittleEndian.Uint32(src[*offset:]))
	*offset += 4

	if length < 0 || len(src) < *offset+length {
		return ErrInvalidInstructionData
	}

	*dst = string(src[*offset : *offset+length])
	*offset += length
	return nil
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
