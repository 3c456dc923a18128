// Package wasmbin is a minimal WebAssembly 1.0 binary encoder: LEB128
// integers, value types, and a section/module builder. It has no decoder
// and no validator — the code generator only ever writes bytes forward.
//
// The LEB128 encodings are written against the byte sequences wazero's own
// encoder asserts in internal/leb128/leb128_test.go (e.g. EncodeUint32(624485)
// == {0xe5, 0x8e, 0x26}); wazero's non-test encoder source was not present
// in the retrieval pack, so this is a fresh implementation of the same
// well-known algorithm, not copied code.
package wasmbin

// PutUvarint appends an unsigned LEB128 encoding of v to buf.
func PutUvarint(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
			continue
		}
		buf = append(buf, b)
		return buf
	}
}

// PutVarint appends a signed LEB128 encoding of v to buf.
func PutVarint(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			buf = append(buf, b)
			return buf
		}
		buf = append(buf, b|0x80)
	}
}

// Uvarint32 encodes a uint32 as unsigned LEB128.
func Uvarint32(v uint32) []byte { return PutUvarint(nil, uint64(v)) }

// Varint32 encodes an int32 as signed LEB128.
func Varint32(v int32) []byte { return PutVarint(nil, int64(v)) }

// Varint64 encodes an int64 as signed LEB128.
func Varint64(v int64) []byte { return PutVarint(nil, v) }

// Float32Bytes encodes bits as little-endian IEEE 754 binary32.
func Float32Bytes(bits uint32) []byte {
	return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}

// Float64Bytes encodes bits as little-endian IEEE 754 binary64.
func Float64Bytes(bits uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (8 * i))
	}
	return out
}
