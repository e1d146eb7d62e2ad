// Package pio holds the little endian byte helpers used by the dcv container.
package pio

import "math"

func U8(b []byte) uint8 {
	return b[0]
}

func U16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func U32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func U64LE(b []byte) uint64 {
	return uint64(U32LE(b[0:4])) | uint64(U32LE(b[4:8]))<<32
}

func I64LE(b []byte) int64 {
	return int64(U64LE(b))
}

func F32LE(b []byte) float32 {
	return math.Float32frombits(U32LE(b))
}

func PutU8(b []byte, v uint8) {
	b[0] = v
}

func PutU16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func PutU32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func PutU64LE(b []byte, v uint64) {
	PutU32LE(b[0:4], uint32(v))
	PutU32LE(b[4:8], uint32(v>>32))
}

func PutI64LE(b []byte, v int64) {
	PutU64LE(b, uint64(v))
}

func PutF32LE(b []byte, v float32) {
	PutU32LE(b, math.Float32bits(v))
}
