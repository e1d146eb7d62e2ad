package pio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLittleEndian(t *testing.T) {
	b := make([]byte, 8)

	PutU16LE(b, 0x0102)
	assert.Equal(t, []byte{0x02, 0x01}, b[:2])
	assert.Equal(t, uint16(0x0102), U16LE(b))

	PutU32LE(b, 0x01020304)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b[:4])
	assert.Equal(t, uint32(0x01020304), U32LE(b))

	PutI64LE(b, -2)
	assert.Equal(t, int64(-2), I64LE(b))

	PutF32LE(b, 1.5)
	assert.Equal(t, float32(1.5), F32LE(b))
}
