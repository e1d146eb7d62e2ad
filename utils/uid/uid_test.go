package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandStringRunes(t *testing.T) {
	s := RandStringRunes(48)
	assert.Len(t, s, 48)
	for _, r := range s {
		assert.Contains(t, string(letterRunes), string(r))
	}
}

func TestNewIdIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewId()
		assert.Len(t, id, 16)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
