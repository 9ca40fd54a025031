package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hashed, err := HashPassword("correct horse 1")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse 1", hashed)

	assert.True(t, ComparePassword(hashed, "correct horse 1"))
	assert.False(t, ComparePassword(hashed, "wrong password 1"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"meets policy", "secret123", true},
		{"long mixed", "aVeryLongPassword99", true},
		{"too short", "ab1", false},
		{"no digit", "passwordonly", false},
		{"no letter", "1234567890", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrWeakPassword)
			}
		})
	}
}
