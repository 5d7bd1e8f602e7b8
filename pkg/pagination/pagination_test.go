package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSize(t *testing.T) {
	assert.Equal(t, DefaultLimit, PageSize(0))
	assert.Equal(t, DefaultLimit, PageSize(-4))
	assert.Equal(t, 7, PageSize(7))
	assert.Equal(t, MaxLimit, PageSize(MaxLimit+1))
}

func TestCursorEncodeDecode(t *testing.T) {
	local := time.FixedZone("UTC-5", -5*60*60)
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123456789, local), ID: uuid.New()}

	text := in.Encode()
	assert.NotContains(t, text, "=")
	assert.NotContains(t, text, "+")

	out, err := DecodeCursor(text)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	first, err := DecodeCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, first)

	for _, text := range []string{"%%%", "bm8tc2VwYXJhdG9y", "bm90LWEtdGltZXxub3QtYS11dWlk"} {
		_, err := DecodeCursor(text)
		assert.ErrorIs(t, err, ErrBadCursor, text)
	}
}
