package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLeaseDays(t *testing.T) {
	t.Parallel()

	t.Run("accepts a positive integer", func(t *testing.T) {
		days, err := parseLeaseDays([]byte(`45`))
		require.NoError(t, err)
		require.Equal(t, 45, days)
	})

	t.Run("rejects zero and negative values", func(t *testing.T) {
		_, err := parseLeaseDays([]byte(`0`))
		require.Error(t, err)

		_, err = parseLeaseDays([]byte(`-7`))
		require.Error(t, err)
	})

	t.Run("rejects non-numeric values", func(t *testing.T) {
		_, err := parseLeaseDays([]byte(`"thirty"`))
		require.Error(t, err)
	})
}
