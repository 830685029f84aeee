package provider_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cryptoquote/internal/provider"
)

func TestDecodeObject(t *testing.T) {
	t.Parallel()

	t.Run("exact names only", func(t *testing.T) {
		t.Parallel()

		var rates map[string]int
		var base string
		err := provider.DecodeObject([]byte(`{"Rates": {"EUR": 1}, "base": "USD", "extra": true}`), map[string]any{
			"rates": &rates,
			"base":  &base,
		})
		require.NoError(t, err)
		require.Nil(t, rates)
		require.Equal(t, "USD", base)
	})

	t.Run("null object", func(t *testing.T) {
		t.Parallel()

		var base string
		require.NoError(t, provider.DecodeObject([]byte(`null`), map[string]any{"base": &base}))
		require.Empty(t, base)
	})

	t.Run("not an object", func(t *testing.T) {
		t.Parallel()

		var base string
		require.Error(t, provider.DecodeObject([]byte(`[1, 2]`), map[string]any{"base": &base}))
	})

	t.Run("member type mismatch names the member", func(t *testing.T) {
		t.Parallel()

		var count int
		err := provider.DecodeObject([]byte(`{"count": "seven"}`), map[string]any{"count": &count})
		require.ErrorContains(t, err, `"count"`)
	})
}
