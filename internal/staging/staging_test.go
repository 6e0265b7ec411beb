package staging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	ps, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"pebble": ps,
	}
}

func TestStoreListByPrefix(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "TXN001-OrderHeaderDetails.csv", []byte("h")))
			require.NoError(t, store.Put(ctx, "TXN001-OrderLineItems.csv", []byte("l")))
			require.NoError(t, store.Put(ctx, "TXN002-OrderHeaderDetails.csv", []byte("h")))

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			group, err := store.List(ctx, "TXN001-")
			require.NoError(t, err)
			assert.Equal(t, []string{
				"TXN001-OrderHeaderDetails.csv",
				"TXN001-OrderLineItems.csv",
			}, group)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "TXN009-OrderLineItems.csv", []byte("l")))
			require.NoError(t, store.Delete(ctx, "TXN009-OrderLineItems.csv"))

			names, err := store.List(ctx, "TXN009-")
			require.NoError(t, err)
			assert.Empty(t, names)

			// повторное удаление не считается ошибкой
			require.NoError(t, store.Delete(ctx, "TXN009-OrderLineItems.csv"))
		})
	}
}
