package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
)

func TestConfigStore_InterfaceCompliance(t *testing.T) {
	var store driven.ConfigStore = NewConfigStore()
	assert.Equal(t, ":memory:", store.Path())
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("profiles.local.backend", "sqlite"))
	require.NoError(t, store.Set("profiles.local.backend", "graphdb"))

	val, ok := store.Get("profiles.local.backend")
	assert.True(t, ok)
	assert.Equal(t, "graphdb", val)

	val, ok = store.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("s", "text")
	_ = store.Set("i", 7)
	_ = store.Set("i64", int64(8))
	_ = store.Set("f", float64(9))
	_ = store.Set("b", true)
	_ = store.Set("list", []any{"a", 1, "b"})

	assert.Equal(t, "text", store.GetString("s"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 8, store.GetInt("i64"))
	assert.Equal(t, 9, store.GetInt("f"))
	assert.True(t, store.GetBool("b"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))

	assert.Empty(t, store.GetString("i"))
	assert.Zero(t, store.GetInt("s"))
	assert.False(t, store.GetBool("s"))
	assert.Nil(t, store.GetStringSlice("s"))
}

func TestConfigStore_KeysAndDelete(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("profiles.b.backend", "sqlite")
	_ = store.Set("profiles.a.backend", "sparql")
	_ = store.Set("active", "a")

	assert.Equal(t, []string{"profiles.a.backend", "profiles.b.backend"}, store.Keys("profiles."))
	assert.Len(t, store.Keys(""), 3)

	require.NoError(t, store.Delete("profiles.a.backend", "unknown"))
	assert.Equal(t, []string{"profiles.b.backend"}, store.Keys("profiles."))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "k" + string(rune('A'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.Keys("k")
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys("k"), 50)
}
