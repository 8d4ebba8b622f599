package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordState(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		r := New(map[string]any{"id": 1, "name": "PHP"})
		assert.True(t, r.IsNew())
		assert.Equal(t, []string{"id", "name"}, r.Dirty())
		assert.False(t, r.Persisted("id"))
	})

	t.Run("Persisted", func(t *testing.T) {
		r := New(map[string]any{"id": 1}, Persisted())
		assert.False(t, r.IsNew())
		assert.Empty(t, r.Dirty())
		assert.True(t, r.Persisted("id"))
		assert.False(t, r.Persisted("uuid"), "missing key column")
	})

	t.Run("NilKey", func(t *testing.T) {
		var p *int
		r := New(map[string]any{"id": p}, Persisted())
		_, ok := r.Key("id")
		assert.False(t, ok)
		assert.False(t, r.Persisted("id"))
	})

	t.Run("NilRecord", func(t *testing.T) {
		var r *Record
		assert.False(t, r.Persisted("id"))
	})
}

func TestRecordSnapshot(t *testing.T) {
	r := New(map[string]any{"name": "go"})
	snap := r.Snapshot()

	r.Set("id", 5)
	r.SetNew(false)
	r.Clean()
	r.Set("slug", "go")

	snap.Restore()
	assert.True(t, r.IsNew())
	assert.False(t, r.Has("id"))
	assert.False(t, r.Has("slug"))
	assert.Equal(t, []string{"name"}, r.Dirty())

	r.Set("name", "golang")
	assert.Equal(t, "golang", r.Get("name"))
	snap.Restore()
	assert.Equal(t, "go", r.Get("name"), "a snapshot can be restored more than once")

	require.NotPanics(t, Snapshot{}.Restore)
}

func TestRecordFields(t *testing.T) {
	r := New(map[string]any{"id": 1}, Persisted())
	r.Set("tags", []*Record{})
	assert.True(t, r.Has("tags"))
	assert.True(t, r.IsDirty("tags"))

	r.SetDirty("tags", false)
	assert.False(t, r.IsDirty("tags"))

	fields := r.Fields()
	fields["id"] = 2
	assert.Equal(t, 1, r.Get("id"), "Fields returns a copy")

	r.Unset("tags")
	assert.False(t, r.Has("tags"))
	assert.Equal(t, []string{"id"}, r.Columns())

	r.Set("name", "go")
	r.Clean()
	assert.Empty(t, r.Dirty())
}

func TestKeyEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same int", 1, 1, true},
		{"int and int64", 1, int64(1), true},
		{"uint and int", uint32(7), 7, true},
		{"different ints", 1, 2, false},
		{"strings", "a", "a", true},
		{"bytes and string", []byte("a"), "a", true},
		{"int and string", 1, "1", false},
		{"nil", nil, 1, false},
		{"both nil", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyEqual(tt.a, tt.b))
		})
	}
}

func TestKeyString(t *testing.T) {
	require.Equal(t, KeyString(1), KeyString(int64(1)))
	require.Equal(t, KeyString("x"), KeyString([]byte("x")))
	require.NotEqual(t, KeyString(1), KeyString("1"))
}
