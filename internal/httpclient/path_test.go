package httpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tryit/internal/payload"
)

func TestSubstitutePath(t *testing.T) {
	assert.Equal(t, "/pets/42", SubstitutePath("/pets/{id}", map[string]any{"id": "42"}))
	assert.Equal(t, "/pets/{id}", SubstitutePath("/pets/{id}", map[string]any{}))
	assert.Equal(t, "/pets/a%2Fb/toys/7", SubstitutePath("/pets/{id}/toys/{toy}", map[string]any{"id": "a/b", "toy": 7}))
	assert.Equal(t, "/pets/{id}", SubstitutePath("/pets/{id}", map[string]any{"id": payload.Undefined}))
}

func TestAppendQuery(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "/x", AppendQuery("/x", nil))
		assert.Equal(t, "/x", AppendQuery("/x", map[string]any{"gone": nil}))
	})

	t.Run("encoded and sorted", func(t *testing.T) {
		got := AppendQuery("/x", map[string]any{"q": "a b&c", "limit": 10, "on": true})
		assert.Equal(t, "/x?limit=10&on=true&q=a+b%26c", got)
	})

	t.Run("arrays repeat the key", func(t *testing.T) {
		got := AppendQuery("/x", map[string]any{"tag": []any{"a", "b"}})
		assert.Equal(t, "/x?tag=a&tag=b", got)
	})

	t.Run("existing query", func(t *testing.T) {
		assert.Equal(t, "/x?v=1&a=2", AppendQuery("/x?v=1", map[string]any{"a": "2"}))
	})
}

func TestAppendParamsToPath(t *testing.T) {
	got := AppendParamsToPath("/x", map[string]any{}, map[string]any{
		"a":      "1",
		"nested": map[string]any{"b": "2"},
	})
	assert.Equal(t, "/x?a=1&b=2", got)

	got = AppendParamsToPath("/pets/{id}", map[string]any{"id": 5}, map[string]any{"id": "q"})
	assert.Equal(t, "/pets/5?id=q", got)
}

func TestEncodeURIComponent(t *testing.T) {
	assert.Equal(t, "a%20b%2Cc!'()*", encodeURIComponent("a b,c!'()*"))
}
