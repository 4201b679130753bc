package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriter(t *testing.T) {
	r, err := NewRewriter("http://vendor.example.com/definitions/", "https://semweave.dev/assets/")
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    string
		changed bool
	}{
		{"leading underscore", "http://vendor.example.com/definitions/_5f1a", "https://semweave.dev/assets/5f1a", true},
		{"nested path", "http://vendor.example.com/definitions/models/_abc", "https://semweave.dev/assets/abc", true},
		{"fragment", "http://vendor.example.com/definitions/_abc#_def", "https://semweave.dev/assets/abc#def", true},
		{"unrelated", "http://www.omg.org/spec/DMN/20180521/MODEL/", "http://www.omg.org/spec/DMN/20180521/MODEL/", false},
		{"already canonical", "https://semweave.dev/assets/abc", "https://semweave.dev/assets/abc", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := r.Rewrite(tc.input)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.changed, changed)
			assert.Equal(t, tc.changed, r.Matches(tc.input))
		})
	}
}

func TestRewriterIsIdempotent(t *testing.T) {
	r, err := NewRewriter("http://vendor.example.com/definitions/", "https://semweave.dev/assets/")
	require.NoError(t, err)

	once, _ := r.Rewrite("http://vendor.example.com/definitions/_x1")
	twice, changed := r.Rewrite(once)
	assert.False(t, changed)
	assert.Equal(t, once, twice)
}

func TestNewRewriterValidation(t *testing.T) {
	_, err := NewRewriter("", "https://semweave.dev/assets/")
	assert.Error(t, err)

	_, err = NewRewriter("http://vendor.example.com/", "")
	assert.Error(t, err)

	_, err = NewRewriter("http://vendor.example.com/", "http://vendor.example.com/canonical/")
	assert.Error(t, err)
}

func TestFragment(t *testing.T) {
	assert.Equal(t, "abc", Fragment("http://id.example.com/concepts#_abc"))
	assert.Equal(t, "abc", Fragment("http://id.example.com/concepts/_abc"))
	assert.Equal(t, "abc", Fragment("_abc"))
}
