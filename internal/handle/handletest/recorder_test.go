package handletest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-xhr/internal/handle"
)

func TestHeaderBeforeOpen(t *testing.T) {
	r := &Recorder{}
	assert.ErrorIs(t, r.SetRequestHeader("X-Foo", "1"), handle.ErrInvalidState)
	assert.Equal(t, []string{"header X-Foo: 1"}, r.Calls)

	require.NoError(t, r.Open("GET", "/a", true))
	require.NoError(t, r.SetRequestHeader("X-Foo", "1"))
	assert.Equal(t, map[string]string{"X-Foo": "1"}, r.Headers)
}
