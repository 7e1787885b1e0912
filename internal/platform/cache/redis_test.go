package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
