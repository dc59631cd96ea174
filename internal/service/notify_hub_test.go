package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID uint) *Client {
	return &Client{
		Send:   make(chan []byte, 1),
		UserID: userID,
	}
}

func TestShardedRegistryLastRegistrationWins(t *testing.T) {
	r := NewShardedRegistry()
	c1 := newTestClient(7)
	c2 := newTestClient(7)

	prev := r.Register(7, c1)
	assert.Nil(t, prev)

	// 同一用户重连，新连接覆盖旧连接
	prev = r.Register(7, c2)
	assert.Same(t, c1, prev)

	got, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Same(t, c2, got)
}

func TestShardedRegistryStaleUnregisterIsNoop(t *testing.T) {
	r := NewShardedRegistry()
	c1 := newTestClient(7)
	c2 := newTestClient(7)

	r.Register(7, c1)
	r.Register(7, c2)

	// 旧连接的注销不能摘掉新连接
	assert.False(t, r.Unregister(c1))

	got, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Same(t, c2, got)

	assert.True(t, r.Unregister(c2))
	_, ok = r.Lookup(7)
	assert.False(t, ok)
}

func TestShardedRegistryRegisterSameClientTwice(t *testing.T) {
	r := NewShardedRegistry()
	c := newTestClient(3)

	assert.Nil(t, r.Register(3, c))
	// 同一连接重复注册不应把自己当作被覆盖的旧连接返回
	assert.Nil(t, r.Register(3, c))
}

func TestShardedRegistryOnlineIDsAndDrain(t *testing.T) {
	r := NewShardedRegistry()
	for _, id := range []uint{1, 2, 33, 64} {
		r.Register(id, newTestClient(id))
	}

	ids := r.OnlineIDs()
	assert.ElementsMatch(t, []uint{1, 2, 33, 64}, ids)

	drained := r.Drain()
	assert.Len(t, drained, 4)
	assert.Empty(t, r.OnlineIDs())
}
