package rules

import (
	"testing"

	"github.com/abdul-hamid-achik/prbalcheck/packages/assertions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Register(t *testing.T) {
	c := NewCatalog()

	require.NoError(t, c.Register(&assertions.Rule{ID: "bids.get"}))
	assert.Error(t, c.Register(&assertions.Rule{}))
	assert.Error(t, c.Register(nil))

	r, ok := c.Lookup("bids.get")
	require.True(t, ok)
	assert.Equal(t, "bids", r.Group)
	assert.Equal(t, "bids.get", r.Name)

	_, ok = c.Lookup("bids.nope")
	assert.False(t, ok)
}

func TestCatalog_GroupsAndIDs(t *testing.T) {
	c := NewCatalog()
	for _, id := range []string{"chat.send", "auth.login", "chat.history", "ungrouped"} {
		require.NoError(t, c.Register(&assertions.Rule{ID: id}))
	}

	assert.Equal(t, []string{"auth.login", "chat.history", "chat.send", "ungrouped"}, c.IDs())
	assert.Equal(t, []string{"auth", "chat", "ungrouped"}, c.Groups())

	chat := c.InGroup("chat")
	require.Len(t, chat, 2)
	assert.Equal(t, "chat.history", chat[0].ID)
	assert.Equal(t, "chat.send", chat[1].ID)
}

func TestCatalog_Merge(t *testing.T) {
	base := NewCatalog()
	require.NoError(t, base.Register(&assertions.Rule{ID: "a.one", Name: "base one"}))
	require.NoError(t, base.Register(&assertions.Rule{ID: "a.two"}))

	override := NewCatalog()
	require.NoError(t, override.Register(&assertions.Rule{ID: "a.one", Name: "override one"}))

	merged := base.Merge(override)
	assert.Equal(t, 2, merged.Len())
	r, _ := merged.Lookup("a.one")
	assert.Equal(t, "override one", r.Name)

	r, _ = base.Lookup("a.one")
	assert.Equal(t, "base one", r.Name, "merge does not modify the receiver")

	assert.Equal(t, 2, base.Merge(nil).Len())
}
