package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
)

func TestStrikePolicy(t *testing.T) {
	p := NewStrikePolicy(3)
	ann := core.NewMemberSession("s-ann", domain.NewMember("ann", "", "", "c-ann", "lobby"), nopConn{})
	bob := core.NewMemberSession("s-bob", domain.NewMember("bob", "", "", "c-bob", "lobby"), nopConn{})

	assert.Equal(t, DropFrame, p.OnBackPressure(nil, ann))
	assert.Equal(t, DropFrame, p.OnBackPressure(nil, ann))
	assert.Equal(t, DropFrame, p.OnBackPressure(nil, bob))
	assert.Equal(t, KickMember, p.OnBackPressure(nil, ann))

	p.Forget("s-bob")
	assert.Equal(t, DropFrame, p.OnBackPressure(nil, bob))
	assert.Equal(t, DropFrame, p.OnBackPressure(nil, bob))
}

func TestStaticPolicies(t *testing.T) {
	ann := core.NewMemberSession("s-ann", domain.NewMember("ann", "", "", "c-ann", "lobby"), nopConn{})
	assert.Equal(t, KickMember, KickPolicy{}.OnBackPressure(nil, ann))
	assert.Equal(t, DropFrame, TolerantPolicy{}.OnBackPressure(nil, ann))
}

func TestNewPolicy(t *testing.T) {
	ann := core.NewMemberSession("s-ann", domain.NewMember("ann", "", "", "c-ann", "lobby"), nopConn{})

	p, err := NewPolicy("kick", 8)
	require.NoError(t, err)
	assert.Equal(t, KickMember, p.OnBackPressure(nil, ann))

	p, err = NewPolicy("tolerant", 8)
	require.NoError(t, err)
	assert.Equal(t, DropFrame, p.OnBackPressure(nil, ann))

	p, err = NewPolicy("strike", 2)
	require.NoError(t, err)
	assert.Equal(t, DropFrame, p.OnBackPressure(nil, ann))
	assert.Equal(t, KickMember, p.OnBackPressure(nil, ann))

	_, err = NewPolicy("ignore", 8)
	assert.Error(t, err)
}
