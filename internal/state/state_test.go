package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, 1001, State{Kind: KindAwaitingPhone}))
	require.NoError(t, s.Set(ctx, 1001, State{Kind: KindAwaitingSettingValue, Payload: "referral_bonus"}))

	st, err := s.Get(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, KindAwaitingSettingValue, st.Kind)
	assert.Equal(t, "referral_bonus", st.Payload)
}

func TestMemoryStoreGetDefault(t *testing.T) {
	s := NewMemoryStore()

	st, err := s.Get(context.Background(), 9999)
	require.NoError(t, err)
	assert.True(t, st.IsNone())
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, 1001, State{Kind: KindAwaitingRedeemCode}))
	require.NoError(t, s.Clear(ctx, 1001))

	st, err := s.Get(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, st.IsNone())
}

func TestMemoryStoreSetNoneClears(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, 1001, State{Kind: KindAwaitingBanID}))
	require.NoError(t, s.Set(ctx, 1001, None()))

	st, err := s.Get(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, st.IsNone())
}

func TestStatesAreIndependentPerUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, 1001, State{Kind: KindAwaitingPhone}))
	require.NoError(t, s.Set(ctx, 1002, State{Kind: KindAwaitingEmail}))
	require.NoError(t, s.Clear(ctx, 1001))

	st, err := s.Get(ctx, 1002)
	require.NoError(t, err)
	assert.Equal(t, KindAwaitingEmail, st.Kind)
}
