package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lookup-bot/internal/state"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text  string
		shape inputShape
		query string
	}{
		{"9876543210", shapePhone, "9876543210"},
		{" 9876543210 ", shapePhone, "9876543210"},
		{"98765", shapeNone, ""},
		{"98765432101", shapeNone, ""},
		{"98765a3210", shapeNone, ""},
		{".ka01ab1234", shapeVehicle, "KA01AB1234"},
		{". ka01ab1234", shapeVehicle, "KA01AB1234"},
		{".", shapeNone, ""},
		{".two words", shapeNone, ""},
		{"user@example.com", shapeEmail, "user@example.com"},
		{"User@Example.COM", shapeEmail, "user@example.com"},
		{"@channel", shapeNone, ""},
		{"user@nodomain", shapeNone, ""},
		{"a@b@c.com", shapeNone, ""},
		{"hello there", shapeNone, ""},
		{"", shapeNone, ""},
	}

	for _, tt := range tests {
		shape, query := classify(tt.text)
		assert.Equal(t, tt.shape, shape, "text %q", tt.text)
		assert.Equal(t, tt.query, query, "text %q", tt.text)
	}
}

func TestResolvePrivateShapeWins(t *testing.T) {
	// A recognized query shape beats a pending non-lookup state.
	st := state.State{Kind: state.KindAwaitingRedeemCode}
	assert.Equal(t, resPhone, resolve(true, st, shapePhone))
	assert.Equal(t, resEmail, resolve(true, st, shapeEmail))
	assert.Equal(t, resVehicle, resolve(true, st, shapeVehicle))
}

func TestResolvePrivateStateFallback(t *testing.T) {
	// Shapeless text feeds the pending state.
	assert.Equal(t, resState, resolve(true, state.State{Kind: state.KindAwaitingRedeemCode}, shapeNone))
	assert.Equal(t, resState, resolve(true, state.State{Kind: state.KindAwaitingBanID}, shapeNone))

	// An awaiting-lookup state consumes any text as the query.
	assert.Equal(t, resPhone, resolve(true, state.State{Kind: state.KindAwaitingPhone}, shapeNone))
	assert.Equal(t, resVehicle, resolve(true, state.State{Kind: state.KindAwaitingVehicle}, shapeNone))
	assert.Equal(t, resEmail, resolve(true, state.State{Kind: state.KindAwaitingEmail}, shapeNone))
}

func TestResolvePrivateNoStateNoShape(t *testing.T) {
	assert.Equal(t, resIgnore, resolve(true, state.None(), shapeNone))
}

func TestResolveGroupStateWins(t *testing.T) {
	// Mid-flow group users cannot trigger a different lookup kind with
	// ambiguous text.
	st := state.State{Kind: state.KindAwaitingVehicle}
	assert.Equal(t, resVehicle, resolve(false, st, shapePhone))

	st = state.State{Kind: state.KindAwaitingRedeemCode}
	assert.Equal(t, resState, resolve(false, st, shapePhone))
}

func TestResolveGroupShapeWithoutState(t *testing.T) {
	assert.Equal(t, resPhone, resolve(false, state.None(), shapePhone))
	assert.Equal(t, resEmail, resolve(false, state.None(), shapeEmail))
	assert.Equal(t, resIgnore, resolve(false, state.None(), shapeNone))
}

func TestLookupKind(t *testing.T) {
	assert.Equal(t, "phone", lookupKind(resPhone))
	assert.Equal(t, "vehicle", lookupKind(resVehicle))
	assert.Equal(t, "email", lookupKind(resEmail))
	assert.Equal(t, "", lookupKind(resState))
}
