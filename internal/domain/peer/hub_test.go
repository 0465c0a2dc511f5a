package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

func TestHubActive(t *testing.T) {
	hub := NewHub(nil)

	_, err := hub.Active()
	assert.ErrorIs(t, err, types.ErrDisconnected)
	assert.Equal(t, "disconnected", hub.Status().State)

	f := newFixture(t)
	hub.Attach(f.session)
	require.NoError(t, f.session.Accept())

	_, err = hub.Active()
	assert.ErrorIs(t, err, types.ErrDisconnected)

	require.NoError(t, f.session.Receive([]byte(`{"type":"extension_connected","data":{"extensionId":"ext-1"}}`)))
	s, err := hub.Active()
	require.NoError(t, err)
	assert.Same(t, f.session, s)

	status := hub.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, "ext-1", status.ExtensionID)
	assert.Equal(t, "peer_active", status.State)
}

func TestHubSupersedes(t *testing.T) {
	hub := NewHub(nil)
	first := newFixture(t)
	second := newFixture(t)

	hub.Attach(first.session)
	hub.Attach(second.session)

	assert.Equal(t, StateClosed, first.session.State())
	assert.Same(t, second.session, hub.Current())
}

func TestHubDetachOnClose(t *testing.T) {
	hub := NewHub(nil)
	f := newFixture(t)
	hub.Attach(f.session)

	f.session.Close("gone")

	assert.Nil(t, hub.Current())
}

func TestHubAttachClosedSession(t *testing.T) {
	hub := NewHub(nil)
	f := newFixture(t)
	f.session.Close("gone")

	hub.Attach(f.session)

	assert.Nil(t, hub.Current())
	_, err := hub.Active()
	assert.ErrorIs(t, err, types.ErrDisconnected)
}
