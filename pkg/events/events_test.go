package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDecode(t *testing.T) {
	msg := &Message{
		Subject: UserRoleSelected,
		Data:    []byte(`{"user_id":4,"email":"alice@example.com","role":"host","previous_role":"guest"}`),
	}

	var ev UserRoleSelectedEvent
	require.NoError(t, msg.Decode(&ev))
	assert.Equal(t, int64(4), ev.UserID)
	assert.Equal(t, "host", ev.Role)
	assert.Equal(t, "guest", ev.PreviousRole)

	bad := &Message{Subject: UserRegistered, Data: []byte(`{`)}
	err := bad.Decode(&ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), UserRegistered)
}
