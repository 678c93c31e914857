package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameActionIntPayload(t *testing.T) {
	var a GameAction
	require.NoError(t, json.Unmarshal([]byte(`{"type":"select_card","payload":{"card_id":7,"half":1.5,"name":"x"}}`), &a))
	assert.Equal(t, "select_card", a.ActionType)

	id, ok := a.IntPayload("card_id")
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	_, ok = a.IntPayload("half")
	assert.False(t, ok)
	_, ok = a.IntPayload("name")
	assert.False(t, ok)
	_, ok = a.IntPayload("missing")
	assert.False(t, ok)

	_, ok = GameAction{ActionType: "ping"}.IntPayload("card_id")
	assert.False(t, ok)
}
