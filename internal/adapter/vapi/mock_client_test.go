package vapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/assistdesk/internal/domain"
)

func TestMockPatchMergesNestedObjects(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()

	list, err := m.ListAssistants(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].AssistantID()

	updated, err := m.UpdateAssistant(ctx, id, map[string]any{"model": map[string]any{"temperature": 0.2}})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", domain.Value(updated.Model.Model))
	assert.Equal(t, 0.2, domain.Value(updated.Model.Temperature))
	assert.Len(t, updated.Model.Messages, 1)
}

func TestMockCallProgressesToEnded(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()
	list, _ := m.ListAssistants(ctx, ListFilter{})

	call, err := m.CreateCall(ctx, domain.CreateCallRequest{AssistantID: list[0].AssistantID()})
	require.NoError(t, err)
	assert.Equal(t, "queued", call.Status)

	var statuses []string
	for i := 0; i < 5; i++ {
		got, err := m.GetCall(ctx, call.ID)
		require.NoError(t, err)
		statuses = append(statuses, got.Status)
	}
	assert.Equal(t, []string{"ringing", "in-progress", "ended", "ended", "ended"}, statuses)
}

func TestMockNotFound(t *testing.T) {
	m := NewMockClient()
	_, err := m.GetAssistant(context.Background(), "nope")
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(m.DeletePhoneNumber(context.Background(), "nope")))
}
