package stores_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querydesk/internal/constants"
	"querydesk/internal/models"
	"querydesk/internal/stores"
)

func TestNewConversationIdsAreUniqueAndIncreasing(t *testing.T) {
	store := stores.NewConversationStore()

	var prev int64
	for i := 1; i <= 50; i++ {
		conv := store.NewConversation("src-1")
		assert.Equal(t, fmt.Sprintf("New Chat %d", i), conv.Title)

		require.True(t, strings.HasPrefix(conv.ID, "conv-"))
		millis, err := strconv.ParseInt(strings.TrimPrefix(conv.ID, "conv-"), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, millis, prev)
		prev = millis
	}
	assert.Len(t, store.Conversations("src-1"), 50)
}

func TestTitlesCountPerSource(t *testing.T) {
	store := stores.NewConversationStore()

	store.NewConversation("src-1")
	store.NewConversation("src-1")
	conv := store.NewConversation("src-2")
	assert.Equal(t, "New Chat 1", conv.Title, "numbering is per data source")
}

func TestAddMessageCreatesSequenceForUnknownConversation(t *testing.T) {
	store := stores.NewConversationStore()

	msg := models.NewChatMessage("user-1", constants.MessageTypeUser, "show revenue")
	store.AddMessage("conv-unknown", msg)

	messages := store.Messages("conv-unknown")
	require.Len(t, messages, 1)
	assert.Equal(t, "show revenue", messages[0].Body)
}

func TestMessageOrderIsPreserved(t *testing.T) {
	store := stores.NewConversationStore()
	conv := store.NewConversation("src-1")

	store.AddMessage(conv.ID, models.NewChatMessage("user-1", constants.MessageTypeUser, "first"))
	store.AddMessage(conv.ID, models.NewChatMessage("", constants.MessageTypeAssistant, "second"))
	store.AddMessage(conv.ID, models.NewChatMessage("user-1", constants.MessageTypeUser, "third"))

	messages := store.Messages(conv.ID)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Body)
	assert.Equal(t, "second", messages[1].Body)
	assert.Equal(t, "third", messages[2].Body)
}

func TestUpdatePreview(t *testing.T) {
	store := stores.NewConversationStore()
	conv := store.NewConversation("src-1")

	store.UpdatePreview("src-1", conv.ID, "show revenue")
	assert.Equal(t, "show revenue", store.Conversations("src-1")[0].Preview)

	// Unknown conversation id is silently ignored.
	store.UpdatePreview("src-1", "conv-missing", "whatever")
	store.UpdatePreview("src-missing", conv.ID, "whatever")
	assert.Equal(t, "show revenue", store.Conversations("src-1")[0].Preview)
}

func TestClearMessagesKeepsConversation(t *testing.T) {
	store := stores.NewConversationStore()
	conv := store.NewConversation("src-1")
	store.AddMessage(conv.ID, models.NewChatMessage("user-1", constants.MessageTypeUser, "hello"))

	store.ClearMessages(conv.ID)
	assert.Empty(t, store.Messages(conv.ID))
	assert.Len(t, store.Conversations("src-1"), 1)
}

func TestDeleteConversationCascades(t *testing.T) {
	store := stores.NewConversationStore()
	keep := store.NewConversation("src-1")
	gone := store.NewConversation("src-1")
	store.AddMessage(gone.ID, models.NewChatMessage("user-1", constants.MessageTypeUser, "hello"))
	store.Select(gone.ID)

	store.DeleteConversation("src-1", gone.ID)

	convs := store.Conversations("src-1")
	require.Len(t, convs, 1)
	assert.Equal(t, keep.ID, convs[0].ID)
	assert.Empty(t, store.Messages(gone.ID))
	assert.Empty(t, store.Selected(), "deleting the selected conversation clears the selection")

	// Messaging a deleted conversation recreates a fresh sequence.
	store.AddMessage(gone.ID, models.NewChatMessage("user-1", constants.MessageTypeUser, "again"))
	assert.Len(t, store.Messages(gone.ID), 1)
}
