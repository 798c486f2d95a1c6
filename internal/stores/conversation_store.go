package stores

import (
	"fmt"
	"sync"
	"time"

	"querydesk/internal/models"
)

// ConversationStore holds, per data source, the list of conversations
// and each conversation's message sequence. Everything lives in process
// memory; there is no backend conversation API, so nothing is synced
// and conversations do not survive a restart.
type ConversationStore struct {
	mu            sync.Mutex
	conversations map[string][]models.Conversation // data source id -> ordered conversations
	messages      map[string][]models.ChatMessage  // conversation id -> ordered messages
	selectedID    string
	lastIDMillis  int64
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string][]models.Conversation),
		messages:      make(map[string][]models.ChatMessage),
	}
}

// NewConversation appends a fresh conversation for the data source and
// returns it. Ids are derived from the wall clock but generated
// monotonically, so two creations in the same millisecond still get
// distinct, strictly increasing ids.
func (s *ConversationStore) NewConversation(sourceID string) models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	millis := time.Now().UnixMilli()
	if millis <= s.lastIDMillis {
		millis = s.lastIDMillis + 1
	}
	s.lastIDMillis = millis

	conv := models.Conversation{
		ID:        fmt.Sprintf("conv-%d", millis),
		Title:     fmt.Sprintf("New Chat %d", len(s.conversations[sourceID])+1),
		CreatedAt: time.Now(),
	}
	s.conversations[sourceID] = append(s.conversations[sourceID], conv)
	s.messages[conv.ID] = []models.ChatMessage{}
	return conv
}

// AddMessage appends to the conversation's message sequence. An
// unknown conversation id is tolerated: a fresh sequence is created
// before appending.
func (s *ConversationStore) AddMessage(conversationID string, message models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[conversationID]; !ok {
		s.messages[conversationID] = []models.ChatMessage{}
	}
	s.messages[conversationID] = append(s.messages[conversationID], message)
}

// UpdatePreview replaces the preview of the matching conversation.
// No-op when the conversation is not found.
func (s *ConversationStore) UpdatePreview(sourceID, conversationID, preview string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convs := s.conversations[sourceID]
	for i := range convs {
		if convs[i].ID == conversationID {
			convs[i].Preview = preview
			return
		}
	}
}

// ClearMessages empties the conversation's message sequence but keeps
// the conversation record.
func (s *ConversationStore) ClearMessages(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = []models.ChatMessage{}
}

// DeleteConversation removes the conversation from its source's list
// and discards its messages. Deleting the selected conversation clears
// the selection.
func (s *ConversationStore) DeleteConversation(sourceID, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs := s.conversations[sourceID]
	out := convs[:0]
	for _, c := range convs {
		if c.ID != conversationID {
			out = append(out, c)
		}
	}
	s.conversations[sourceID] = out
	delete(s.messages, conversationID)
	if s.selectedID == conversationID {
		s.selectedID = ""
	}
}

func (s *ConversationStore) Select(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = conversationID
}

func (s *ConversationStore) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Conversations returns a copy of the ordered conversation list for a
// data source.
func (s *ConversationStore) Conversations(sourceID string) []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Conversation(nil), s.conversations[sourceID]...)
}

// Messages returns a copy of a conversation's ordered message
// sequence.
func (s *ConversationStore) Messages(conversationID string) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.messages[conversationID]...)
}
