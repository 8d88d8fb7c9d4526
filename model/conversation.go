package model

type ConversationStatus string

const (
	ConversationStatusDefault  ConversationStatus = ""
	ConversationStatusArchived ConversationStatus = "archived"
	ConversationStatusHidden   ConversationStatus = "hidden"
)

func (s ConversationStatus) IsValid() bool {
	switch s {
	case ConversationStatusDefault, ConversationStatusArchived, ConversationStatusHidden:
		return true
	}
	return false
}

func (s ConversationStatus) String() string {
	return string(s)
}

/*

Conversation is the projected view of one entry in the viewer's conversation
list. It is assembled from three store locations:

  - `user-conversations/{viewerId}/{conversationId}`: participantId,
    unreadCount and status (the viewer's private index entry)
  - `users/{participantId}`: the other participant, joined live
  - `conversations/{conversationId}/lastMessage`: the last-message snapshot

The unread count and status belong to the viewer only; the other participant
holds an independent index entry over the same shared message subtree.
*/
type Conversation struct {
	Id          string
	Participant User
	LastMessage Message
	UnreadCount int64
	Status      ConversationStatus
}

// ConversationEntry is the raw shape of the per-viewer index entry at
// `user-conversations/{userId}/{conversationId}`.
type ConversationEntry struct {
	ParticipantId string `json:"participantId"`
	LastUpdated   int64  `json:"lastUpdated"`
	UnreadCount   int64  `json:"unreadCount"`
	Status        string `json:"status,omitempty"`
}

// LastMessage is the denormalized snapshot at
// `conversations/{conversationId}/lastMessage`, refreshed on every send.
type LastMessage struct {
	Text      string `json:"text"`
	SenderId  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
}
