package model

import "fmt"

// Signal is pushed on the in-process update bus whenever a projector commits
// a new snapshot, so renderers know which view to re-read. It carries no
// data itself; consumers pull fresh state from the projector.
type Signal struct {
	SignalType SignalType `json:"signalType"`
	// EntityId scopes the signal where it applies: a conversation id for
	// SignalTypeMessages, a post id for SignalTypeComments. Empty otherwise.
	EntityId string `json:"entityId,omitempty"`
}

type SignalType string

const (
	SignalTypeUsers         SignalType = "USERS"
	SignalTypeCurrentUser   SignalType = "CURRENT_USER"
	SignalTypeConversations SignalType = "CONVERSATIONS"
	SignalTypeMessages      SignalType = "MESSAGES"
	SignalTypeStories       SignalType = "STORIES"
	SignalTypePosts         SignalType = "POSTS"
	SignalTypeComments      SignalType = "COMMENTS"
)

var AllSignalType = []SignalType{
	SignalTypeUsers,
	SignalTypeCurrentUser,
	SignalTypeConversations,
	SignalTypeMessages,
	SignalTypeStories,
	SignalTypePosts,
	SignalTypeComments,
}

func (e SignalType) IsValid() bool {
	for _, t := range AllSignalType {
		if e == t {
			return true
		}
	}
	return false
}

func (e SignalType) String() string {
	return string(e)
}

func (s Signal) Topic() string {
	return fmt.Sprintf("projector/%s", s.SignalType)
}
