package model

type VisitorRole string

const (
	VisitorRoleSelf     VisitorRole = "selfVisitor"
	VisitorRoleFriend   VisitorRole = "friendVisitor"
	VisitorRoleStranger VisitorRole = "strangerVisitor"
	VisitorRoleAdmin    VisitorRole = "adminVisitor"
)

type InteractionType string

const (
	InteractionTypeLike    InteractionType = "like"
	InteractionTypeComment InteractionType = "comment"
	InteractionTypeShare   InteractionType = "share"
	InteractionTypeMessage InteractionType = "message"
)

type ContentType string

const (
	ContentTypePost  ContentType = "post"
	ContentTypeStory ContentType = "story"
)

// VisitLog is appended under `logs/visits` when one profile views another.
type VisitLog struct {
	VisitorId string      `json:"visitorId"`
	ProfileId string      `json:"profileId"`
	Role      VisitorRole `json:"role"`
	Timestamp int64       `json:"timestamp"`
}

// InteractionLog is appended under `logs/interactions` for content
// engagement events.
type InteractionLog struct {
	UserId          string          `json:"userId"`
	ContentId       string          `json:"contentId"`
	ContentType     ContentType     `json:"contentType"`
	InteractionType InteractionType `json:"interactionType"`
	Timestamp       int64           `json:"timestamp"`
}
