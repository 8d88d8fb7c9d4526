package model

// StoryTTLMillis is how long a story stays visible after creation. Expiry is
// enforced by filtering on read; the underlying record is never deleted.
const StoryTTLMillis = 24 * 60 * 60 * 1000

/*

Story is an ephemeral image post. Records live at `stories/{userId}/{id}`.

Id: store key (push id)
User: live-joined owner record
Image: image url in blob storage
CreatedAt: server-assigned epoch millis. A story is projected only while
now - CreatedAt < StoryTTLMillis.
*/
type Story struct {
	Id        string
	User      User
	Image     string
	CreatedAt int64
}

// StoryRecord is the raw shape of `stories/{userId}/{storyId}`.
type StoryRecord struct {
	Image     string `json:"image"`
	CreatedAt int64  `json:"createdAt"`
}
