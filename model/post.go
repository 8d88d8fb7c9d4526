package model

/*

Post is the projected, render-ready view of a feed post. The underlying
record lives at `posts/{id}` and stores only the author's id; the full User
is joined live on every emission so profile edits reflect on old posts.

Id: store key
User: live-joined author record
Content: post body in plain text
Image: optional image url in blob storage
Likes: denormalized like count
Comments: denormalized comment count
CreatedAt: human-readable creation time, written by the client
CreatedAtTimestamp: server-assigned epoch-millis ordering value, distinct
from CreatedAt. Feed sort is descending by this field.
Liked: whether the current viewer holds a like edge for this post. Derived
from `post-likes/{postId}/{viewerId}`, never stored on the record.
*/
type Post struct {
	Id                 string
	User               User
	Content            string
	Image              string
	Likes              int64
	Comments           int64
	CreatedAt          string
	CreatedAtTimestamp int64
	Liked              bool
}

// AuthorRef is the embedded author snapshot persisted inside a post record.
// Only the id is stored; everything else is joined at read time.
type AuthorRef struct {
	Id string `json:"id"`
}

// PostRecord is the raw shape of `posts/{id}` as persisted in the store.
type PostRecord struct {
	User               AuthorRef `json:"user"`
	Content            string    `json:"content"`
	Image              string    `json:"image,omitempty"`
	Likes              int64     `json:"likes"`
	Comments           int64     `json:"comments"`
	CreatedAt          string    `json:"createdAt"`
	CreatedAtTimestamp int64     `json:"createdAtTimestamp"`
}
