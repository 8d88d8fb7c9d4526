package model

/*

Comment is the projected view of a single comment under a post. Records live
at `comments/{postId}/{commentId}` and hold only the commenter's id; the User
is joined on emission.

Threaded replies are intentionally not modeled: nothing writes them.

Id: store key
User: live-joined commenter record
Text: comment body
CreatedAt: server-assigned epoch millis
Likes: denormalized like count, mutated only through store transactions
LikedByCurrentUser: derived from `comment-likes/{postId}/{commentId}/{viewerId}`
*/
type Comment struct {
	Id                 string
	User               User
	Text               string
	CreatedAt          int64
	Likes              int64
	LikedByCurrentUser bool
}

// CommentRecord is the raw shape of `comments/{postId}/{commentId}`.
type CommentRecord struct {
	Text      string `json:"text"`
	UserId    string `json:"userId"`
	Likes     int64  `json:"likes"`
	CreatedAt int64  `json:"createdAt"`
}
