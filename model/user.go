package model

/*

User is a member of the network. The record lives at `users/{id}` in the
realtime store; the id is the store key and is never persisted inside the
record itself.

Id: store key, assigned by the auth provider
Name: display name
Username: unique handle, lowercase, charset [a-z0-9_.]
Avatar: image url
Bio: free-text self description
Followers: denormalized follower count, maintained by follow transactions
Following: denormalized following count, maintained by follow transactions
Category: optional account category, e.g. "Personal Account"
FollowingIds: ids this user follows, materialized from `following/{id}` on
each user directory emission. Only populated on the viewer's own record.
*/
type User struct {
	Id           string   `json:"-" mapstructure:"-"`
	Name         string   `json:"name"`
	Username     string   `json:"username"`
	Avatar       string   `json:"avatar"`
	Bio          string   `json:"bio"`
	Followers    int64    `json:"followers"`
	Following    int64    `json:"following"`
	Category     string   `json:"category,omitempty"`
	FollowingIds []string `json:"-" mapstructure:"-"`
}

// IsFollowing reports whether the materialized following list contains the
// given user id.
func (u *User) IsFollowing(userId string) bool {
	for _, id := range u.FollowingIds {
		if id == userId {
			return true
		}
	}
	return false
}
