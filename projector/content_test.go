package projector

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumora-app/lumora/auth"
	"github.com/lumora-app/lumora/filestore"
	"github.com/lumora-app/lumora/model"
	"github.com/lumora-app/lumora/store"
)

func startContent(t *testing.T, s store.TreeStore, viewerId string, images filestore.ImageStore) (*IdentityProjector, *ContentProjector) {
	t.Helper()
	seedUser(t, s, viewerId, "Viewer "+viewerId, "viewer"+viewerId)
	identity := startIdentity(t, s, auth.NewStaticProvider(&auth.Identity{Id: viewerId}))
	waitForCurrentUser(t, identity)

	content := NewContentProjector(s, identity, images)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(content.Close)
	require.NoError(t, content.Start(ctx))
	return identity, content
}

func readPostCounter(t *testing.T, s store.TreeStore, postId, field string) int64 {
	t.Helper()
	val, err := s.Get(context.Background(), fmt.Sprintf("posts/%s", postId))
	require.NoError(t, err)
	record, ok := val.(map[string]interface{})
	require.True(t, ok)
	n, _ := counterValue(record[field])
	return n
}

func TestAddPostProjectsWithAuthorJoin(t *testing.T) {
	s := store.NewMemoryStore()
	_, content := startContent(t, s, "a", nil)
	ctx := context.Background()

	_, err := content.AddPost(ctx, "  ", "")
	assert.Equal(t, ErrEmptyPost, err)

	postId, err := content.AddPost(ctx, "hello world", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		posts := content.Posts()
		return len(posts) == 1 &&
			posts[0].Id == postId &&
			posts[0].User.Name == "Viewer a" &&
			posts[0].Content == "hello world" &&
			posts[0].Likes == 0 &&
			!posts[0].Liked
	}, waitFor, tick)
}

func TestPostsSortNewestFirst(t *testing.T) {
	s := store.NewMemoryStore()
	seedUser(t, s, "b", "Bob", "bob")
	ctx := context.Background()
	for i, createdAt := range []int64{100, 300, 200} {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("posts/p%d", i), map[string]interface{}{
			"user":               map[string]interface{}{"id": "b"},
			"content":            fmt.Sprintf("post %d", i),
			"likes":              0,
			"comments":           0,
			"createdAtTimestamp": createdAt,
		}))
	}
	_, content := startContent(t, s, "a", nil)

	require.Eventually(t, func() bool {
		posts := content.Posts()
		return len(posts) == 3 &&
			posts[0].Id == "p1" && posts[1].Id == "p2" && posts[2].Id == "p0"
	}, waitFor, tick)
}

func TestToggleLikePairRestoresState(t *testing.T) {
	s := store.NewMemoryStore()
	_, content := startContent(t, s, "a", nil)
	ctx := context.Background()

	postId, err := content.AddPost(ctx, "likeable", "")
	require.NoError(t, err)

	require.NoError(t, content.ToggleLike(ctx, postId))
	assert.Equal(t, int64(1), readPostCounter(t, s, postId, "likes"))
	require.Eventually(t, func() bool {
		posts := content.Posts()
		return len(posts) == 1 && posts[0].Liked && posts[0].Likes == 1
	}, waitFor, tick)

	require.NoError(t, content.ToggleLike(ctx, postId))
	assert.Equal(t, int64(0), readPostCounter(t, s, postId, "likes"))
	edge, err := s.Get(ctx, fmt.Sprintf("post-likes/%s/a", postId))
	require.NoError(t, err)
	assert.False(t, store.Exists(edge))
}

func TestAddAndDeleteCommentAdjustCounter(t *testing.T) {
	s := store.NewMemoryStore()
	_, content := startContent(t, s, "a", nil)
	ctx := context.Background()

	postId, err := content.AddPost(ctx, "commentable", "")
	require.NoError(t, err)

	_, err = content.AddComment(ctx, postId, " ")
	assert.Equal(t, ErrEmptyComment, err)

	commentId, err := content.AddComment(ctx, postId, "first!")
	require.NoError(t, err)
	assert.Equal(t, int64(1), readPostCounter(t, s, postId, "comments"))

	require.Eventually(t, func() bool {
		comments := content.Comments(postId)
		return len(comments) == 1 &&
			comments[0].Id == commentId &&
			comments[0].Text == "first!" &&
			comments[0].User.Id == "a"
	}, waitFor, tick)

	require.NoError(t, content.DeleteComment(ctx, postId, commentId))
	assert.Equal(t, int64(0), readPostCounter(t, s, postId, "comments"))
	require.Eventually(t, func() bool {
		return len(content.Comments(postId)) == 0
	}, waitFor, tick)
}

func TestCommentsSortOldestFirst(t *testing.T) {
	s := store.NewMemoryStore()
	_, content := startContent(t, s, "a", nil)
	ctx := context.Background()

	postId, err := content.AddPost(ctx, "threaded", "")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, fmt.Sprintf("comments/%s/c2", postId), map[string]interface{}{
		"text": "second", "userId": "a", "likes": 0, "createdAt": 200,
	}))
	require.NoError(t, s.Set(ctx, fmt.Sprintf("comments/%s/c1", postId), map[string]interface{}{
		"text": "first", "userId": "a", "likes": 0, "createdAt": 100,
	}))

	require.Eventually(t, func() bool {
		comments := content.Comments(postId)
		return len(comments) == 2 &&
			comments[0].Id == "c1" && comments[1].Id == "c2"
	}, waitFor, tick)
}

func TestToggleCommentLikePair(t *testing.T) {
	s := store.NewMemoryStore()
	_, content := startContent(t, s, "a", nil)
	ctx := context.Background()

	postId, err := content.AddPost(ctx, "post", "")
	require.NoError(t, err)
	commentId, err := content.AddComment(ctx, postId, "like me")
	require.NoError(t, err)

	require.NoError(t, content.ToggleCommentLike(ctx, postId, commentId))
	require.Eventually(t, func() bool {
		comments := content.Comments(postId)
		return len(comments) == 1 &&
			comments[0].Likes == 1 &&
			comments[0].LikedByCurrentUser
	}, waitFor, tick)

	require.NoError(t, content.ToggleCommentLike(ctx, postId, commentId))
	require.Eventually(t, func() bool {
		comments := content.Comments(postId)
		return len(comments) == 1 &&
			comments[0].Likes == 0 &&
			!comments[0].LikedByCurrentUser
	}, waitFor, tick)
}

func TestDeletePostRemovesSubtreesAndBlob(t *testing.T) {
	s := store.NewMemoryStore()
	images := filestore.NewFakeImageStore()
	_, content := startContent(t, s, "a", images)
	ctx := context.Background()

	url, err := images.Upload(ctx, "a", filestore.ImageKindPost, "pic.png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	postId, err := content.AddPost(ctx, "doomed", url)
	require.NoError(t, err)
	_, err = content.AddComment(ctx, postId, "gone soon")
	require.NoError(t, err)
	require.NoError(t, content.ToggleLike(ctx, postId))

	var target model.Post
	require.Eventually(t, func() bool {
		posts := content.Posts()
		if len(posts) != 1 {
			return false
		}
		target = posts[0]
		return true
	}, waitFor, tick)

	require.NoError(t, content.DeletePost(ctx, target))
	for _, path := range []string{
		fmt.Sprintf("posts/%s", postId),
		fmt.Sprintf("comments/%s", postId),
		fmt.Sprintf("post-likes/%s", postId),
	} {
		val, err := s.Get(ctx, path)
		require.NoError(t, err)
		assert.False(t, store.Exists(val), path)
	}
	assert.Equal(t, []string{url}, images.Deleted)

	require.Eventually(t, func() bool {
		return len(content.Posts()) == 0 && len(content.commentSubs.Active()) == 0
	}, waitFor, tick)
}

func TestDeleteChecksOwnership(t *testing.T) {
	s := store.NewMemoryStore()
	seedUser(t, s, "b", "Bob", "bob")
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "posts/pb", map[string]interface{}{
		"user":               map[string]interface{}{"id": "b"},
		"content":            "bob's post",
		"likes":              0,
		"comments":           0,
		"createdAtTimestamp": 100,
	}))
	require.NoError(t, s.Set(ctx, "comments/pb/cb", map[string]interface{}{
		"text": "bob's comment", "userId": "b", "likes": 0, "createdAt": 100,
	}))
	_, content := startContent(t, s, "a", nil)

	var target model.Post
	require.Eventually(t, func() bool {
		posts := content.Posts()
		if len(posts) != 1 {
			return false
		}
		target = posts[0]
		return true
	}, waitFor, tick)

	assert.Equal(t, ErrNotPostOwner, content.DeletePost(ctx, target))
	assert.Equal(t, ErrNotCommenter, content.DeleteComment(ctx, "pb", "cb"))
}

func TestDisplayTime(t *testing.T) {
	assert.Equal(t, "Just now", displayTime(""))
	assert.Equal(t, "not a time", displayTime("not a time"))
	assert.NotEmpty(t, displayTime("2026-08-31T12:00:00Z"))
}
