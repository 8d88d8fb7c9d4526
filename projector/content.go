package projector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lumora-app/lumora/filestore"
	"github.com/lumora-app/lumora/model"
	"github.com/lumora-app/lumora/store"
	Logger "github.com/lumora-app/lumora/utils/log"
)

var (
	ErrEmptyPost    = errors.New("post content is empty")
	ErrEmptyComment = errors.New("comment text is empty")
	ErrNotPostOwner = errors.New("only the author can delete a post")
	ErrNotCommenter = errors.New("only the author can delete a comment")
)

/*

ContentProjector owns posts and their comments. It composes beneath the
IdentityProjector, which supplies the viewer identity for the per-viewer
"liked" flags and the shared user join cache.

The post subscription fans out into one comment subscription per post,
managed so that a post disappearing tears its comment watcher down. Every
counter mutation goes through a store transaction with the missing-value
guard, post likes included.
*/
type ContentProjector struct {
	store    store.TreeStore
	identity *IdentityProjector
	images   filestore.ImageStore

	mu       sync.RWMutex
	posts    []model.Post
	comments map[string][]model.Comment

	runCtx      context.Context
	runCancel   context.CancelFunc
	commentSubs *subscriptionManager
}

// NewContentProjector wires the projector. images may be nil when post
// deletion never needs to reclaim blobs (tests).
func NewContentProjector(s store.TreeStore, identity *IdentityProjector, images filestore.ImageStore) *ContentProjector {
	return &ContentProjector{
		store:    s,
		identity: identity,
		images:   images,
		comments: make(map[string][]model.Comment),
	}
}

// Start opens the global post subscription.
func (p *ContentProjector) Start(ctx context.Context) error {
	p.runCtx, p.runCancel = context.WithCancel(ctx)
	p.commentSubs = newSubscriptionManager(p.runCtx)

	postsCh, err := p.store.Subscribe(p.runCtx, "posts")
	if err != nil {
		return errors.Wrap(err, "subscribe posts")
	}
	go func() {
		for ev := range postsCh {
			p.handlePostsEvent(p.runCtx, ev.Value)
		}
	}()
	return nil
}

func (p *ContentProjector) Close() {
	if p.commentSubs != nil {
		p.commentSubs.Close()
	}
	if p.runCancel != nil {
		p.runCancel()
	}
}

func (p *ContentProjector) Posts() []model.Post {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.Post(nil), p.posts...)
}

func (p *ContentProjector) Comments(postId string) []model.Comment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.Comment(nil), p.comments[postId]...)
}

func (p *ContentProjector) handlePostsEvent(ctx context.Context, val store.Value) {
	viewerId := ""
	if current := p.identity.CurrentUser(); current != nil {
		viewerId = current.Id
	}

	posts := make([]model.Post, 0)
	ids := []string{}
	for _, postId := range branchKeys(val) {
		var record model.PostRecord
		if err := store.Decode(branchChild(val, postId), &record); err != nil {
			Logger.Log.Warn("skipping malformed post record: ", err)
			continue
		}
		author, err := p.identity.joiner.User(ctx, record.User.Id)
		if err != nil {
			continue
		}
		liked := false
		if viewerId != "" {
			edge, err := p.store.Get(ctx, fmt.Sprintf("post-likes/%s/%s", postId, viewerId))
			if err == nil {
				liked = store.Exists(edge)
			}
		}
		posts = append(posts, model.Post{
			Id:                 postId,
			User:               author,
			Content:            record.Content,
			Image:              record.Image,
			Likes:              record.Likes,
			Comments:           record.Comments,
			CreatedAt:          displayTime(record.CreatedAt),
			CreatedAtTimestamp: record.CreatedAtTimestamp,
			Liked:              liked,
		})
		ids = append(ids, postId)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAtTimestamp > posts[j].CreatedAtTimestamp
	})

	p.mu.Lock()
	p.posts = posts
	p.mu.Unlock()
	p.identity.signal(model.SignalTypePosts, "")

	p.commentSubs.Sync(ids, func(subCtx context.Context, postId string) {
		ch, err := p.store.Subscribe(subCtx, fmt.Sprintf("comments/%s", postId))
		if err != nil {
			Logger.Log.Warn("failed to subscribe comments for post ", postId, ": ", err)
			return
		}
		go func() {
			defer func() {
				p.mu.Lock()
				delete(p.comments, postId)
				p.mu.Unlock()
			}()
			for ev := range ch {
				p.handleCommentsEvent(subCtx, postId, ev.Value)
			}
		}()
	})
}

func (p *ContentProjector) handleCommentsEvent(ctx context.Context, postId string, val store.Value) {
	viewerId := ""
	if current := p.identity.CurrentUser(); current != nil {
		viewerId = current.Id
	}

	comments := make([]model.Comment, 0)
	for _, commentId := range branchKeys(val) {
		var record model.CommentRecord
		if err := store.Decode(branchChild(val, commentId), &record); err != nil {
			continue
		}
		author, err := p.identity.joiner.User(ctx, record.UserId)
		if err != nil {
			continue
		}
		liked := false
		if viewerId != "" {
			edge, err := p.store.Get(ctx, fmt.Sprintf("comment-likes/%s/%s/%s", postId, commentId, viewerId))
			if err == nil {
				liked = store.Exists(edge)
			}
		}
		comments = append(comments, model.Comment{
			Id:                 commentId,
			User:               author,
			Text:               record.Text,
			CreatedAt:          record.CreatedAt,
			Likes:              record.Likes,
			LikedByCurrentUser: liked,
		})
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt < comments[j].CreatedAt
	})

	p.mu.Lock()
	p.comments[postId] = comments
	p.mu.Unlock()
	p.identity.signal(model.SignalTypeComments, postId)
}

// AddPost writes a post with zero counters and both timestamp forms: a
// client-side display string and the server-assigned ordering value.
func (p *ContentProjector) AddPost(ctx context.Context, content string, image string) (string, error) {
	current := p.identity.CurrentUser()
	if current == nil {
		return "", ErrNotSignedIn
	}
	if strings.TrimSpace(content) == "" && image == "" {
		return "", ErrEmptyPost
	}
	record := map[string]interface{}{
		"user":               map[string]interface{}{"id": current.Id},
		"content":            content,
		"likes":              0,
		"comments":           0,
		"createdAt":          time.Now().UTC().Format(time.RFC3339),
		"createdAtTimestamp": store.ServerTimestamp,
	}
	if image != "" {
		record["image"] = image
	}
	id, err := p.store.Push(ctx, "posts", record)
	return id, errors.Wrap(err, "add post")
}

// ToggleLike flips the viewer's like edge on a post and adjusts the counter
// through a transaction. Applying it twice restores both edge and counter.
func (p *ContentProjector) ToggleLike(ctx context.Context, postId string) error {
	current := p.identity.CurrentUser()
	if current == nil {
		return ErrNotSignedIn
	}

	edgePath := fmt.Sprintf("post-likes/%s/%s", postId, current.Id)
	edge, err := p.store.Get(ctx, edgePath)
	if err != nil {
		return errors.Wrap(err, "read like edge")
	}

	if store.Exists(edge) {
		if err := p.store.Remove(ctx, edgePath); err != nil {
			return errors.Wrap(err, "remove like edge")
		}
		return p.adjustPostCounter(ctx, postId, "likes", -1)
	}
	if err := p.store.Set(ctx, edgePath, true); err != nil {
		return errors.Wrap(err, "set like edge")
	}
	if err := p.adjustPostCounter(ctx, postId, "likes", 1); err != nil {
		return err
	}
	if p.identity.activity != nil {
		p.identity.activity.LogInteraction(ctx, current, postId, model.ContentTypePost, model.InteractionTypeLike)
	}
	return nil
}

// ToggleCommentLike is ToggleLike for a single comment.
func (p *ContentProjector) ToggleCommentLike(ctx context.Context, postId string, commentId string) error {
	current := p.identity.CurrentUser()
	if current == nil {
		return ErrNotSignedIn
	}

	edgePath := fmt.Sprintf("comment-likes/%s/%s/%s", postId, commentId, current.Id)
	commentPath := fmt.Sprintf("comments/%s/%s", postId, commentId)

	edge, err := p.store.Get(ctx, edgePath)
	if err != nil {
		return errors.Wrap(err, "read comment like edge")
	}

	delta := int64(1)
	if store.Exists(edge) {
		if err := p.store.Remove(ctx, edgePath); err != nil {
			return errors.Wrap(err, "remove comment like edge")
		}
		delta = -1
	} else {
		if err := p.store.Set(ctx, edgePath, true); err != nil {
			return errors.Wrap(err, "set comment like edge")
		}
	}
	err = p.store.Transaction(ctx, commentPath, func(currentVal store.Value) (store.Value, error) {
		record, ok := currentVal.(map[string]interface{})
		if !ok {
			return currentVal, nil
		}
		prior, ok := counterValue(record["likes"])
		if !ok {
			if delta < 0 {
				prior = 1
			} else {
				prior = 0
			}
		}
		record["likes"] = prior + delta
		return record, nil
	})
	return errors.Wrap(err, "adjust comment like counter")
}

// AddComment appends a comment with a zero like count and bumps the post's
// comment counter.
func (p *ContentProjector) AddComment(ctx context.Context, postId string, commentText string) (string, error) {
	current := p.identity.CurrentUser()
	if current == nil {
		return "", ErrNotSignedIn
	}
	if strings.TrimSpace(commentText) == "" {
		return "", ErrEmptyComment
	}

	if err := p.adjustPostCounter(ctx, postId, "comments", 1); err != nil {
		return "", err
	}
	id, err := p.store.Push(ctx, fmt.Sprintf("comments/%s", postId), map[string]interface{}{
		"text":      commentText,
		"userId":    current.Id,
		"likes":     0,
		"createdAt": store.ServerTimestamp,
	})
	if err != nil {
		return "", errors.Wrap(err, "add comment")
	}
	if p.identity.activity != nil {
		p.identity.activity.LogInteraction(ctx, current, postId, model.ContentTypePost, model.InteractionTypeComment)
	}
	return id, nil
}

// DeletePost removes the post, its comment subtree, its like-edge subtree,
// and the associated image blob if any. Author only.
func (p *ContentProjector) DeletePost(ctx context.Context, post model.Post) error {
	current := p.identity.CurrentUser()
	if current == nil {
		return ErrNotSignedIn
	}
	if current.Id != post.User.Id {
		return ErrNotPostOwner
	}
	if post.Image != "" && p.images != nil {
		// Blob deletion failure is tolerated; the record removal proceeds
		// and the blob is orphaned.
		if err := p.images.DeleteByUrl(ctx, post.Image); err != nil {
			Logger.Log.Warn("failed to delete post image: ", err)
		}
	}
	if err := p.store.Remove(ctx, fmt.Sprintf("posts/%s", post.Id)); err != nil {
		return errors.Wrap(err, "remove post")
	}
	if err := p.store.Remove(ctx, fmt.Sprintf("comments/%s", post.Id)); err != nil {
		return errors.Wrap(err, "remove post comments")
	}
	return errors.Wrap(p.store.Remove(ctx, fmt.Sprintf("post-likes/%s", post.Id)), "remove post likes")
}

// DeleteComment removes a comment and its like edges, then decrements the
// post's comment counter. Author only.
func (p *ContentProjector) DeleteComment(ctx context.Context, postId string, commentId string) error {
	current := p.identity.CurrentUser()
	if current == nil {
		return ErrNotSignedIn
	}
	commentPath := fmt.Sprintf("comments/%s/%s", postId, commentId)
	val, err := p.store.Get(ctx, commentPath)
	if err != nil {
		return errors.Wrap(err, "read comment")
	}
	if !store.Exists(val) {
		return nil
	}
	var record model.CommentRecord
	if err := store.Decode(val, &record); err != nil {
		return errors.Wrap(err, "decode comment")
	}
	if record.UserId != current.Id {
		return ErrNotCommenter
	}
	if err := p.store.Remove(ctx, commentPath); err != nil {
		return errors.Wrap(err, "remove comment")
	}
	if err := p.store.Remove(ctx, fmt.Sprintf("comment-likes/%s/%s", postId, commentId)); err != nil {
		return errors.Wrap(err, "remove comment likes")
	}
	return p.adjustPostCounter(ctx, postId, "comments", -1)
}

// adjustPostCounter mirrors the guarded user-counter transaction for post
// fields.
func (p *ContentProjector) adjustPostCounter(ctx context.Context, postId, field string, delta int64) error {
	err := p.store.Transaction(ctx, fmt.Sprintf("posts/%s", postId), func(current store.Value) (store.Value, error) {
		record, ok := current.(map[string]interface{})
		if !ok {
			return current, nil
		}
		prior, ok := counterValue(record[field])
		if !ok {
			if delta < 0 {
				prior = 1
			} else {
				prior = 0
			}
		}
		record[field] = prior + delta
		return record, nil
	})
	return errors.Wrapf(err, "adjust %s counter for post %s", field, postId)
}

// displayTime renders the stored creation string for the UI. Records written
// before the server timestamp resolves show as just posted.
func displayTime(createdAt string) string {
	if createdAt == "" {
		return "Just now"
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		return t.Local().Format("Jan 2, 2006 3:04 PM")
	}
	return createdAt
}
