package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/lumora-app/lumora/activitylog"
	"github.com/lumora-app/lumora/auth"
	"github.com/lumora-app/lumora/model"
	"github.com/lumora-app/lumora/store"
	Logger "github.com/lumora-app/lumora/utils/log"
)

var (
	ErrNotSignedIn      = errors.New("no signed-in user")
	ErrEmptyMessage     = errors.New("message text is empty")
	ErrUsernameTaken    = errors.New("username already in use")
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")

	// "Name (handle)" patterns some providers pack into the display name.
	displayNamePattern = regexp.MustCompile(`(.*) \((.*)\)`)
	handleCharset      = regexp.MustCompile(`[^a-z0-9_.]`)
)

// Registration is the validated input for creating a user record. Both the
// explicit signup flow and create-on-first-sight synthesis go through it, so
// every persisted user has a well-formed handle.
type Registration struct {
	Id       string `validate:"required"`
	Name     string `validate:"required"`
	Username string `validate:"required,handle"`
	Avatar   string `validate:"required"`
	Bio      string
	Category string
}

func newValidate() *validator.Validate {
	v := validator.New()
	// Handles are lowercase [a-z0-9_.], same charset the signup form accepts.
	v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && !handleCharset.MatchString(s)
	})
	return v
}

/*

IdentityProjector owns the authenticated identity and everything hanging off
it: the user directory, the social graph counters, the viewer's conversation
list with per-conversation message streams, and the ephemeral story set.

It subscribes to the store and republishes denormalized snapshots; mutations
are direct store writes with no local reconciliation, the subscriptions
reflect results back. Construct one per session with NewIdentityProjector and
pass it by reference - there is deliberately no package-level instance.
*/
type IdentityProjector struct {
	store    store.TreeStore
	provider auth.Provider
	bus      *gochannel.GoChannel
	activity *activitylog.ActivityLogger
	joiner   *userJoiner
	validate *validator.Validate
	nowFn    func() time.Time

	mu            sync.RWMutex
	identity      *auth.Identity
	currentUser   *model.User
	users         []model.User
	conversations []model.Conversation
	messages      map[string][]model.Message
	stories       []model.Story
	usersSeen     bool
	loading       bool

	runCtx        context.Context
	runCancel     context.CancelFunc
	sessionCancel context.CancelFunc
	convoSubs     *subscriptionManager
	unsubAuth     func()
}

// NewIdentityProjector wires the projector against its collaborators. The
// bus and activity logger may be nil in tests that only care about state.
func NewIdentityProjector(s store.TreeStore, p auth.Provider, bus *gochannel.GoChannel, activity *activitylog.ActivityLogger) (*IdentityProjector, error) {
	joiner, err := newUserJoiner(s)
	if err != nil {
		return nil, err
	}
	return &IdentityProjector{
		store:    s,
		provider: p,
		bus:      bus,
		activity: activity,
		joiner:   joiner,
		validate: newValidate(),
		nowFn:    time.Now,
		messages: make(map[string][]model.Message),
		loading:  true,
	}, nil
}

// Start opens the global subscriptions (user directory, stories) and hooks
// the auth-state listener. It returns once the subscriptions are
// established; emissions are processed in the background until Close.
func (d *IdentityProjector) Start(ctx context.Context) error {
	d.runCtx, d.runCancel = context.WithCancel(ctx)
	d.convoSubs = newSubscriptionManager(d.runCtx)

	usersCh, err := d.store.Subscribe(d.runCtx, "users")
	if err != nil {
		return errors.Wrap(err, "subscribe user directory")
	}
	storiesCh, err := d.store.Subscribe(d.runCtx, "stories")
	if err != nil {
		return errors.Wrap(err, "subscribe stories")
	}

	go func() {
		for ev := range usersCh {
			d.handleUsersEvent(d.runCtx, ev.Value)
		}
	}()
	go func() {
		for ev := range storiesCh {
			d.handleStoriesEvent(d.runCtx, ev.Value)
		}
	}()

	d.unsubAuth = d.provider.OnStateChange(func(identity *auth.Identity) {
		go d.handleAuthState(d.runCtx, identity)
	})
	return nil
}

// Close tears down the auth listener and every open subscription.
func (d *IdentityProjector) Close() {
	if d.unsubAuth != nil {
		d.unsubAuth()
	}
	if d.convoSubs != nil {
		d.convoSubs.Close()
	}
	if d.runCancel != nil {
		d.runCancel()
	}
}

// --- snapshot getters -------------------------------------------------------

func (d *IdentityProjector) Users() []model.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.User(nil), d.users...)
}

func (d *IdentityProjector) CurrentUser() *model.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.currentUser == nil {
		return nil
	}
	u := *d.currentUser
	u.FollowingIds = append([]string(nil), d.currentUser.FollowingIds...)
	return &u
}

func (d *IdentityProjector) Conversations() []model.Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.Conversation(nil), d.conversations...)
}

func (d *IdentityProjector) Messages(conversationId string) []model.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.Message(nil), d.messages[conversationId]...)
}

func (d *IdentityProjector) Stories() []model.Story {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.Story(nil), d.stories...)
}

func (d *IdentityProjector) IsLoading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

// --- auth state & registration ---------------------------------------------

func (d *IdentityProjector) handleAuthState(ctx context.Context, identity *auth.Identity) {
	d.mu.Lock()
	if d.sessionCancel != nil {
		d.sessionCancel()
		d.sessionCancel = nil
	}
	d.identity = identity
	if identity == nil {
		d.currentUser = nil
		d.conversations = nil
		d.messages = make(map[string][]model.Message)
		d.loading = false
		d.mu.Unlock()
		d.convoSubs.Close()
		d.signal(model.SignalTypeCurrentUser, "")
		d.signal(model.SignalTypeConversations, "")
		return
	}
	d.mu.Unlock()

	user, err := d.resolveSignIn(ctx, identity)
	if err != nil {
		Logger.Log.Error("failed to resolve signed-in user: ", err)
		d.mu.Lock()
		d.loading = false
		d.mu.Unlock()
		return
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.currentUser = user
	d.sessionCancel = cancel
	d.loading = false
	d.mu.Unlock()
	d.signal(model.SignalTypeCurrentUser, "")

	convosCh, err := d.store.Subscribe(sessionCtx, fmt.Sprintf("user-conversations/%s", identity.Id))
	if err != nil {
		Logger.Log.Error("failed to subscribe conversation index: ", err)
		return
	}
	go func() {
		for ev := range convosCh {
			d.handleConversationsEvent(sessionCtx, identity.Id, ev.Value)
		}
	}()
}

// resolveSignIn looks the identity up in the directory, creating the record
// on first sight from whatever the provider knows about the account.
func (d *IdentityProjector) resolveSignIn(ctx context.Context, identity *auth.Identity) (*model.User, error) {
	val, err := d.store.Get(ctx, fmt.Sprintf("users/%s", identity.Id))
	if err != nil {
		return nil, errors.Wrap(err, "look up signed-in user")
	}
	if store.Exists(val) {
		user, err := decodeUser(identity.Id, val)
		if err != nil {
			return nil, err
		}
		d.loadFollowing(ctx, &user)
		return &user, nil
	}

	reg := d.synthesizeRegistration(identity)
	if available, err := d.IsUsernameAvailable(ctx, reg.Username); err != nil {
		return nil, err
	} else if !available {
		reg.Username = fmt.Sprintf("user%d", d.nowFn().Unix())
	}
	user, err := d.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// synthesizeRegistration derives a registration from the provider
// descriptor: "Name (handle)" display names are split, otherwise the handle
// comes from the email local part, with a time-based fallback.
func (d *IdentityProjector) synthesizeRegistration(identity *auth.Identity) Registration {
	displayName := identity.DisplayName
	if displayName == "" {
		displayName = identity.Email
	}
	if displayName == "" {
		displayName = "New User"
	}

	var name, username string
	if m := displayNamePattern.FindStringSubmatch(displayName); m != nil {
		name, username = m[1], SanitizeHandle(m[2])
	} else {
		name = displayName
		if at := strings.Index(identity.Email, "@"); at > 0 {
			username = SanitizeHandle(identity.Email[:at])
		}
	}
	if username == "" {
		username = fmt.Sprintf("user%d", d.nowFn().Unix())
	}

	avatar := identity.PhotoUrl
	if avatar == "" {
		avatar = fmt.Sprintf("https://picsum.photos/seed/%s/100/100", identity.Id)
	}

	return Registration{
		Id:       identity.Id,
		Name:     name,
		Username: username,
		Avatar:   avatar,
		Bio:      "Just joined!",
		Category: "Personal Account",
	}
}

// SanitizeHandle lowercases the input and strips everything outside the
// handle charset.
func SanitizeHandle(s string) string {
	return handleCharset.ReplaceAllString(strings.ToLower(s), "")
}

// Register validates the input, re-checks handle availability at submit time
// and persists the user record. The availability check is query-before-write
// and therefore racy; the last write wins on a tie.
func (d *IdentityProjector) Register(ctx context.Context, reg Registration) (model.User, error) {
	if err := d.validate.Struct(reg); err != nil {
		return model.User{}, errors.Wrap(err, "invalid registration")
	}
	available, err := d.IsUsernameAvailable(ctx, reg.Username)
	if err != nil {
		return model.User{}, err
	}
	if !available {
		return model.User{}, ErrUsernameTaken
	}
	record := map[string]interface{}{
		"name":      reg.Name,
		"username":  reg.Username,
		"avatar":    reg.Avatar,
		"bio":       reg.Bio,
		"followers": 0,
		"following": 0,
	}
	if reg.Category != "" {
		record["category"] = reg.Category
	}
	if err := d.store.Set(ctx, fmt.Sprintf("users/%s", reg.Id), record); err != nil {
		return model.User{}, errors.Wrap(err, "persist user record")
	}
	return model.User{
		Id:       reg.Id,
		Name:     reg.Name,
		Username: reg.Username,
		Avatar:   reg.Avatar,
		Bio:      reg.Bio,
		Category: reg.Category,
	}, nil
}

// IsUsernameAvailable scans the directory for the handle. The directory is
// the sole uniqueness authority; there is no reservation step.
func (d *IdentityProjector) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.ToLower(username)
	if username == "" {
		return false, nil
	}
	val, err := d.store.Get(ctx, "users")
	if err != nil {
		return false, errors.Wrap(err, "scan user directory")
	}
	for _, id := range branchKeys(val) {
		user, err := decodeUser(id, branchChild(val, id))
		if err != nil {
			continue
		}
		if strings.ToLower(user.Username) == username {
			return false, nil
		}
	}
	return true, nil
}

// UpdateUser merges the user's editable profile fields into the record.
func (d *IdentityProjector) UpdateUser(ctx context.Context, user model.User) error {
	fields := map[string]interface{}{
		"name":     user.Name,
		"username": strings.ToLower(user.Username),
		"avatar":   user.Avatar,
		"bio":      user.Bio,
	}
	if user.Category != "" {
		fields["category"] = user.Category
	}
	return errors.Wrap(d.store.Update(ctx, fmt.Sprintf("users/%s", user.Id), fields), "update user")
}

// --- subscription handlers --------------------------------------------------

func (d *IdentityProjector) handleUsersEvent(ctx context.Context, val store.Value) {
	users := make([]model.User, 0)
	for _, id := range branchKeys(val) {
		user, err := decodeUser(id, branchChild(val, id))
		if err != nil {
			Logger.Log.Warn("skipping malformed user record: ", err)
			continue
		}
		users = append(users, user)
	}
	d.joiner.Purge()

	d.mu.Lock()
	d.users = users
	d.usersSeen = true
	current := d.currentUser
	if current != nil {
		// Refresh the viewer's own record from the directory emission.
		for i := range users {
			if users[i].Id == current.Id {
				refreshed := users[i]
				refreshed.FollowingIds = current.FollowingIds
				d.currentUser = &refreshed
				current = &refreshed
				break
			}
		}
	}
	if d.identity == nil {
		d.loading = false
	}
	d.mu.Unlock()

	// Every directory emission re-resolves the viewer's followed-id list via
	// a secondary read. The read can lose the race against the next
	// emission; the projection converges on the following one.
	if current != nil {
		refreshed := *current
		d.loadFollowing(ctx, &refreshed)
		d.mu.Lock()
		if d.currentUser != nil && d.currentUser.Id == refreshed.Id {
			d.currentUser = &refreshed
		}
		d.mu.Unlock()
		d.signal(model.SignalTypeCurrentUser, "")
	}
	d.signal(model.SignalTypeUsers, "")
}

func (d *IdentityProjector) loadFollowing(ctx context.Context, user *model.User) {
	val, err := d.store.Get(ctx, fmt.Sprintf("following/%s", user.Id))
	if err != nil {
		Logger.Log.Warn("failed to read following list: ", err)
		return
	}
	user.FollowingIds = branchKeys(val)
}

func (d *IdentityProjector) handleConversationsEvent(ctx context.Context, viewerId string, val store.Value) {
	convos := make([]model.Conversation, 0)
	ids := []string{}
	for _, convoId := range branchKeys(val) {
		var entry model.ConversationEntry
		if err := store.Decode(branchChild(val, convoId), &entry); err != nil || entry.ParticipantId == "" {
			continue
		}
		participant, err := d.joiner.User(ctx, entry.ParticipantId)
		if err != nil || participant.Name == "" {
			continue
		}
		lastVal, err := d.store.Get(ctx, fmt.Sprintf("conversations/%s/lastMessage", convoId))
		if err != nil {
			Logger.Log.Warn("failed to read last message snapshot: ", err)
			continue
		}
		var last model.LastMessage
		if store.Exists(lastVal) {
			if err := store.Decode(lastVal, &last); err != nil {
				continue
			}
		}
		text := last.Text
		if text == "" {
			text = "..."
		}
		convos = append(convos, model.Conversation{
			Id:          convoId,
			Participant: participant,
			LastMessage: model.Message{
				Text:      text,
				Sender:    model.MessageSender{Id: last.SenderId},
				Timestamp: last.Timestamp,
			},
			UnreadCount: entry.UnreadCount,
			Status:      model.ConversationStatus(entry.Status),
		})
		ids = append(ids, convoId)
	}
	sort.SliceStable(convos, func(i, j int) bool {
		return convos[i].LastMessage.Timestamp > convos[j].LastMessage.Timestamp
	})

	d.mu.Lock()
	d.conversations = convos
	d.mu.Unlock()
	d.signal(model.SignalTypeConversations, "")

	d.convoSubs.Sync(ids, func(subCtx context.Context, convoId string) {
		ch, err := d.store.Subscribe(subCtx, fmt.Sprintf("messages/%s", convoId))
		if err != nil {
			Logger.Log.Warn("failed to subscribe messages for conversation ", convoId, ": ", err)
			return
		}
		go func() {
			defer func() {
				d.mu.Lock()
				delete(d.messages, convoId)
				d.mu.Unlock()
			}()
			for ev := range ch {
				d.handleMessagesEvent(convoId, ev.Value)
			}
		}()
	})
}

func (d *IdentityProjector) handleMessagesEvent(conversationId string, val store.Value) {
	list := make([]model.Message, 0)
	for _, id := range branchKeys(val) {
		var msg model.Message
		if err := store.Decode(branchChild(val, id), &msg); err != nil {
			continue
		}
		msg.Id = id
		list = append(list, msg)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp < list[j].Timestamp
	})

	d.mu.Lock()
	d.messages[conversationId] = list
	d.mu.Unlock()
	d.signal(model.SignalTypeMessages, conversationId)
}

func (d *IdentityProjector) handleStoriesEvent(ctx context.Context, val store.Value) {
	cutoff := d.nowFn().UnixNano()/int64(time.Millisecond) - model.StoryTTLMillis

	stories := make([]model.Story, 0)
	for _, userId := range branchKeys(val) {
		user, err := d.joiner.User(ctx, userId)
		if err != nil || user.Name == "" {
			// Skip if user data is incomplete.
			continue
		}
		userStories := branchChild(val, userId)
		for _, storyId := range branchKeys(userStories) {
			var record model.StoryRecord
			if err := store.Decode(branchChild(userStories, storyId), &record); err != nil {
				continue
			}
			if record.CreatedAt <= cutoff {
				continue
			}
			stories = append(stories, model.Story{
				Id:        storyId,
				User:      user,
				Image:     record.Image,
				CreatedAt: record.CreatedAt,
			})
		}
	}
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].CreatedAt > stories[j].CreatedAt
	})

	d.mu.Lock()
	d.stories = stories
	d.mu.Unlock()
	d.signal(model.SignalTypeStories, "")
}

// --- mutations --------------------------------------------------------------

// ToggleFollow flips the viewer's follow edge on profileUser and adjusts
// both follower counters through store transactions. The edge existence
// check and the counter writes are separate operations; if they ever
// disagree the counter is transiently wrong until the next toggle.
func (d *IdentityProjector) ToggleFollow(ctx context.Context, profileUser model.User) error {
	current := d.CurrentUser()
	if current == nil {
		return ErrNotSignedIn
	}
	if current.Id == profileUser.Id {
		return errors.New("cannot follow yourself")
	}

	followingPath := fmt.Sprintf("following/%s/%s", current.Id, profileUser.Id)
	followersPath := fmt.Sprintf("followers/%s/%s", profileUser.Id, current.Id)

	edge, err := d.store.Get(ctx, followingPath)
	if err != nil {
		return errors.Wrap(err, "read follow edge")
	}

	if store.Exists(edge) {
		// Unfollow
		if err := d.store.Remove(ctx, followingPath); err != nil {
			return errors.Wrap(err, "remove follow edge")
		}
		if err := d.store.Remove(ctx, followersPath); err != nil {
			return errors.Wrap(err, "remove follower edge")
		}
		if err := d.adjustCounter(ctx, current.Id, "following", -1); err != nil {
			return err
		}
		return d.adjustCounter(ctx, profileUser.Id, "followers", -1)
	}

	// Follow
	if err := d.store.Set(ctx, followingPath, true); err != nil {
		return errors.Wrap(err, "set follow edge")
	}
	if err := d.store.Set(ctx, followersPath, true); err != nil {
		return errors.Wrap(err, "set follower edge")
	}
	if err := d.adjustCounter(ctx, current.Id, "following", 1); err != nil {
		return err
	}
	return d.adjustCounter(ctx, profileUser.Id, "followers", 1)
}

// adjustCounter runs a guarded read-modify-write on a user counter field. A
// missing value defaults to 1 before a decrement and 0 before an increment,
// so a fresh record never goes negative.
func (d *IdentityProjector) adjustCounter(ctx context.Context, userId, field string, delta int64) error {
	err := d.store.Transaction(ctx, fmt.Sprintf("users/%s", userId), func(current store.Value) (store.Value, error) {
		record, ok := current.(map[string]interface{})
		if !ok {
			// User record gone; leave it absent rather than resurrecting it.
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
	return errors.Wrapf(err, "adjust %s counter for user %s", field, userId)
}

// StartConversation returns the id of the viewer's conversation with
// profileUser, creating the shared record and both per-user index entries
// when none exists yet.
func (d *IdentityProjector) StartConversation(ctx context.Context, profileUser model.User) (string, error) {
	current := d.CurrentUser()
	if current == nil {
		return "", ErrNotSignedIn
	}
	if current.Id == profileUser.Id {
		return "", ErrSelfConversation
	}

	d.mu.RLock()
	for _, convo := range d.conversations {
		if convo.Participant.Id == profileUser.Id {
			d.mu.RUnlock()
			return convo.Id, nil
		}
	}
	d.mu.RUnlock()

	conversationId, err := d.store.Push(ctx, "conversations", map[string]interface{}{
		"participants": map[string]interface{}{
			current.Id:     true,
			profileUser.Id: true,
		},
		"createdAt":   store.ServerTimestamp,
		"lastUpdated": store.ServerTimestamp,
	})
	if err != nil {
		return "", errors.Wrap(err, "create conversation")
	}

	entries := []struct{ owner, participant string }{
		{current.Id, profileUser.Id},
		{profileUser.Id, current.Id},
	}
	for _, e := range entries {
		err := d.store.Set(ctx, fmt.Sprintf("user-conversations/%s/%s", e.owner, conversationId), map[string]interface{}{
			"participantId": e.participant,
			"lastUpdated":   store.ServerTimestamp,
			"unreadCount":   0,
		})
		if err != nil {
			return "", errors.Wrap(err, "index conversation")
		}
	}
	return conversationId, nil
}

// AddMessage appends a message with the sender's public fields denormalized
// at write time, refreshes the conversation's last-message snapshot and
// bumps the unread counter of every participant except the sender.
func (d *IdentityProjector) AddMessage(ctx context.Context, conversationId string, text string) error {
	current := d.CurrentUser()
	if current == nil {
		return ErrNotSignedIn
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	var sender model.MessageSender
	if err := copier.Copy(&sender, current); err != nil {
		return errors.Wrap(err, "snapshot sender")
	}

	if _, err := d.store.Push(ctx, fmt.Sprintf("messages/%s", conversationId), map[string]interface{}{
		"sender":    sender,
		"text":      text,
		"timestamp": store.ServerTimestamp,
	}); err != nil {
		return errors.Wrap(err, "append message")
	}

	if err := d.store.Set(ctx, fmt.Sprintf("conversations/%s/lastMessage", conversationId), map[string]interface{}{
		"text":      text,
		"senderId":  current.Id,
		"timestamp": store.ServerTimestamp,
	}); err != nil {
		return errors.Wrap(err, "update last message snapshot")
	}

	participantsVal, err := d.store.Get(ctx, fmt.Sprintf("conversations/%s/participants", conversationId))
	if err != nil {
		return errors.Wrap(err, "read participants")
	}
	for _, participantId := range branchKeys(participantsVal) {
		updates := map[string]interface{}{"lastUpdated": store.ServerTimestamp}
		if participantId != current.Id {
			updates["unreadCount"] = store.Increment(1)
		}
		if err := d.store.Update(ctx, fmt.Sprintf("user-conversations/%s/%s", participantId, conversationId), updates); err != nil {
			return errors.Wrap(err, "bump conversation index")
		}
	}

	return nil
}

// SendStoryReply starts (or reuses) the conversation with the story owner
// and sends the reply as a regular message.
func (d *IdentityProjector) SendStoryReply(ctx context.Context, storyOwner model.User, replyText string) error {
	if strings.TrimSpace(replyText) == "" {
		return ErrEmptyMessage
	}
	conversationId, err := d.StartConversation(ctx, storyOwner)
	if err != nil {
		return err
	}
	return d.AddMessage(ctx, conversationId, fmt.Sprintf("Replying to your story: %s", replyText))
}

// AddStory publishes a story under the viewer. Expiry is purely a read-time
// filter; nothing ever deletes the record.
func (d *IdentityProjector) AddStory(ctx context.Context, image string) (string, error) {
	current := d.CurrentUser()
	if current == nil {
		return "", ErrNotSignedIn
	}
	id, err := d.store.Push(ctx, fmt.Sprintf("stories/%s", current.Id), map[string]interface{}{
		"image":     image,
		"createdAt": store.ServerTimestamp,
	})
	return id, errors.Wrap(err, "add story")
}

// MarkConversationAsRead zeroes the viewer's own unread counter. No
// cross-participant effect.
func (d *IdentityProjector) MarkConversationAsRead(ctx context.Context, conversationId string) error {
	current := d.CurrentUser()
	if current == nil {
		return ErrNotSignedIn
	}
	err := d.store.Update(ctx, fmt.Sprintf("user-conversations/%s/%s", current.Id, conversationId), map[string]interface{}{
		"unreadCount": 0,
	})
	return errors.Wrap(err, "mark conversation read")
}

// UpdateConversationStatus sets or clears the viewer's archived/hidden flag
// on their own index entry.
func (d *IdentityProjector) UpdateConversationStatus(ctx context.Context, conversationId string, status model.ConversationStatus) error {
	current := d.CurrentUser()
	if current == nil {
		return ErrNotSignedIn
	}
	if !status.IsValid() {
		return errors.Errorf("invalid conversation status %q", status)
	}
	var value interface{}
	if status != model.ConversationStatusDefault {
		value = status.String()
	}
	err := d.store.Update(ctx, fmt.Sprintf("user-conversations/%s/%s", current.Id, conversationId), map[string]interface{}{
		"status": value,
	})
	return errors.Wrap(err, "update conversation status")
}

// LogProfileVisit records a profile view. Fire-and-forget.
func (d *IdentityProjector) LogProfileVisit(ctx context.Context, visitor *model.User, profile *model.User) {
	if d.activity == nil {
		return
	}
	d.activity.LogProfileVisit(ctx, visitor, profile)
}

// --- internals --------------------------------------------------------------

func (d *IdentityProjector) signal(t model.SignalType, entityId string) {
	if d.bus == nil {
		return
	}
	sig := model.Signal{SignalType: t, EntityId: entityId}
	payload, err := json.Marshal(sig)
	if err != nil {
		return
	}
	if err := d.bus.Publish(sig.Topic(), message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		Logger.Log.Warn("failed to publish signal: ", err)
	}
}

func counterValue(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	}
	return 0, false
}
