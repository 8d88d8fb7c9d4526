package activitylog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumora-app/lumora/model"
	"github.com/lumora-app/lumora/store"
)

func TestVisitorRoleClassification(t *testing.T) {
	alice := &model.User{Id: "a", FollowingIds: []string{"b"}}
	bob := &model.User{Id: "b"}
	carol := &model.User{Id: "c"}

	assert.Equal(t, model.VisitorRoleSelf, VisitorRole(alice, alice))
	assert.Equal(t, model.VisitorRoleFriend, VisitorRole(alice, bob))
	assert.Equal(t, model.VisitorRoleStranger, VisitorRole(alice, carol))
}

func TestLogProfileVisitAppendsRecord(t *testing.T) {
	s := store.NewMemoryStore()
	l := NewActivityLogger(s, nil)
	ctx := context.Background()

	visitor := &model.User{Id: "a", FollowingIds: []string{"b"}}
	l.LogProfileVisit(ctx, visitor, &model.User{Id: "b"})

	val, err := s.Get(ctx, "logs/visits")
	require.NoError(t, err)
	visits, ok := val.(map[string]interface{})
	require.True(t, ok)
	require.Len(t, visits, 1)
	for _, raw := range visits {
		var entry model.VisitLog
		require.NoError(t, store.Decode(raw, &entry))
		assert.Equal(t, "a", entry.VisitorId)
		assert.Equal(t, "b", entry.ProfileId)
		assert.Equal(t, model.VisitorRoleFriend, entry.Role)
		assert.Greater(t, entry.Timestamp, int64(0))
	}
}

func TestLogProfileVisitIgnoresNilUsers(t *testing.T) {
	s := store.NewMemoryStore()
	l := NewActivityLogger(s, nil)
	ctx := context.Background()

	l.LogProfileVisit(ctx, nil, &model.User{Id: "b"})
	l.LogProfileVisit(ctx, &model.User{Id: "a"}, nil)

	val, err := s.Get(ctx, "logs/visits")
	require.NoError(t, err)
	assert.False(t, store.Exists(val))
}

func TestLogInteractionAppendsRecord(t *testing.T) {
	s := store.NewMemoryStore()
	l := NewActivityLogger(s, nil)
	ctx := context.Background()

	l.LogInteraction(ctx, &model.User{Id: "a"}, "p1", model.ContentTypePost, model.InteractionTypeLike)
	l.LogInteraction(ctx, &model.User{Id: "a"}, "", model.ContentTypePost, model.InteractionTypeLike)

	val, err := s.Get(ctx, "logs/interactions")
	require.NoError(t, err)
	interactions, ok := val.(map[string]interface{})
	require.True(t, ok)
	require.Len(t, interactions, 1)
	for _, raw := range interactions {
		var entry model.InteractionLog
		require.NoError(t, store.Decode(raw, &entry))
		assert.Equal(t, "a", entry.UserId)
		assert.Equal(t, "p1", entry.ContentId)
		assert.Equal(t, model.ContentTypePost, entry.ContentType)
		assert.Equal(t, model.InteractionTypeLike, entry.InteractionType)
	}
}
