package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalTopicIsPerType(t *testing.T) {
	assert.Equal(t, "projector/POSTS", Signal{SignalType: SignalTypePosts}.Topic())

	topics := make(map[string]bool)
	for _, st := range AllSignalType {
		assert.True(t, st.IsValid())
		topics[Signal{SignalType: st}.Topic()] = true
	}
	assert.Len(t, topics, len(AllSignalType))
}

func TestSignalTypeIsValid(t *testing.T) {
	assert.False(t, SignalType("NOT_A_SIGNAL").IsValid())
}
