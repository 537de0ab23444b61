package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	assert.True(t, CanTransition(StatusBacklog, StatusResearching))
	assert.True(t, CanTransition(StatusBacklog, StatusPrototyping))
	assert.True(t, CanTransition(StatusResearching, StatusValidated))

	assert.False(t, CanTransition(StatusResearching, StatusBacklog))
	assert.False(t, CanTransition(StatusPrototyping, StatusResearching))
	assert.False(t, CanTransition(StatusBacklog, StatusBacklog))
}

func TestCanTransitionRejectsUnknownStatuses(t *testing.T) {
	assert.False(t, CanTransition(Status("Bogus"), StatusResearching))
	assert.False(t, CanTransition(StatusBacklog, Status("Bogus")))
}

func TestSubjectValid(t *testing.T) {
	assert.True(t, Subject("Finance").Valid())
	assert.True(t, Subject("B2B").Valid())
	assert.False(t, Subject("Gardening").Valid())
	assert.False(t, Subject("").Valid())
}

func TestEngagementScore(t *testing.T) {
	idea := Idea{Score: 10, Comments: 5}
	assert.Equal(t, 15, idea.EngagementScore())
}
