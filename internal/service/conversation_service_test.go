package service

import (
	"testing"
	"time"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrivateIsSymmetric(t *testing.T) {
	convs := newFakeConvRepo()
	svc := NewConversationService(convs, newFakeMsgRepo())

	first, err := svc.ResolvePrivate("alice", "bob")
	require.NoError(t, err)
	second, err := svc.ResolvePrivate("bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, convs.convs, 1)
	require.NotNil(t, first.ParticipantKey)
	assert.Equal(t, "alice:bob", *first.ParticipantKey)
}

func TestResolvePrivateRejectsSelf(t *testing.T) {
	svc := NewConversationService(newFakeConvRepo(), newFakeMsgRepo())
	_, err := svc.ResolvePrivate("alice", "alice")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestResolvePrivateLosingRaceReReads(t *testing.T) {
	convs := newFakeConvRepo()
	svc := NewConversationService(convs, newFakeMsgRepo())

	// the other side wins the insert between our lookup and create: the
	// first key lookup misses, the insert hits the unique index, the
	// re-read returns the winner's row
	winner, err := svc.ResolvePrivate("bob", "alice")
	require.NoError(t, err)
	convs.findKeyMisses = 1
	convs.createErr = &duplicateEntryError{}

	conv, err := svc.ResolvePrivate("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, conv.ID)
	assert.Len(t, convs.convs, 1)
}

func TestClearHidesHistoryForViewerOnly(t *testing.T) {
	convs := newFakeConvRepo()
	msgs := newFakeMsgRepo()
	svc := NewConversationService(convs, msgs)

	conv, err := svc.ResolvePrivate("alice", "bob")
	require.NoError(t, err)
	msg := &domain.Message{ID: "m1", ConversationID: conv.ID, FromID: "bob", ToID: "alice", Text: "hi"}
	require.NoError(t, msgs.Create(msg))
	_, err = convs.Update(conv.ID, func(c *domain.Conversation) error {
		c.LastMessageID = &msg.ID
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, svc.Clear("alice", conv.ID))

	aliceView, err := svc.Get("alice", conv.ID)
	require.NoError(t, err)
	assert.Nil(t, aliceView.LastMessage, "cleared viewer sees no last message")

	bobView, err := svc.Get("bob", conv.ID)
	require.NoError(t, err)
	require.NotNil(t, bobView.LastMessage)
	assert.Equal(t, "m1", bobView.LastMessage.ID)
}

func TestClearRequiresMembership(t *testing.T) {
	convs := newFakeConvRepo()
	svc := NewConversationService(convs, newFakeMsgRepo())
	conv, err := svc.ResolvePrivate("alice", "bob")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Clear("carol", conv.ID), common.ErrPermission)
}

func TestGetHidesWatermarkedLastMessageAtBoundary(t *testing.T) {
	convs := newFakeConvRepo()
	msgs := newFakeMsgRepo()
	svc := NewConversationService(convs, msgs)

	conv, err := svc.ResolvePrivate("alice", "bob")
	require.NoError(t, err)
	msg := &domain.Message{ID: "m1", ConversationID: conv.ID, FromID: "bob", ToID: "alice", Text: "hi"}
	require.NoError(t, msgs.Create(msg))

	// watermark exactly at the message timestamp hides it (strictly-after rule)
	stored, err := msgs.FindByID("m1")
	require.NoError(t, err)
	_, err = convs.Update(conv.ID, func(c *domain.Conversation) error {
		c.LastMessageID = &msg.ID
		c.SetClearedAt("alice", stored.CreatedAt)
		return nil
	})
	require.NoError(t, err)

	view, err := svc.Get("alice", conv.ID)
	require.NoError(t, err)
	assert.Nil(t, view.LastMessage)
}

func TestListOrdersByActivity(t *testing.T) {
	convs := newFakeConvRepo()
	msgs := newFakeMsgRepo()
	svc := NewConversationService(convs, msgs)

	older, err := svc.ResolvePrivate("alice", "bob")
	require.NoError(t, err)
	attachMessage(t, convs, msgs, older, "m1", "bob")
	time.Sleep(2 * time.Millisecond)
	newer, err := svc.ResolvePrivate("alice", "carol")
	require.NoError(t, err)
	attachMessage(t, convs, msgs, newer, "m2", "carol")

	list, err := svc.List("alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestListHidesClearedAndEmptyConversations(t *testing.T) {
	convs := newFakeConvRepo()
	msgs := newFakeMsgRepo()
	svc := NewConversationService(convs, msgs)

	active, err := svc.ResolvePrivate("alice", "bob")
	require.NoError(t, err)
	attachMessage(t, convs, msgs, active, "m1", "bob")
	// resolved but never used: no visible message, so not listed
	_, err = svc.ResolvePrivate("alice", "carol")
	require.NoError(t, err)

	list, err := svc.List("alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	// clearing removes the conversation from the viewer's list only
	require.NoError(t, svc.Clear("alice", active.ID))
	list, err = svc.List("alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	bobList, err := svc.List("bob")
	require.NoError(t, err)
	assert.Len(t, bobList, 1)
}

func attachMessage(t *testing.T, convs *fakeConvRepo, msgs *fakeMsgRepo, conv *domain.Conversation, id, from string) {
	t.Helper()
	msg := &domain.Message{ID: id, ConversationID: conv.ID, FromID: from, ToID: "alice", Text: "hi"}
	require.NoError(t, msgs.Create(msg))
	_, err := convs.Update(conv.ID, func(c *domain.Conversation) error {
		c.LastMessageID = &msg.ID
		return nil
	})
	require.NoError(t, err)
}

// duplicateEntryError mirrors the driver error shape IsDuplicateKey matches
type duplicateEntryError struct{}

func (*duplicateEntryError) Error() string { return "Error 1062: Duplicate entry 'alice:bob'" }
