package service

import (
	"context"
	"testing"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/chatly/chatly-backend/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type groupFixture struct {
	svc   *GroupService
	convs *fakeConvRepo
	msgs  *fakeMsgRepo
	sink  *recordSink
}

func newGroupFixture(t *testing.T) *groupFixture {
	t.Helper()
	users := newFakeUserRepo(testUser("alice"), testUser("bob"), testUser("carol"), testUser("dave"))
	convs := newFakeConvRepo()
	msgs := newFakeMsgRepo()
	sink := newRecordSink()
	svc := NewGroupService(convs, msgs, users, NewMediaService(newFakeUploader()), sink)
	return &groupFixture{svc: svc, convs: convs, msgs: msgs, sink: sink}
}

func (f *groupFixture) createGroup(t *testing.T, admin string, members ...string) *domain.ConversationResponse {
	t.Helper()
	group, err := f.svc.CreateGroup(context.Background(), admin, "book club", "", members, nil)
	require.NoError(t, err)
	return group
}

func TestCreateGroupDefaults(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob", "carol")

	assert.Equal(t, "alice", group.Admin)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, group.Participants)
	require.NotNil(t, group.GroupSettings)
	assert.True(t, group.GroupSettings.Members.SendNewMessages)
	assert.False(t, group.GroupSettings.Members.EditGroupData)
	assert.False(t, group.GroupSettings.Members.AddOtherMembers)
	assert.False(t, group.GroupSettings.Members.InviteViaLink)
	assert.Empty(t, group.GroupSettings.LinkToken, "no token until first read")

	added := f.sink.eventsNamed(ws.EventAddedToGroup)
	require.Len(t, added, 1)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, added[0].Users)

	room := ws.ConversationRoom(group.ID)
	assert.Contains(t, f.sink.joins["bob"], room)
	assert.Contains(t, f.sink.joins["alice"], room)
}

func TestCreateGroupUnknownMember(t *testing.T) {
	f := newGroupFixture(t)
	_, err := f.svc.CreateGroup(context.Background(), "alice", "team", "", []string{"nobody"}, nil)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestDeleteGroupAdminOnly(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")
	require.NoError(t, f.msgs.Create(&domain.Message{ID: "m1", ConversationID: group.ID, FromID: "bob", Text: "hi"}))

	assert.ErrorIs(t, f.svc.DeleteGroup("bob", group.ID), common.ErrPermission)

	require.NoError(t, f.svc.DeleteGroup("alice", group.ID))
	_, err := f.convs.FindByID(group.ID)
	assert.ErrorIs(t, err, common.ErrConversationNotFound)
	assert.Empty(t, f.msgs.messages, "group messages go with the group")

	removed := f.sink.eventsNamed(ws.EventDeletedFromGroup)
	require.Len(t, removed, 1)
	assert.ElementsMatch(t, []string{"alice", "bob"}, removed[0].Users)
}

func TestAddMemberPermissionSwitch(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")

	// default: members cannot add
	_, err := f.svc.AddMember("bob", group.ID, "carol")
	assert.ErrorIs(t, err, common.ErrPermission)

	_, err = f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"addOtherMembers": true}})
	require.NoError(t, err)

	updated, err := f.svc.AddMember("bob", group.ID, "carol")
	require.NoError(t, err)
	assert.Contains(t, updated.Participants, "carol")
	assert.Contains(t, f.sink.joins["carol"], ws.ConversationRoom(group.ID))

	_, err = f.svc.AddMember("bob", group.ID, "carol")
	assert.ErrorIs(t, err, common.ErrValidation, "double add rejected")
}

func TestRemoveMemberAdminOnly(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob", "carol")

	assert.ErrorIs(t, f.svc.RemoveMember("bob", group.ID, "carol"), common.ErrPermission)

	require.NoError(t, f.svc.RemoveMember("alice", group.ID, "carol"))
	conv, err := f.convs.FindByID(group.ID)
	require.NoError(t, err)
	assert.NotContains(t, conv.Participants, "carol")
	assert.Contains(t, f.sink.leaves["carol"], ws.ConversationRoom(group.ID))

	removed := f.sink.eventsNamed(ws.EventDeletedFromGroup)
	require.Len(t, removed, 1)
	assert.Equal(t, []string{"carol"}, removed[0].Users)
}

func TestLeaveGroup(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")

	require.NoError(t, f.svc.LeaveGroup("bob", group.ID))
	conv, err := f.convs.FindByID(group.ID)
	require.NoError(t, err)
	assert.NotContains(t, conv.Participants, "bob")

	assert.ErrorIs(t, f.svc.LeaveGroup("alice", group.ID), common.ErrValidation, "admin cannot leave")
}

func TestInviteLinkLazyAndStable(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")

	token, err := f.svc.InviteLink("alice", group.ID)
	require.NoError(t, err)
	assert.Len(t, token, linkTokenLength)

	again, err := f.svc.InviteLink("alice", group.ID)
	require.NoError(t, err)
	assert.Equal(t, token, again, "token generated once")

	// members cannot read the token while invites are disabled
	_, err = f.svc.InviteLink("bob", group.ID)
	assert.ErrorIs(t, err, common.ErrPermission)

	_, err = f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"inviteViaLink": true}})
	require.NoError(t, err)

	memberToken, err := f.svc.InviteLink("bob", group.ID)
	require.NoError(t, err)
	assert.Equal(t, token, memberToken)
}

func TestResetLinkTokenChangesToken(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")
	token, err := f.svc.InviteLink("alice", group.ID)
	require.NoError(t, err)

	_, err = f.svc.ResetLinkToken("bob", group.ID)
	assert.ErrorIs(t, err, common.ErrPermission)

	fresh, err := f.svc.ResetLinkToken("alice", group.ID)
	require.NoError(t, err)
	assert.NotEqual(t, token, fresh)
	assert.Len(t, fresh, linkTokenLength)
}

func TestJoinViaLink(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")
	token, err := f.svc.InviteLink("alice", group.ID)
	require.NoError(t, err)

	// invites disabled: the old link admits nobody
	_, err = f.svc.JoinViaLink("carol", token)
	assert.ErrorIs(t, err, common.ErrPermission)

	_, err = f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"inviteViaLink": true}})
	require.NoError(t, err)

	joined, err := f.svc.JoinViaLink("carol", token)
	require.NoError(t, err)
	assert.Contains(t, joined.Participants, "carol")
	assert.Contains(t, f.sink.joins["carol"], ws.ConversationRoom(group.ID))

	_, err = f.svc.JoinViaLink("carol", token)
	assert.ErrorIs(t, err, common.ErrValidation, "already a member")

	_, err = f.svc.JoinViaLink("dave", "no-such-token-xx")
	assert.ErrorIs(t, err, common.ErrConversationNotFound)
}

func TestJoinViaLinkApprovalSwitch(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")
	token, err := f.svc.InviteLink("alice", group.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateSettings("alice", group.ID, map[string]interface{}{
		"members": map[string]interface{}{"inviteViaLink": true},
		"admin":   map[string]interface{}{"approveNewMembers": true},
	})
	require.NoError(t, err)

	_, err = f.svc.JoinViaLink("carol", token)
	assert.ErrorIs(t, err, common.ErrPermission)
}

func TestUpdateSettingsValidation(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")

	_, err := f.svc.UpdateSettings("bob", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"editGroupData": true}})
	assert.ErrorIs(t, err, common.ErrPermission)

	_, err = f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"editGroupData": "yes"}})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.UpdateSettings("alice", group.ID, map[string]interface{}{})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateSettingsDropsUnknownPaths(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")

	// the unknown switch is ignored, the known one still lands
	updated, err := f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"becomeAdmin": true, "editGroupData": true}})
	require.NoError(t, err)
	assert.True(t, updated.GroupSettings.Members.EditGroupData)

	// a patch with nothing known left is empty
	_, err = f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"becomeAdmin": true}})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateSettingsLinkToken(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")

	updated, err := f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"linkToken": "abcdef012345678"})
	require.NoError(t, err)
	assert.Equal(t, "abcdef012345678", updated.GroupSettings.LinkToken)

	_, err = f.svc.UpdateSettings("alice", group.ID, map[string]interface{}{"linkToken": 7})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateSettingsPartialPatch(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")

	updated, err := f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"editGroupData": true}})
	require.NoError(t, err)
	assert.True(t, updated.GroupSettings.Members.EditGroupData)
	assert.True(t, updated.GroupSettings.Members.SendNewMessages, "untouched switches keep their value")

	assert.NotEmpty(t, f.sink.eventsNamed(ws.EventGroupSettingsUpdated))
}

func TestUpdateGroupDataPermissionSwitch(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")
	name := "reading circle"

	_, err := f.svc.UpdateGroupData(context.Background(), "bob", group.ID, &name, nil, nil)
	assert.ErrorIs(t, err, common.ErrPermission)

	_, err = f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"editGroupData": true}})
	require.NoError(t, err)

	updated, err := f.svc.UpdateGroupData(context.Background(), "bob", group.ID, &name, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "reading circle", updated.GroupName)

	empty := ""
	_, err = f.svc.UpdateGroupData(context.Background(), "alice", group.ID, &empty, nil, nil)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLinkTokenProjection(t *testing.T) {
	f := newGroupFixture(t)
	group := f.createGroup(t, "alice", "bob")
	_, err := f.svc.InviteLink("alice", group.ID)
	require.NoError(t, err)

	conv, err := f.convs.FindByID(group.ID)
	require.NoError(t, err)

	adminView := conv.ToResponse("alice", nil)
	assert.NotEmpty(t, adminView.GroupSettings.LinkToken, "admin always sees the token")

	memberView := conv.ToResponse("bob", nil)
	assert.Empty(t, memberView.GroupSettings.LinkToken, "member view hides the token while invites are off")

	_, err = f.svc.UpdateSettings("alice", group.ID,
		map[string]interface{}{"members": map[string]interface{}{"inviteViaLink": true}})
	require.NoError(t, err)

	conv, err = f.convs.FindByID(group.ID)
	require.NoError(t, err)
	memberView = conv.ToResponse("bob", nil)
	assert.NotEmpty(t, memberView.GroupSettings.LinkToken)
}

func TestFlatten(t *testing.T) {
	flat := flatten("", map[string]interface{}{
		"members": map[string]interface{}{
			"editGroupData": true,
			"nested":        map[string]interface{}{"deep": false},
		},
		"top": "value",
	})
	assert.Equal(t, map[string]interface{}{
		"members.editGroupData": true,
		"members.nested.deep":   false,
		"top":                   "value",
	}, flat)
}
