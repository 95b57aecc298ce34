package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/chatly/chatly-backend/internal/repository"
	"github.com/chatly/chatly-backend/internal/ws"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const linkTokenLength = 15

// CanSendMessage reports whether userID may post in the group
func CanSendMessage(conv *domain.Conversation, userID string) bool {
	if !conv.IsGroup() || !conv.HasParticipant(userID) {
		return false
	}
	return conv.IsAdmin(userID) || conv.GroupSettings.Members.SendNewMessages
}

// CanEditGroupData reports whether userID may change name, description or image
func CanEditGroupData(conv *domain.Conversation, userID string) bool {
	if !conv.IsGroup() || !conv.HasParticipant(userID) {
		return false
	}
	return conv.IsAdmin(userID) || conv.GroupSettings.Members.EditGroupData
}

// CanAddMember reports whether userID may add members directly
func CanAddMember(conv *domain.Conversation, userID string) bool {
	if !conv.IsGroup() || !conv.HasParticipant(userID) {
		return false
	}
	return conv.IsAdmin(userID) || conv.GroupSettings.Members.AddOtherMembers
}

// CanSeeInviteLink reports whether userID may read the invite link token
func CanSeeInviteLink(conv *domain.Conversation, userID string) bool {
	if !conv.IsGroup() || !conv.HasParticipant(userID) {
		return false
	}
	return conv.IsAdmin(userID) || conv.GroupSettings.Members.InviteViaLink
}

// settingsPaths is the allow-list of patchable group settings. Paths outside
// the list are dropped from a patch rather than rejected.
var settingsPaths = map[string]func(*domain.GroupSettings, interface{}) error{
	"linkToken": func(s *domain.GroupSettings, v interface{}) error {
		token, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: expected a string", common.ErrValidation)
		}
		s.LinkToken = token
		return nil
	},
	"members.editGroupData":   boolSetting(func(s *domain.GroupSettings, v bool) { s.Members.EditGroupData = v }),
	"members.sendNewMessages": boolSetting(func(s *domain.GroupSettings, v bool) { s.Members.SendNewMessages = v }),
	"members.addOtherMembers": boolSetting(func(s *domain.GroupSettings, v bool) { s.Members.AddOtherMembers = v }),
	"members.inviteViaLink":   boolSetting(func(s *domain.GroupSettings, v bool) { s.Members.InviteViaLink = v }),
	"admin.approveNewMembers": boolSetting(func(s *domain.GroupSettings, v bool) { s.Admin.ApproveNewMembers = v }),
}

func boolSetting(set func(*domain.GroupSettings, bool)) func(*domain.GroupSettings, interface{}) error {
	return func(s *domain.GroupSettings, v interface{}) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: expected a boolean", common.ErrValidation)
		}
		set(s, b)
		return nil
	}
}

// GroupService owns group lifecycle, membership and the permission switches
type GroupService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
	media    *MediaService
	sink     EventSink
}

// NewGroupService creates a new GroupService
func NewGroupService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository,
	userRepo repository.UserRepository, media *MediaService, sink EventSink) *GroupService {
	if sink == nil {
		sink = nopSink{}
	}
	return &GroupService{convRepo: convRepo, msgRepo: msgRepo, userRepo: userRepo, media: media, sink: sink}
}

// CreateGroup creates a group with the actor as admin and the default
// permission switches, joins every connected member to the room and notifies
// them
func (s *GroupService) CreateGroup(ctx context.Context, adminID, name, desc string, memberIDs []string, image *MediaUpload) (*domain.ConversationResponse, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: group name required", common.ErrValidation)
	}
	participants := lo.Uniq(append([]string{adminID}, memberIDs...))
	users, err := s.userRepo.FindByIDs(participants)
	if err != nil {
		return nil, err
	}
	if len(users) != len(participants) {
		return nil, common.ErrUserNotFound
	}

	settings := domain.DefaultGroupSettings()
	conv := &domain.Conversation{
		ID:            uuid.NewString(),
		Type:          domain.ConversationGroup,
		Participants:  participants,
		AdminID:       adminID,
		GroupName:     name,
		GroupDesc:     desc,
		GroupSettings: &settings,
	}
	if image != nil {
		stored, err := s.media.Store(ctx, image, "group", adminID, conv.ID)
		if err != nil {
			return nil, err
		}
		conv.GroupImage = stored.URL
	}
	if err := s.convRepo.Create(conv); err != nil {
		return nil, err
	}

	room := ws.ConversationRoom(conv.ID)
	for _, id := range participants {
		s.sink.JoinRoom(id, room)
	}
	s.sink.EmitToUsers(participants, ws.EventAddedToGroup, conv.ToResponse("", nil))
	return conv.ToResponse(adminID, nil), nil
}

// DeleteGroup removes the group and its messages. Admin only.
func (s *GroupService) DeleteGroup(actorID, conversationID string) error {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return err
	}
	if !conv.IsAdmin(actorID) {
		return common.ErrPermission
	}
	if err := s.msgRepo.DeleteByConversation(conversationID); err != nil {
		return err
	}
	if err := s.convRepo.Delete(conversationID); err != nil {
		return err
	}

	room := ws.ConversationRoom(conversationID)
	s.sink.EmitToUsers(conv.Participants, ws.EventDeletedFromGroup, map[string]string{"conversationId": conversationID})
	for _, id := range conv.Participants {
		s.sink.LeaveRoom(id, room)
	}
	return nil
}

// AddMember adds target to the group. Requires the add-members permission.
func (s *GroupService) AddMember(actorID, conversationID, targetID string) (*domain.ConversationResponse, error) {
	if _, err := s.userRepo.FindByID(targetID); err != nil {
		return nil, err
	}
	conv, err := s.convRepo.Update(conversationID, func(conv *domain.Conversation) error {
		if !CanAddMember(conv, actorID) {
			return common.ErrPermission
		}
		if conv.HasParticipant(targetID) {
			return fmt.Errorf("%w: already a member", common.ErrValidation)
		}
		conv.Participants = append(conv.Participants, targetID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.JoinRoom(targetID, ws.ConversationRoom(conversationID))
	s.sink.EmitToUsers([]string{targetID}, ws.EventAddedToGroup, conv.ToResponse(targetID, nil))
	s.emitGroupUpdate(conv)
	return conv.ToResponse(actorID, nil), nil
}

// RemoveMember removes target from the group. Admin only; the admin leaves
// through DeleteGroup instead.
func (s *GroupService) RemoveMember(actorID, conversationID, targetID string) error {
	if targetID == actorID {
		return fmt.Errorf("%w: use leave instead", common.ErrValidation)
	}
	conv, err := s.convRepo.Update(conversationID, func(conv *domain.Conversation) error {
		if !conv.IsAdmin(actorID) {
			return common.ErrPermission
		}
		if !conv.HasParticipant(targetID) {
			return fmt.Errorf("%w: not a member", common.ErrValidation)
		}
		conv.Participants = lo.Without(conv.Participants, targetID)
		return nil
	})
	if err != nil {
		return err
	}

	s.sink.LeaveRoom(targetID, ws.ConversationRoom(conversationID))
	s.sink.EmitToUsers([]string{targetID}, ws.EventDeletedFromGroup, map[string]string{"conversationId": conversationID})
	s.emitGroupUpdate(conv)
	return nil
}

// LeaveGroup removes the actor from the group. The admin cannot leave; they
// delete the group or it stays theirs.
func (s *GroupService) LeaveGroup(actorID, conversationID string) error {
	conv, err := s.convRepo.Update(conversationID, func(conv *domain.Conversation) error {
		if !conv.IsGroup() || !conv.HasParticipant(actorID) {
			return common.ErrConversationNotFound
		}
		if conv.IsAdmin(actorID) {
			return fmt.Errorf("%w: admin cannot leave the group", common.ErrValidation)
		}
		conv.Participants = lo.Without(conv.Participants, actorID)
		return nil
	})
	if err != nil {
		return err
	}

	s.sink.LeaveRoom(actorID, ws.ConversationRoom(conversationID))
	s.emitGroupUpdate(conv)
	return nil
}

// JoinViaLink adds the caller to the group behind the invite token. Requires
// invites via link to be enabled; groups with member approval switched on do
// not admit directly.
func (s *GroupService) JoinViaLink(userID, token string) (*domain.ConversationResponse, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token required", common.ErrValidation)
	}
	found, err := s.convRepo.FindByLinkToken(token)
	if err != nil {
		return nil, err
	}
	conv, err := s.convRepo.Update(found.ID, func(conv *domain.Conversation) error {
		if conv.GroupSettings == nil || conv.GroupSettings.LinkToken != token {
			return common.ErrConversationNotFound
		}
		if !conv.GroupSettings.Members.InviteViaLink {
			return common.ErrPermission
		}
		if conv.GroupSettings.Admin.ApproveNewMembers {
			return fmt.Errorf("%w: group requires admin approval", common.ErrPermission)
		}
		if conv.HasParticipant(userID) {
			return fmt.Errorf("%w: already a member", common.ErrValidation)
		}
		conv.Participants = append(conv.Participants, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.JoinRoom(userID, ws.ConversationRoom(conv.ID))
	s.emitGroupUpdate(conv)
	return conv.ToResponse(userID, nil), nil
}

// InviteLink returns the group's invite token, generating it on first read.
// Visible to the admin always, and to members when invites via link are
// enabled.
func (s *GroupService) InviteLink(actorID, conversationID string) (string, error) {
	conv, err := s.convRepo.Update(conversationID, func(conv *domain.Conversation) error {
		if !CanSeeInviteLink(conv, actorID) {
			return common.ErrPermission
		}
		if conv.GroupSettings.LinkToken == "" {
			conv.GroupSettings.LinkToken = newLinkToken()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return conv.GroupSettings.LinkToken, nil
}

// ResetLinkToken replaces the invite token, invalidating the old link.
// Admin only.
func (s *GroupService) ResetLinkToken(actorID, conversationID string) (string, error) {
	conv, err := s.convRepo.Update(conversationID, func(conv *domain.Conversation) error {
		if !conv.IsAdmin(actorID) {
			return common.ErrPermission
		}
		old := conv.GroupSettings.LinkToken
		token := newLinkToken()
		for token == old {
			token = newLinkToken()
		}
		conv.GroupSettings.LinkToken = token
		return nil
	})
	if err != nil {
		return "", err
	}
	return conv.GroupSettings.LinkToken, nil
}

// UpdateSettings applies a partial settings patch. Admin only; unknown paths
// are dropped, and a patch that touches nothing known is rejected.
func (s *GroupService) UpdateSettings(actorID, conversationID string, patch map[string]interface{}) (*domain.ConversationResponse, error) {
	flat := flatten("", patch)
	effective := make(map[string]interface{}, len(flat))
	for path, value := range flat {
		if _, ok := settingsPaths[path]; ok {
			effective[path] = value
		}
	}
	if len(effective) == 0 {
		return nil, fmt.Errorf("%w: empty settings patch", common.ErrValidation)
	}

	conv, err := s.convRepo.Update(conversationID, func(conv *domain.Conversation) error {
		if !conv.IsAdmin(actorID) {
			return common.ErrPermission
		}
		for path, value := range effective {
			if err := settingsPaths[path](conv.GroupSettings, value); err != nil {
				return fmt.Errorf("setting %s: %w", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitGroupUpdate(conv)
	return conv.ToResponse(actorID, nil), nil
}

// UpdateGroupData changes name, description and image. Requires the
// edit-group-data permission.
func (s *GroupService) UpdateGroupData(ctx context.Context, actorID, conversationID string, name, desc *string, image *MediaUpload) (*domain.ConversationResponse, error) {
	var imageURL string
	if image != nil {
		existing, err := s.convRepo.FindByID(conversationID)
		if err != nil {
			return nil, err
		}
		stored, err := s.media.Store(ctx, image, "group", existing.AdminID, conversationID)
		if err != nil {
			return nil, err
		}
		imageURL = stored.URL
	}

	conv, err := s.convRepo.Update(conversationID, func(conv *domain.Conversation) error {
		if !CanEditGroupData(conv, actorID) {
			return common.ErrPermission
		}
		if name != nil {
			if *name == "" {
				return fmt.Errorf("%w: group name required", common.ErrValidation)
			}
			conv.GroupName = *name
		}
		if desc != nil {
			conv.GroupDesc = *desc
		}
		if imageURL != "" {
			conv.GroupImage = imageURL
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitGroupUpdate(conv)
	return conv.ToResponse(actorID, nil), nil
}

func (s *GroupService) emitGroupUpdate(conv *domain.Conversation) {
	s.sink.EmitToRooms([]string{ws.ConversationRoom(conv.ID)}, ws.EventGroupSettingsUpdated, conv.ToResponse("", nil))
}

// flatten turns a nested patch into dotted paths: {"members":{"x":true}}
// becomes {"members.x": true}
func flatten(prefix string, value map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{})
	for key, v := range value {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := v.(map[string]interface{}); ok {
			for p, nv := range flatten(path, nested) {
				flat[p] = nv
			}
			continue
		}
		flat[path] = v
	}
	return flat
}

func newLinkToken() string {
	buf := make([]byte, (linkTokenLength+1)/2)
	rand.Read(buf)
	return hex.EncodeToString(buf)[:linkTokenLength]
}
