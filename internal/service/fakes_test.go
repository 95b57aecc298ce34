package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
)

// In-memory repository fakes. The row-locked Update contract is emulated
// with a mutex; copies go in and out so tests catch missing saves.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		copied := *u
		r.users[u.ID] = &copied
	}
	return r
}

func (r *fakeUserRepo) FindByID(id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) FindByIDOrEmail(idOrEmail string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == idOrEmail || u.Email == idOrEmail {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (r *fakeUserRepo) FindByIDs(ids []string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Create(user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(id string, mutate func(*domain.User) error) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	if err := mutate(u); err != nil {
		return nil, err
	}
	copied := *u
	return &copied, nil
}

type fakeFriendRepo struct {
	mu     sync.Mutex
	nextID int64
	edges  map[int64]*domain.FriendRequest
}

func newFakeFriendRepo() *fakeFriendRepo {
	return &fakeFriendRepo{edges: make(map[int64]*domain.FriendRequest)}
}

func (r *fakeFriendRepo) Create(fr *domain.FriendRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	fr.ID = r.nextID
	copied := *fr
	r.edges[fr.ID] = &copied
	return nil
}

func (r *fakeFriendRepo) Save(fr *domain.FriendRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.edges[fr.ID]; !ok {
		return errors.New("edge not found")
	}
	copied := *fr
	r.edges[fr.ID] = &copied
	return nil
}

func (r *fakeFriendRepo) FindBetween(a, b string) (*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.edges {
		if (e.FromID == a && e.ToID == b) || (e.FromID == b && e.ToID == a) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeFriendRepo) FindAccepted(userID string) ([]*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.FriendRequest
	for _, e := range r.edges {
		if e.Status == domain.FriendStatusAccepted && (e.FromID == userID || e.ToID == userID) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeFriendRepo) FindPendingTo(userID string) ([]*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.FriendRequest
	for _, e := range r.edges {
		if e.Status == domain.FriendStatusPending && e.ToID == userID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeConvRepo struct {
	mu        sync.Mutex
	convs     map[string]*domain.Conversation
	createErr error
	// findKeyMisses makes FindByParticipantKey report not-found N times, to
	// stage an insert race
	findKeyMisses int
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{convs: make(map[string]*domain.Conversation)}
}

func (r *fakeConvRepo) Create(conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	if conv.ParticipantKey != nil {
		for _, c := range r.convs {
			if c.ParticipantKey != nil && *c.ParticipantKey == *conv.ParticipantKey {
				return errors.New("Duplicate entry for key participant_key")
			}
		}
	}
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = time.Now()
	copied := *conv
	r.convs[conv.ID] = &copied
	return nil
}

func (r *fakeConvRepo) FindByID(id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, common.ErrConversationNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeConvRepo) FindByParticipantKey(key string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findKeyMisses > 0 {
		r.findKeyMisses--
		return nil, common.ErrConversationNotFound
	}
	for _, c := range r.convs {
		if c.ParticipantKey != nil && *c.ParticipantKey == key {
			copied := *c
			return &copied, nil
		}
	}
	return nil, common.ErrConversationNotFound
}

func (r *fakeConvRepo) FindByParticipant(userID string) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Conversation
	for _, c := range r.convs {
		if c.HasParticipant(userID) {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeConvRepo) FindByLinkToken(token string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.IsGroup() && c.GroupSettings != nil && c.GroupSettings.LinkToken == token {
			copied := *c
			return &copied, nil
		}
	}
	return nil, common.ErrConversationNotFound
}

func (r *fakeConvRepo) Update(id string, mutate func(*domain.Conversation) error) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, common.ErrConversationNotFound
	}
	if err := mutate(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now()
	copied := *c
	return &copied, nil
}

func (r *fakeConvRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[id]; !ok {
		return common.ErrConversationNotFound
	}
	delete(r.convs, id)
	return nil
}

type fakeMsgRepo struct {
	mu       sync.Mutex
	messages map[string]*domain.Message
	seq      int
}

func newFakeMsgRepo() *fakeMsgRepo {
	return &fakeMsgRepo{messages: make(map[string]*domain.Message)}
}

func (r *fakeMsgRepo) Create(msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	// strictly increasing timestamps keep ordering deterministic
	msg.CreatedAt = time.Unix(int64(r.seq), 0)
	copied := *msg
	r.messages[msg.ID] = &copied
	return nil
}

func (r *fakeMsgRepo) FindByID(id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, common.ErrMessageNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMsgRepo) FindPage(conversationID string, after time.Time, before *time.Time, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.messages {
		if m.ConversationID != conversationID || !m.CreatedAt.After(after) {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMsgRepo) FindLatest(conversationID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Message
	for _, m := range r.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeMsgRepo) MarkAllSeen(conversationID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows int64
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.ToID == userID && !m.Seen {
			m.Seen = true
			rows++
		}
	}
	return rows, nil
}

func (r *fakeMsgRepo) Update(id string, mutate func(*domain.Message) error) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, common.ErrMessageNotFound
	}
	if err := mutate(m); err != nil {
		return nil, err
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMsgRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return common.ErrMessageNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *fakeMsgRepo) DeleteByConversation(conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.messages {
		if m.ConversationID == conversationID {
			delete(r.messages, id)
		}
	}
	return nil
}

type fakeStatusRepo struct {
	mu       sync.Mutex
	statuses map[string]*domain.Status
	seq      int
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{statuses: make(map[string]*domain.Status)}
}

func (r *fakeStatusRepo) Create(status *domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	status.CreatedAt = time.Unix(int64(r.seq), 0)
	copied := *status
	r.statuses[status.ID] = &copied
	return nil
}

func (r *fakeStatusRepo) FindByID(id string) (*domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.statuses[id]
	if !ok {
		return nil, common.ErrStatusNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStatusRepo) FindActiveByUser(userID string, now time.Time) ([]*domain.Status, error) {
	return r.FindActiveByUsers([]string{userID}, now)
}

func (r *fakeStatusRepo) FindActiveByUsers(userIDs []string, now time.Time) ([]*domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		ids[id] = true
	}
	var out []*domain.Status
	for _, s := range r.statuses {
		if ids[s.UserID] && s.IsActive(now) {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeStatusRepo) Update(id string, mutate func(*domain.Status) error) (*domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.statuses[id]
	if !ok {
		return nil, common.ErrStatusNotFound
	}
	if err := mutate(s); err != nil {
		return nil, err
	}
	copied := *s
	return &copied, nil
}

// recordedEmit is one captured sink emission
type recordedEmit struct {
	Rooms []string
	Users []string
	Event string
	Data  interface{}
}

// recordSink captures everything services push for assertions
type recordSink struct {
	mu     sync.Mutex
	emits  []recordedEmit
	joins  map[string][]string
	leaves map[string][]string
}

func newRecordSink() *recordSink {
	return &recordSink{
		joins:  make(map[string][]string),
		leaves: make(map[string][]string),
	}
}

func (s *recordSink) EmitToRooms(rooms []string, event string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emits = append(s.emits, recordedEmit{Rooms: rooms, Event: event, Data: data})
}

func (s *recordSink) EmitToUsers(userIDs []string, event string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emits = append(s.emits, recordedEmit{Users: userIDs, Event: event, Data: data})
}

func (s *recordSink) JoinRoom(userID, room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joins[userID] = append(s.joins[userID], room)
}

func (s *recordSink) LeaveRoom(userID, room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves[userID] = append(s.leaves[userID], room)
}

func (s *recordSink) eventsNamed(event string) []recordedEmit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedEmit
	for _, e := range s.emits {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// fakeUploader stores uploads in memory and can be told to fail
type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail {
		return "", errors.New("upload refused")
	}
	u.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}
