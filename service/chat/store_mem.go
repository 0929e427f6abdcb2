package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"PairChat/module/chat/model"
	"PairChat/tools/errs"
)

// MemStore Store 的内存实现：单测与本地联调用，生产走 Mongo（module/chat/message）。
type MemStore struct {
	mu        sync.RWMutex
	messages  map[string]*model.Message
	byRoom    map[string][]string // roomID -> message ids (append order)
	convs     map[string]*model.Conversation
	reminders map[string]*model.Reminder
}

func NewMemStore() *MemStore {
	return &MemStore{
		messages:  make(map[string]*model.Message),
		byRoom:    make(map[string][]string),
		convs:     make(map[string]*model.Conversation),
		reminders: make(map[string]*model.Reminder),
	}
}

// SeedConversation 预置房间（房间由外部撮合流程创建，引擎不建房）。
func (db *MemStore) SeedConversation(c *model.Conversation) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *c
	if cp.Unread == nil {
		cp.Unread = map[string]int64{}
	}
	db.convs[c.RoomID] = &cp
}

// ===== 消息 =====

func (db *MemStore) InsertMessage(ctx context.Context, m *model.Message) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *m
	db.messages[m.ID] = &cp
	db.byRoom[m.RoomID] = append(db.byRoom[m.RoomID], m.ID)
	return nil
}

func (db *MemStore) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.messages[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("message", "id", id)
	}
	cp := *m
	return &cp, nil
}

func (db *MemStore) LatestMessage(ctx context.Context, roomID string) (*model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var latest *model.Message
	for _, id := range db.byRoom[roomID] {
		m := db.messages[id]
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (db *MemStore) ListHistory(ctx context.Context, roomID string, after time.Time, limit int) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var all []model.Message
	for _, id := range db.byRoom[roomID] {
		m := db.messages[id]
		if !after.IsZero() && !m.CreatedAt.After(after) {
			continue
		}
		all = append(all, *m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:] // 最近 limit 条，保持正序
	}
	return all, nil
}

func (db *MemStore) AddReadBy(ctx context.Context, messageID string, users []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[messageID]
	if !ok {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	for _, u := range users {
		if !m.ReadByContains(u) {
			m.ReadBy = append(m.ReadBy, u)
		}
	}
	return nil
}

func (db *MemStore) MarkRoomRead(ctx context.Context, roomID, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, id := range db.byRoom[roomID] {
		m := db.messages[id]
		if !m.ReadByContains(userID) {
			m.ReadBy = append(m.ReadBy, userID)
		}
	}
	return nil
}

func (db *MemStore) UpdateReactions(ctx context.Context, messageID string, reactions []model.Reaction) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[messageID]
	if !ok {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	m.Reactions = append([]model.Reaction(nil), reactions...)
	return nil
}

func (db *MemStore) RevokeMessage(ctx context.Context, messageID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[messageID]
	if !ok {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	m.IsRevoked = true
	m.Content = ""
	m.Images = nil
	m.FileURL = ""
	return nil
}

func (db *MemStore) EditMessage(ctx context.Context, messageID, content string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[messageID]
	if !ok {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	m.Content = content
	m.IsEdited = true
	t := at
	m.EditedAt = &t
	return nil
}

func (db *MemStore) UnpinRoom(ctx context.Context, roomID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, id := range db.byRoom[roomID] {
		m := db.messages[id]
		m.IsPinned = false
		m.PinnedBy = ""
		m.PinnedAt = nil
	}
	return nil
}

func (db *MemStore) PinMessage(ctx context.Context, messageID, userID string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[messageID]
	if !ok {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	m.IsPinned = true
	m.PinnedBy = userID
	t := at
	m.PinnedAt = &t
	return nil
}

func (db *MemStore) UnpinMessage(ctx context.Context, messageID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[messageID]
	if !ok {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	m.IsPinned = false
	m.PinnedBy = ""
	m.PinnedAt = nil
	return nil
}

func (db *MemStore) UpdateReminderMessage(ctx context.Context, messageID, content string, scheduledAt time.Time, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[messageID]
	if !ok {
		return nil
	}
	m.Content = content
	if m.Reminder != nil {
		m.Reminder.Content = content
		m.Reminder.ScheduledAt = scheduledAt
	}
	m.IsEdited = true
	t := at
	m.EditedAt = &t
	return nil
}

func (db *MemStore) MarkReminderMessageCancelled(ctx context.Context, messageID string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[messageID]
	if !ok {
		return nil
	}
	m.Kind = model.KindReminderCancelled
	m.IsEdited = true
	t := at
	m.EditedAt = &t
	return nil
}

// ===== 房间聚合 =====

func (db *MemStore) GetConversation(ctx context.Context, roomID string) (*model.Conversation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.convs[roomID]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "roomId", roomID)
	}
	cp := cloneConv(c)
	return cp, nil
}

func (db *MemStore) ApplyMessageUpdate(ctx context.Context, roomID string, u model.ConversationUpdate) (*model.Conversation, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.convs[roomID]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "roomId", roomID)
	}
	c.LastMessage = u.Preview
	if u.SenderID != "" {
		c.LastSenderID = u.SenderID
	}
	c.UpdatedAt = u.At
	if c.Unread == nil {
		c.Unread = map[string]int64{}
	}
	for _, m := range u.ResetUnread {
		c.Unread[m] = 0
	}
	for _, m := range u.IncrementUnread {
		c.Unread[m]++
	}
	return cloneConv(c), nil
}

func (db *MemStore) ResetUnread(ctx context.Context, roomID, userID string) (*model.Conversation, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.convs[roomID]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "roomId", roomID)
	}
	if c.Unread == nil {
		c.Unread = map[string]int64{}
	}
	c.Unread[userID] = 0
	return cloneConv(c), nil
}

// ===== 提醒 =====

func (db *MemStore) InsertReminder(ctx context.Context, r *model.Reminder) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *r
	db.reminders[r.ID] = &cp
	return nil
}

func (db *MemStore) GetReminder(ctx context.Context, id string) (*model.Reminder, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	r, ok := db.reminders[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("reminder", "id", id)
	}
	cp := *r
	return &cp, nil
}

func (db *MemStore) SetReminderMessageID(ctx context.Context, id, messageID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if r, ok := db.reminders[id]; ok {
		r.MessageID = messageID
	}
	return nil
}

func (db *MemStore) UpdateReminder(ctx context.Context, id string, content *string, scheduledAt *time.Time, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.reminders[id]
	if !ok {
		return errs.ErrNotFound.WrapMsg("reminder", "id", id)
	}
	if content != nil {
		r.Content = *content
	}
	if scheduledAt != nil {
		r.ScheduledAt = *scheduledAt
		r.NotificationSent = false
	}
	r.UpdatedAt = at
	return nil
}

func (db *MemStore) CancelReminder(ctx context.Context, id string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.reminders[id]
	if !ok {
		return errs.ErrNotFound.WrapMsg("reminder", "id", id)
	}
	r.IsCancelled = true
	r.NotificationSent = true
	r.UpdatedAt = at
	return nil
}

func (db *MemStore) MarkReminderNotified(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if r, ok := db.reminders[id]; ok {
		r.NotificationSent = true
	}
	return nil
}

func (db *MemStore) DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []model.Reminder
	for _, r := range db.reminders {
		if !r.NotificationSent && !r.IsCancelled && !r.ScheduledAt.After(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func cloneConv(c *model.Conversation) *model.Conversation {
	cp := *c
	cp.Members = append([]string(nil), c.Members...)
	cp.Unread = make(map[string]int64, len(c.Unread))
	for k, v := range c.Unread {
		cp.Unread[k] = v
	}
	if c.ClearedAt != nil {
		cp.ClearedAt = make(map[string]time.Time, len(c.ClearedAt))
		for k, v := range c.ClearedAt {
			cp.ClearedAt[k] = v
		}
	}
	return &cp
}
