package message

import (
	"context"
	"time"

	"PairChat/module/chat/model"
	"PairChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) InsertReminder(ctx context.Context, r *model.Reminder) error {
	_, err := s.ReminderColl.InsertOne(ctx, r)
	return err
}

func (s *Store) GetReminder(ctx context.Context, id string) (*model.Reminder, error) {
	var r model.Reminder
	err := s.ReminderColl.FindOne(ctx, bson.M{model.ReminderFieldID: id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("reminder", "id", id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SetReminderMessageID(ctx context.Context, id, messageID string) error {
	_, err := s.ReminderColl.UpdateOne(ctx,
		bson.M{model.ReminderFieldID: id},
		bson.M{"$set": bson.M{model.ReminderFieldMessageID: messageID}},
	)
	return err
}

// UpdateReminder 只有改期才把 notification_sent 置回 false；改文案不动派发状态。
func (s *Store) UpdateReminder(ctx context.Context, id string, content *string, scheduledAt *time.Time, at time.Time) error {
	set := bson.M{model.ReminderFieldUpdatedAt: at}
	if content != nil {
		set[model.ReminderFieldContent] = *content
	}
	if scheduledAt != nil {
		set[model.ReminderFieldScheduledAt] = *scheduledAt
		set[model.ReminderFieldNotified] = false
	}
	res, err := s.ReminderColl.UpdateOne(ctx,
		bson.M{model.ReminderFieldID: id},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("reminder", "id", id)
	}
	return nil
}

// CancelReminder 取消与"已派发"同一条更新落盘，堵住取消与扫描之间的竞态窗口。
func (s *Store) CancelReminder(ctx context.Context, id string, at time.Time) error {
	res, err := s.ReminderColl.UpdateOne(ctx,
		bson.M{model.ReminderFieldID: id},
		bson.M{"$set": bson.M{
			model.ReminderFieldCancelled: true,
			model.ReminderFieldNotified:  true,
			model.ReminderFieldUpdatedAt: at,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("reminder", "id", id)
	}
	return nil
}

func (s *Store) MarkReminderNotified(ctx context.Context, id string) error {
	_, err := s.ReminderColl.UpdateOne(ctx,
		bson.M{model.ReminderFieldID: id},
		bson.M{"$set": bson.M{model.ReminderFieldNotified: true}},
	)
	return err
}

// DueReminders 到期、未派发、未取消。
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	cur, err := s.ReminderColl.Find(ctx, bson.M{
		model.ReminderFieldScheduledAt: bson.M{"$lte": now},
		model.ReminderFieldNotified:    false,
		model.ReminderFieldCancelled:   false,
	})
	if err != nil {
		return nil, err
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		_ = cur.Close(ctx)
	}(cur, ctx)

	var out []model.Reminder
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
