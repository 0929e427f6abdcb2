package message

import (
	"context"
	"time"

	"PairChat/module/chat/model"
	"PairChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) InsertMessage(ctx context.Context, m *model.Message) error {
	_, err := s.MsgColl.InsertOne(ctx, m)
	return err
}

func (s *Store) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	err := s.MsgColl.FindOne(ctx, bson.M{model.MsgFieldID: id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("message", "id", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddReadBy 幂等扩充读集合（$addToSet，重复加入是 no-op）。
func (s *Store) AddReadBy(ctx context.Context, messageID string, users []string) error {
	if len(users) == 0 {
		return nil
	}
	_, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MsgFieldID: messageID},
		bson.M{"$addToSet": bson.M{model.MsgFieldReadBy: bson.M{"$each": users}}},
	)
	return err
}

// MarkRoomRead 把整个房间标记为 userID 已读（mark-read 事件的批量路径）。
func (s *Store) MarkRoomRead(ctx context.Context, roomID, userID string) error {
	_, err := s.MsgColl.UpdateMany(ctx,
		bson.M{model.MsgFieldRoomID: roomID, model.MsgFieldReadBy: bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{model.MsgFieldReadBy: userID}},
	)
	return err
}

func (s *Store) UpdateReactions(ctx context.Context, messageID string, reactions []model.Reaction) error {
	if reactions == nil {
		reactions = []model.Reaction{}
	}
	res, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MsgFieldID: messageID},
		bson.M{"$set": bson.M{model.MsgFieldReactions: reactions}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	return nil
}

// RevokeMessage 只清展示字段并打标记；历史不做物理删除。
func (s *Store) RevokeMessage(ctx context.Context, messageID string) error {
	res, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MsgFieldID: messageID},
		bson.M{
			"$set":   bson.M{model.MsgFieldIsRevoked: true},
			"$unset": bson.M{model.MsgFieldContent: "", model.MsgFieldImages: "", model.MsgFieldFileURL: ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	return nil
}

func (s *Store) EditMessage(ctx context.Context, messageID, content string, at time.Time) error {
	res, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MsgFieldID: messageID},
		bson.M{"$set": bson.M{
			model.MsgFieldContent:  content,
			model.MsgFieldIsEdited: true,
			model.MsgFieldEditedAt: at,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	return nil
}

// UnpinRoom 先摘掉房间里已置顶的消息（每房间最多一条置顶）。
func (s *Store) UnpinRoom(ctx context.Context, roomID string) error {
	_, err := s.MsgColl.UpdateMany(ctx,
		bson.M{model.MsgFieldRoomID: roomID, model.MsgFieldIsPinned: true},
		bson.M{"$set": bson.M{model.MsgFieldIsPinned: false},
			"$unset": bson.M{model.MsgFieldPinnedBy: "", model.MsgFieldPinnedAt: ""}},
	)
	return err
}

func (s *Store) PinMessage(ctx context.Context, messageID, userID string, at time.Time) error {
	res, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MsgFieldID: messageID},
		bson.M{"$set": bson.M{
			model.MsgFieldIsPinned: true,
			model.MsgFieldPinnedBy: userID,
			model.MsgFieldPinnedAt: at,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	return nil
}

func (s *Store) UnpinMessage(ctx context.Context, messageID string) error {
	res, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MsgFieldID: messageID},
		bson.M{"$set": bson.M{model.MsgFieldIsPinned: false},
			"$unset": bson.M{model.MsgFieldPinnedBy: "", model.MsgFieldPinnedAt: ""}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	return nil
}

// UpdateReminderMessage 提醒改动时同步刷新聊天流里的链接消息。
func (s *Store) UpdateReminderMessage(ctx context.Context, messageID, content string, scheduledAt time.Time, at time.Time) error {
	_, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MsgFieldID: messageID},
		bson.M{"$set": bson.M{
			model.MsgFieldContent:   content,
			"reminder.content":      content,
			"reminder.scheduled_at": scheduledAt,
			model.MsgFieldIsEdited:  true,
			model.MsgFieldEditedAt:  at,
		}},
	)
	return err
}

// MarkReminderMessageCancelled 改写消息类型而非删除。
func (s *Store) MarkReminderMessageCancelled(ctx context.Context, messageID string, at time.Time) error {
	_, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MsgFieldID: messageID},
		bson.M{"$set": bson.M{
			model.MsgFieldKind:     model.KindReminderCancelled,
			model.MsgFieldIsEdited: true,
			model.MsgFieldEditedAt: at,
		}},
	)
	return err
}
