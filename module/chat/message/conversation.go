package message

import (
	"context"

	"PairChat/module/chat/model"
	"PairChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) GetConversation(ctx context.Context, roomID string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.ConvColl.FindOne(ctx, bson.M{model.ConvFieldRoomID: roomID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "roomId", roomID)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyMessageUpdate 单条条件更新：归零用 $set、累加用 $inc，同一条语句落盘，
// 避免"读-改-写"两趟往返被并发事件交错（归零优先于累加由调用方保证互斥集合）。
// 返回更新后的聚合（post-image），供逐成员 fanout 解出 unreadCount。
func (s *Store) ApplyMessageUpdate(ctx context.Context, roomID string, u model.ConversationUpdate) (*model.Conversation, error) {
	set := bson.M{
		model.ConvFieldLastMessage: u.Preview,
		model.ConvFieldUpdatedAt:   u.At,
	}
	if u.SenderID != "" {
		set[model.ConvFieldLastSenderID] = u.SenderID
	}
	for _, m := range u.ResetUnread {
		set[model.ConvFieldUnread+"."+m] = int64(0)
	}
	update := bson.M{"$set": set}
	if len(u.IncrementUnread) > 0 {
		inc := bson.M{}
		for _, m := range u.IncrementUnread {
			inc[model.ConvFieldUnread+"."+m] = int64(1)
		}
		update["$inc"] = inc
	}

	res := s.ConvColl.FindOneAndUpdate(ctx,
		bson.M{model.ConvFieldRoomID: roomID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var out model.Conversation
	if err := res.Decode(&out); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.ErrNotFound.WrapMsg("conversation", "roomId", roomID)
		}
		return nil, err
	}
	return &out, nil
}

// ResetUnread mark-read 路径：单成员未读归零，不碰时间戳与预览。
func (s *Store) ResetUnread(ctx context.Context, roomID, userID string) (*model.Conversation, error) {
	res := s.ConvColl.FindOneAndUpdate(ctx,
		bson.M{model.ConvFieldRoomID: roomID},
		bson.M{"$set": bson.M{model.ConvFieldUnread + "." + userID: int64(0)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var out model.Conversation
	if err := res.Decode(&out); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.ErrNotFound.WrapMsg("conversation", "roomId", roomID)
		}
		return nil, err
	}
	return &out, nil
}
