package message

import (
	"context"
	"time"

	"PairChat/module/chat/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListHistory 过滤后的历史读取：只取 after 之后的消息，
// 先按时间倒序取最近 limit 条，再反转回正序（限定工作量且保住展示顺序）。
func (s *Store) ListHistory(ctx context.Context, roomID string, after time.Time, limit int) ([]model.Message, error) {
	filter := bson.M{model.MsgFieldRoomID: roomID}
	if !after.IsZero() {
		filter[model.MsgFieldCreatedAt] = bson.M{"$gt": after}
	}

	cur, err := s.MsgColl.Find(ctx, filter,
		options.Find().
			SetSort(bson.M{model.MsgFieldCreatedAt: -1}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		_ = cur.Close(ctx)
	}(cur, ctx)

	var out []model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	// newest-first -> chronological
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LatestMessage 房间里最近一条消息；没有则返回 nil。
func (s *Store) LatestMessage(ctx context.Context, roomID string) (*model.Message, error) {
	var m model.Message
	err := s.MsgColl.FindOne(ctx,
		bson.M{model.MsgFieldRoomID: roomID},
		options.FindOne().SetSort(bson.M{model.MsgFieldCreatedAt: -1}),
	).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
