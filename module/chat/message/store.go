package message

import (
	"PairChat/module/chat/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store Mongo 持久层。实现 service/chat.Store。
type Store struct {
	MsgColl      *mongo.Collection
	ConvColl     *mongo.Collection
	ReminderColl *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		MsgColl:      db.Collection(model.MsgTableName),
		ConvColl:     db.Collection(model.ConvTableName),
		ReminderColl: db.Collection(model.ReminderTableName),
	}
}
