package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vovakirdan/chatrelay/internal/store"
)

const (
	DefaultDatabase   = "chat"
	DefaultCollection = "messages"
)

// MongoStore keeps chat history in a single MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// document is the stored shape of a chat message.
type document struct {
	ObjectID primitive.ObjectID `bson:"_id,omitempty"`
	ID       string             `bson:"id"`
	User     string             `bson:"user"`
	Msg      string             `bson:"msg"`
	Time     int64              `bson:"time"`
}

// New connects to uri and confirms the deployment answers a ping.
func New(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(DefaultDatabase).Collection(DefaultCollection),
	}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return s, nil
}

// Ping runs the ping command against the admin database.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// AppendMessage inserts one document.
func (s *MongoStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	doc := document{ID: msg.ID, User: msg.User, Msg: msg.Msg, Time: msg.Time}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns every document in natural order.
func (s *MongoStore) ListMessages(ctx context.Context) ([]*store.Message, error) {
	cur, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cur.Close(ctx)

	var messages []*store.Message
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, &store.Message{ID: doc.ID, User: doc.User, Msg: doc.Msg, Time: doc.Time})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// Drop removes the collection. Used by tests against a real deployment.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.collection.Drop(ctx)
}
