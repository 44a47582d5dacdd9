package quotes

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionName = "quote_requests"

	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusClosed    = "closed"
)

// Request is a wholesale price enquiry for one product.
type Request struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID    string             `bson:"product_id"    json:"productId"`
	ProductTitle string             `bson:"product_title" json:"productTitle"`
	Brand        string             `bson:"brand"         json:"brand"`
	Name         string             `bson:"name"          json:"name"`
	Email        string             `bson:"email"         json:"email"`
	Company      string             `bson:"company"       json:"company,omitempty"`
	Phone        string             `bson:"phone"         json:"phone,omitempty"`
	Quantity     int                `bson:"quantity"      json:"quantity"`
	Message      string             `bson:"message"       json:"message"`
	Status       string             `bson:"status"        json:"status"`
	UserID       string             `bson:"user_id,omitempty" json:"userId,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"    json:"createdAt"`
}

type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func Connect(ctx context.Context, url, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	coll := client.Database(database).Collection(collectionName)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: create index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Insert(ctx context.Context, q *Request) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.Status == "" {
		q.Status = StatusNew
	}
	res, err := s.coll.InsertOne(ctx, q)
	if err != nil {
		return fmt.Errorf("mongo: insert quote: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		q.ID = oid
	}
	return nil
}

// List returns the newest requests first, optionally filtered by status.
func (s *MongoStore) List(ctx context.Context, status string, limit int64) ([]Request, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find quotes: %w", err)
	}
	defer cur.Close(ctx)

	out := []Request{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decode quotes: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
