package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cvbuilder/internal/resume"
)

// MongoStore 把文档存放在 MongoDB 集合；Swap 是按 {_id, owner_id, version} 过滤的 UpdateOne，由 MongoDB 原子执行。
type MongoStore struct {
	col *mongo.Collection
}

type mongoResume struct {
	ID         string         `bson:"_id"`
	OwnerID    uint           `bson:"owner_id"`
	Title      string         `bson:"title"`
	TemplateID string         `bson:"template_id"`
	Content    resume.Content `bson:"content"`
	Version    int64          `bson:"version"`
	CreatedAt  time.Time      `bson:"created_at"`
	UpdatedAt  time.Time      `bson:"updated_at"`
}

// NewMongoStore 包装 col，并确保按用户列表查询的索引存在。
func NewMongoStore(ctx context.Context, col *mongo.Collection) (*MongoStore, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "updated_at", Value: -1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("create owner index: %w", err)
	}
	return &MongoStore{col: col}, nil
}

func (m *MongoStore) Create(ctx context.Context, doc *resume.Document) error {
	if _, err := m.col.InsertOne(ctx, toMongo(doc)); err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, ownerID uint, id string) (*resume.Document, error) {
	var d mongoResume
	err := m.col.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find resume: %w", err)
	}
	return fromMongo(d), nil
}

func (m *MongoStore) ListByOwner(ctx context.Context, ownerID uint) ([]*resume.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer cur.Close(ctx)

	out := []*resume.Document{}
	for cur.Next(ctx) {
		var d mongoResume
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode resume: %w", err)
		}
		out = append(out, fromMongo(d))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate resumes: %w", err)
	}
	return out, nil
}

func (m *MongoStore) Swap(ctx context.Context, next *resume.Document, prevVersion int64) error {
	filter := bson.M{"_id": next.ID, "owner_id": next.OwnerID, "version": prevVersion}
	update := bson.M{"$set": bson.M{
		"title":       next.Title,
		"template_id": next.TemplateID,
		"content":     next.Content,
		"version":     next.Version,
		"updated_at":  next.UpdatedAt,
	}}
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update resume: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	count, err := m.col.CountDocuments(ctx, bson.M{"_id": next.ID, "owner_id": next.OwnerID})
	if err != nil {
		return fmt.Errorf("recheck resume: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrVersionMismatch
}

func (m *MongoStore) Delete(ctx context.Context, ownerID uint, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("delete resume: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func toMongo(doc *resume.Document) mongoResume {
	return mongoResume{
		ID:         doc.ID,
		OwnerID:    doc.OwnerID,
		Title:      doc.Title,
		TemplateID: doc.TemplateID,
		Content:    doc.Content,
		Version:    doc.Version,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

func fromMongo(d mongoResume) *resume.Document {
	return &resume.Document{
		ID:         d.ID,
		OwnerID:    d.OwnerID,
		Title:      d.Title,
		TemplateID: d.TemplateID,
		Content:    resume.Normalize(d.Content),
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
