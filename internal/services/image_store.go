package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/pixelgrove/backend/internal/models"
)

const imagesCollection = "images"

// MongoImageStore is the metadata store client backed by a MongoDB
// collection, one document per image.
type MongoImageStore struct {
	coll *mongo.Collection
}

func NewMongoImageStore(client *mongo.Client, database string) *MongoImageStore {
	return &MongoImageStore{coll: client.Database(database).Collection(imagesCollection)}
}

// Insert stores a new image document and returns the assigned id.
func (s *MongoImageStore) Insert(ctx context.Context, image *models.Image) (bson.ObjectID, error) {
	res, err := s.coll.InsertOne(ctx, image)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("failed to insert image record: %w", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return bson.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

// FindByID returns the image with the given id, or ErrImageNotFound.
func (s *MongoImageStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Image, error) {
	var image models.Image
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&image)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to look up image: %w", err)
	}
	return &image, nil
}

// List returns up to limit images ordered by createdAt descending,
// skipping the first skip documents. Ties are broken by insertion order,
// which is fine for pagination.
func (s *MongoImageStore) List(ctx context.Context, skip, limit int64) ([]models.Image, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer cursor.Close(ctx)

	images := []models.Image{}
	if err := cursor.All(ctx, &images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	return images, nil
}

// Delete removes the image document; deleting an absent id reports
// ErrImageNotFound rather than succeeding silently.
func (s *MongoImageStore) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrImageNotFound
	}
	return nil
}
