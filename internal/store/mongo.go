package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"mermanager/internal/domain"
)

// Mongo backs the adapter with an external MongoDB. Change notification
// still flows through the process-wide hub after each committed write;
// server-side change streams would need a replica set and buy nothing at
// this scale.
type Mongo struct {
	client   *mongo.Client
	listings *mongo.Collection
	identity *mongo.Collection
	hub      *hub
}

func OpenMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	return &Mongo{
		client:   client,
		listings: db.Collection("listings"),
		identity: db.Collection("identity"),
		hub:      newHub(),
	}, nil
}

func (s *Mongo) listByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.listings.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.Listing
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Mongo) Subscribe(ownerID string, fn func([]domain.Listing)) (func(), error) {
	refresh := func() {
		ls, err := s.listByOwner(context.Background(), ownerID)
		if err != nil {
			log.Printf("[store] snapshot refresh failed for %s: %v", ownerID, err)
			return
		}
		fn(ls)
	}
	remove := s.hub.add(ownerID, refresh)
	refresh()
	return remove, nil
}

func (s *Mongo) Get(ctx context.Context, id string) (domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var l domain.Listing
	err := s.listings.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return l, ErrNotFound
	}
	return l, err
}

func (s *Mongo) Create(ctx context.Context, l domain.Listing) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	l.ID = uuid.NewString()
	if _, err := s.listings.InsertOne(ctx, l); err != nil {
		return "", err
	}
	s.hub.notify(l.OwnerID)
	return l.ID, nil
}

func (s *Mongo) Update(ctx context.Context, id string, fields map[string]any) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	set := bson.M{}
	for col, v := range fields {
		if !updatableFields[col] {
			return fmt.Errorf("update listing %s: field %q is not updatable", id, col)
		}
		set[col] = v
	}
	if len(set) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.listings.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.hub.notify(cur.OwnerID)
	return nil
}

func (s *Mongo) Delete(ctx context.Context, id string) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.listings.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	s.hub.notify(cur.OwnerID)
	return nil
}

type identityDoc struct {
	Key string `bson:"_id"`
	Doc string `bson:"doc"`
}

func (s *Mongo) SaveIdentity(ctx context.Context, key string, doc []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.identity.ReplaceOne(ctx, bson.M{"_id": key},
		identityDoc{Key: key, Doc: string(doc)}, options.Replace().SetUpsert(true))
	return err
}

func (s *Mongo) LoadIdentity(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d identityDoc
	err := s.identity.FindOne(ctx, bson.M{"_id": key}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(d.Doc), nil
}

func (s *Mongo) DeleteIdentity(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.identity.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (s *Mongo) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }
