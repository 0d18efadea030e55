package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/okian/scorekeep/internal/domain/model"
)

// MongoStore keeps records in MongoDB. Reservations and users use the pseudo
// and uid as _id, so the unique _id index enforces one reservation per
// pseudo. CreateAccount needs a replica set or sharded cluster because it
// runs in a multi-document transaction.
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	settings settings
}

// ConnectMongo dials uri, pings the primary and prepares indexes.
func ConnectMongo(ctx context.Context, uri, database string, opts ...Option) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := NewMongoStore(client, database, opts...)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewMongoStore wraps an existing client.
func NewMongoStore(client *mongo.Client, database string, opts ...Option) *MongoStore {
	return &MongoStore{
		client:   client,
		db:       client.Database(database),
		settings: newSettings(opts),
	}
}

// EnsureIndexes creates the score ordering index and the (non-unique) email index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.db.Collection(s.settings.scores).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "score", Value: -1}},
	}); err != nil {
		return fmt.Errorf("mongo score index: %w", err)
	}
	if _, err := s.db.Collection(s.settings.users).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	}); err != nil {
		return fmt.Errorf("mongo email index: %w", err)
	}
	return nil
}

// AddScore inserts a score stamped with the store clock.
func (s *MongoStore) AddScore(ctx context.Context, pseudo string, score float64) error {
	_, err := s.db.Collection(s.settings.scores).InsertOne(ctx, model.Score{
		Pseudo:    pseudo,
		Score:     score,
		CreatedAt: s.settings.clock().UTC(),
	})
	if err != nil {
		return fmt.Errorf("mongo add score: %w", err)
	}
	return nil
}

// TopScores sorts by score descending, then natural order.
func (s *MongoStore) TopScores(ctx context.Context, limit int) ([]model.Score, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.D{{Key: "_id", Value: 0}})
	cur, err := s.db.Collection(s.settings.scores).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo top scores: %w", err)
	}
	out := make([]model.Score, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo decode scores: %w", err)
	}
	return out, nil
}

// PseudoReserved checks for a reservation document with _id == pseudo.
func (s *MongoStore) PseudoReserved(ctx context.Context, pseudo string) (bool, error) {
	n, err := s.db.Collection(s.settings.pseudos).CountDocuments(ctx,
		bson.D{{Key: "_id", Value: pseudo}},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo get reservation: %w", err)
	}
	return n > 0, nil
}

// CreateAccount inserts the reservation and the user in one transaction. A
// duplicate _id on the reservation aborts the transaction.
func (s *MongoStore) CreateAccount(ctx context.Context, user model.User) error {
	if !model.ValidPseudo(user.Pseudo) || user.UID == "" {
		return ErrInvalidKey
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	user.CreatedAt = s.settings.clock().UTC()
	user.Password = ""
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.db.Collection(s.settings.pseudos).InsertOne(sc, model.Reservation{
			Pseudo: user.Pseudo,
			UID:    user.UID,
		}); err != nil {
			return nil, err
		}
		return s.db.Collection(s.settings.users).InsertOne(sc, user)
	})
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return ErrPseudoTaken
	default:
		return fmt.Errorf("mongo create account: %w", err)
	}
}

// FindUserByEmail returns the first user in natural order with email.
func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.db.Collection(s.settings.users).FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&u)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return model.User{}, ErrNotFound
	default:
		return model.User{}, fmt.Errorf("mongo find user: %w", err)
	}
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
