package cart

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/apperr"
)

const SessionsCollection = "sessions"

type MongoStore struct {
	client   *mongo.Client
	sessions *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{client: db.Client(), sessions: db.Collection(SessionsCollection)}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: 1}},
	})
	return apperr.Storage("sessions.indexes", err)
}

// versionFilter matches the document only while it is still at version. Rows
// written before versioning existed count as version 0.
func versionFilter(sessionID string, version int64) bson.M {
	if version == 0 {
		return bson.M{"_id": sessionID, "$or": bson.A{
			bson.M{"version": 0},
			bson.M{"version": bson.M{"$exists": false}},
		}}
	}
	return bson.M{"_id": sessionID, "version": version}
}

func (s *MongoStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	err := s.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, apperr.Storage("sessions.get", err)
	}
	return &sess, nil
}

func (s *MongoStore) ListForMerge(ctx context.Context, sessionID, userID string) ([]Session, error) {
	filter := bson.M{"$or": bson.A{bson.M{"_id": sessionID}, bson.M{"userId": userID}}}
	cur, err := s.sessions.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}}))
	if err != nil {
		return nil, apperr.Storage("sessions.list_for_merge", err)
	}
	var out []Session
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Storage("sessions.list_for_merge", err)
	}
	return out, nil
}

func (s *MongoStore) CommitMerge(ctx context.Context, merged *Session, expectedVersion int64, absorbed []Session) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return apperr.Storage("sessions.commit_merge", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		update := bson.M{
			"$set": bson.M{"userId": merged.UserID, "cart.items": merged.Cart.Items, "updatedAt": merged.UpdatedAt},
			"$inc": bson.M{"version": 1},
		}
		res, err := s.sessions.UpdateOne(sc, versionFilter(merged.SessionID, expectedVersion), update,
			options.Update().SetUpsert(expectedVersion == 0))
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrConcurrentUpdate
		}
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 && res.UpsertedCount == 0 {
			return nil, ErrConcurrentUpdate
		}
		for _, o := range absorbed {
			res, err := s.sessions.DeleteOne(sc, versionFilter(o.SessionID, o.Version))
			if err != nil {
				return nil, err
			}
			if res.DeletedCount == 0 {
				return nil, ErrConcurrentUpdate
			}
		}
		return nil, nil
	})
	if errors.Is(err, ErrConcurrentUpdate) {
		return ErrConcurrentUpdate
	}
	return apperr.Storage("sessions.commit_merge", err)
}

func (s *MongoStore) AttachUser(ctx context.Context, sessionID, userID string) error {
	filter := bson.M{"_id": sessionID, "$or": bson.A{
		bson.M{"userId": bson.M{"$exists": false}},
		bson.M{"userId": ""},
		bson.M{"userId": nil},
	}}
	update := bson.M{"$set": bson.M{"userId": userID, "updatedAt": time.Now().UTC()}, "$inc": bson.M{"version": 1}}
	_, err := s.sessions.UpdateOne(ctx, filter, update)
	return apperr.Storage("sessions.attach_user", err)
}

func (s *MongoStore) ReplaceItems(ctx context.Context, sessionID string, items []Item, expectedVersion int64) error {
	if items == nil {
		items = []Item{}
	}
	update := bson.M{
		"$set": bson.M{"cart.items": items, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	res, err := s.sessions.UpdateOne(ctx, versionFilter(sessionID, expectedVersion), update)
	if err != nil {
		return apperr.Storage("sessions.replace_items", err)
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}
