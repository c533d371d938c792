package inventory

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/apperr"
)

const (
	ProductsCollection = "products"
	HistoryCollection  = "inventory_history"
)

// MongoStore keeps products and their ledger in one database so that a
// mutation and its history entry share a transaction. Requires a replica set.
type MongoStore struct {
	client   *mongo.Client
	products *mongo.Collection
	history  *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:   db.Client(),
		products: db.Collection(ProductsCollection),
		history:  db.Collection(HistoryCollection),
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.history.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "variantId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return apperr.Storage("inventory_history.indexes", err)
	}
	_, err = s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "trackInventory", Value: 1}, {Key: "isActive", Value: 1}},
	})
	return apperr.Storage("products.indexes", err)
}

func (s *MongoStore) Get(ctx context.Context, productID string) (*Product, error) {
	var p Product
	err := s.products.FindOne(ctx, bson.M{"_id": productID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("products.get", err)
	}
	return &p, nil
}

func (s *MongoStore) GetMany(ctx context.Context, productIDs []string) (map[string]*Product, error) {
	out := make(map[string]*Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	cur, err := s.products.Find(ctx, bson.M{"_id": bson.M{"$in": productIDs}})
	if err != nil {
		return nil, apperr.Storage("products.get_many", err)
	}
	var found []Product
	if err := cur.All(ctx, &found); err != nil {
		return nil, apperr.Storage("products.get_many", err)
	}
	for i := range found {
		out[found[i].ID] = &found[i]
	}
	return out, nil
}

// Mutate loads, edits and saves the product together with the ledger entry in
// one majority-acknowledged transaction. Errors returned by fn pass through
// unchanged; driver failures come back as apperr.StorageError.
func (s *MongoStore) Mutate(ctx context.Context, productID string, fn MutateFunc) (*Product, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, apperr.Storage("products.mutate", err)
	}
	defer sess.EndSession(ctx)

	var rejected error
	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		rejected = nil
		var p Product
		if err := s.products.FindOne(sc, bson.M{"_id": productID}).Decode(&p); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				rejected = ErrNotFound
			}
			return nil, err
		}
		entry, err := fn(&p)
		if err != nil {
			rejected = err
			return nil, err
		}
		p.UpdatedAt = entry.CreatedAt

		set := bson.M{"stock": p.Stock, "updatedAt": p.UpdatedAt}
		if len(p.Variants) > 0 {
			set["variants"] = p.Variants
		}
		if _, err := s.products.UpdateOne(sc, bson.M{"_id": productID}, bson.M{"$set": set}); err != nil {
			return nil, err
		}
		if _, err := s.history.InsertOne(sc, entry); err != nil {
			return nil, err
		}
		return &p, nil
	}, options.Transaction().SetWriteConcern(writeconcern.Majority()))
	if rejected != nil {
		return nil, rejected
	}
	if err != nil {
		return nil, apperr.Storage("products.mutate", err)
	}
	return res.(*Product), nil
}

func reservedOrZero() bson.M {
	return bson.M{"$ifNull": bson.A{"$reservedStock", 0}}
}

func (s *MongoStore) Reserve(ctx context.Context, productID string, qty int) (*Product, error) {
	filter := bson.M{
		"_id": productID,
		"$expr": bson.M{"$gte": bson.A{
			bson.M{"$subtract": bson.A{"$stock", reservedOrZero()}},
			qty,
		}},
	}
	update := bson.M{
		"$inc": bson.M{"reservedStock": qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	var p Product
	err := s.products.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, apperr.Storage("products.reserve", err)
	}
	return &p, nil
}

func (s *MongoStore) Release(ctx context.Context, productID string, qty int) (*Product, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reservedStock", Value: bson.M{"$max": bson.A{
				0,
				bson.M{"$subtract": bson.A{reservedOrZero(), qty}},
			}}},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}
	var p Product
	err := s.products.FindOneAndUpdate(ctx, bson.M{"_id": productID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("products.release", err)
	}
	return &p, nil
}

func (s *MongoStore) LowStock(ctx context.Context, limit int) ([]Product, error) {
	filter := bson.M{
		"trackInventory": true,
		"isActive":       true,
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$subtract": bson.A{"$stock", reservedOrZero()}},
			bson.M{"$ifNull": bson.A{"$lowStockThreshold", DefaultLowStockThreshold}},
		}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "stock", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Storage("products.low_stock", err)
	}
	var out []Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Storage("products.low_stock", err)
	}
	return out, nil
}

func (s *MongoStore) History(ctx context.Context, q HistoryQuery) ([]HistoryEntry, error) {
	filter := bson.M{"productId": q.ProductID}
	if q.VariantID != "" {
		filter["variantId"] = q.VariantID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))
	cur, err := s.history.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Storage("inventory_history.find", err)
	}
	out := []HistoryEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Storage("inventory_history.find", err)
	}
	return out, nil
}
