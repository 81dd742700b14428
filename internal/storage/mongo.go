package storage

import (
	"context"
	"errors"
	"fmt"

	"anchord/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	metadataCollection = "transaction_metadata"
	anchorsCollection  = "anchors"
	stateCollection    = "service_state"

	serviceStateID = "service"

	duplicateKeyCode = 11000
)

// MongoRepository implements Repository on MongoDB, one collection per store
type MongoRepository struct {
	client   *mongo.Client
	metadata *mongo.Collection
	anchors  *mongo.Collection
	state    *mongo.Collection
}

// NewMongoRepository connects to uri and prepares the collections of database
func NewMongoRepository(ctx context.Context, uri, database string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	repo := &MongoRepository{
		client:   client,
		metadata: db.Collection(metadataCollection),
		anchors:  db.Collection(anchorsCollection),
		state:    db.Collection(stateCollection),
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return repo, nil
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "transactionNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, coll := range []*mongo.Collection{r.metadata, r.anchors} {
		if _, err := coll.Indexes().CreateOne(ctx, unique); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func byNumber(order int) bson.D {
	return bson.D{{Key: "transactionNumber", Value: order}}
}

func laterThan(after *int64) bson.M {
	if after == nil {
		return bson.M{}
	}
	return bson.M{"transactionNumber": bson.M{"$gt": *after}}
}

func (r *MongoRepository) AddTransactionMetadata(ctx context.Context, txs ...models.LedgerTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	docs := make([]any, 0, len(txs))
	for _, tx := range txs {
		docs = append(docs, tx)
	}

	_, err := r.metadata.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicates(err) {
		return fmt.Errorf("failed to save transaction metadata: %w", err)
	}
	return nil
}

// onlyDuplicates reports whether every write error is a duplicate key
func onlyDuplicates(err error) bool {
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		if bulkErr.WriteConcernError != nil {
			return false
		}
		for _, we := range bulkErr.WriteErrors {
			if we.Code != duplicateKeyCode {
				return false
			}
		}
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}

func (r *MongoRepository) GetLastTransactionMetadata(ctx context.Context) (*models.LedgerTransaction, error) {
	var tx models.LedgerTransaction
	err := r.metadata.FindOne(ctx, bson.M{}, options.FindOne().SetSort(byNumber(-1))).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last transaction metadata: %w", err)
	}
	return &tx, nil
}

func (r *MongoRepository) ListTransactionMetadata(ctx context.Context, from, to int64) ([]models.LedgerTransaction, error) {
	filter := bson.M{"transactionNumber": bson.M{"$gte": from, "$lt": to}}
	cursor, err := r.metadata.Find(ctx, filter, options.Find().SetSort(byNumber(1)))
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction metadata: %w", err)
	}

	var txs []models.LedgerTransaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
	}
	return txs, nil
}

func (r *MongoRepository) RemoveTransactionMetadataLaterThan(ctx context.Context, after *int64) error {
	if _, err := r.metadata.DeleteMany(ctx, laterThan(after)); err != nil {
		return fmt.Errorf("failed to remove transaction metadata: %w", err)
	}
	return nil
}

func (r *MongoRepository) AddAnchor(ctx context.Context, record *models.AnchorRecord) error {
	_, err := r.anchors.InsertOne(ctx, record)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to save anchor: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetAnchor(ctx context.Context, transactionNumber int64) (*models.AnchorRecord, error) {
	var record models.AnchorRecord
	err := r.anchors.FindOne(ctx, bson.M{"transactionNumber": transactionNumber}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anchor: %w", err)
	}
	return &record, nil
}

func (r *MongoRepository) ListAnchors(ctx context.Context) ([]models.AnchorRecord, error) {
	return r.findAnchors(ctx, bson.M{}, options.Find().SetSort(byNumber(1)))
}

func (r *MongoRepository) ListAnchorsLaterThan(ctx context.Context, since int64, limit int) ([]models.AnchorRecord, error) {
	opts := options.Find().SetSort(byNumber(1))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.findAnchors(ctx, laterThan(&since), opts)
}

func (r *MongoRepository) findAnchors(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.AnchorRecord, error) {
	cursor, err := r.anchors.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list anchors: %w", err)
	}

	var records []models.AnchorRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode anchors: %w", err)
	}
	return records, nil
}

func (r *MongoRepository) RemoveAnchorsLaterThan(ctx context.Context, after *int64) error {
	if _, err := r.anchors.DeleteMany(ctx, laterThan(after)); err != nil {
		return fmt.Errorf("failed to remove anchors: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetServiceState(ctx context.Context) (*models.ServiceState, error) {
	var state models.ServiceState
	err := r.state.FindOne(ctx, bson.M{"_id": serviceStateID}).Decode(&state)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service state: %w", err)
	}
	return &state, nil
}

func (r *MongoRepository) PutServiceState(ctx context.Context, state *models.ServiceState) error {
	doc := bson.M{
		"_id":             serviceStateID,
		"databaseVersion": state.DatabaseVersion,
		"updatedAt":       state.UpdatedAt,
	}
	_, err := r.state.ReplaceOne(ctx, bson.M{"_id": serviceStateID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save service state: %w", err)
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}
