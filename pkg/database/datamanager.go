package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/logger"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	WarnsCollection = "warns"
	AuditCollection = "audit"
)

// ErrNotConnected is returned by reads while the database is offline
var ErrNotConnected = errors.New("database not connected")

// DataManagerOptions contains configuration for a DataManager
type DataManagerOptions struct {
	MaxCacheSize int
}

// DefaultDataManagerOptions returns default options for DataManager
func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{
		MaxCacheSize: 1000,
	}
}

// DataManager provides cached access to a MongoDB collection. Reads go
// through an LRU keyed by the query; writes made offline are queued on the
// owning Database.
type DataManager[T any] struct {
	name       string
	dbInstance *Database
	cache      *lru.Cache[string, *T]
}

// NewDataManager creates a new DataManager for a collection
func NewDataManager[T any](collectionName string, db *Database, opts ...DataManagerOptions) *DataManager[T] {
	dmOptions := DefaultDataManagerOptions()
	if len(opts) > 0 {
		dmOptions = opts[0]
	}
	if dmOptions.MaxCacheSize <= 0 {
		dmOptions.MaxCacheSize = DefaultDataManagerOptions().MaxCacheSize
	}

	cache, _ := lru.New[string, *T](dmOptions.MaxCacheSize)
	return &DataManager[T]{
		name:       collectionName,
		dbInstance: db,
		cache:      cache,
	}
}

// Name returns the collection name
func (dm *DataManager[T]) Name() string {
	return dm.name
}

// generateCacheKey creates a deterministic key from a query by sorting its fields
func (dm *DataManager[T]) generateCacheKey(query bson.M) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, query[k]))
	}

	return fmt.Sprintf("%s:{%s}", dm.name, strings.Join(parts, ","))
}

func (dm *DataManager[T]) collection() *mongo.Collection {
	if !dm.dbInstance.Connected() {
		return nil
	}
	return dm.dbInstance.GetCollection(dm.name)
}

func (dm *DataManager[T]) enqueue(op string, query bson.M, data interface{}) {
	if dm.dbInstance == nil {
		return
	}
	dm.dbInstance.AddToWriteQueue(QueuedOperation{
		CollectionName: dm.name,
		Query:          query,
		Operation:      op,
		Data:           data,
	})
}

// Get retrieves a document from cache or database. A missing document
// returns nil without error.
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	cacheKey := dm.generateCacheKey(query)
	if v, ok := dm.cache.Get(cacheKey); ok {
		return v, nil
	}

	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result T
	err := col.FindOne(ctx, query).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		logger.Warn(fmt.Sprintf("Fallo al leer de la DB (%s): %v", dm.name, err), "DataManager")
		return nil, err
	}

	dm.cache.Add(cacheKey, &result)
	return &result, nil
}

// Find returns the documents matching query, newest first when sortField is set
func (dm *DataManager[T]) Find(ctx context.Context, query bson.M, sortField string, limit int64) ([]*T, error) {
	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find()
	if sortField != "" {
		opts.SetSort(bson.D{{Key: sortField, Value: -1}})
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var results []*T
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		results = append(results, &doc)
	}

	return results, cursor.Err()
}

// Insert adds a new document. Offline inserts are queued.
func (dm *DataManager[T]) Insert(ctx context.Context, doc *T) error {
	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando inserción para '%s'", dm.name), "DataManager")
		dm.enqueue(OpInsert, nil, doc)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := col.InsertOne(ctx, doc); err != nil {
		logger.Error(fmt.Sprintf("Error en 'insert' para '%s'. Encolando por seguridad.", dm.name), "DataManager")
		dm.enqueue(OpInsert, nil, doc)
		return err
	}
	return nil
}

// Push appends to array fields of the document matching query, creating it
// when missing. The cached copy is dropped.
func (dm *DataManager[T]) Push(ctx context.Context, query bson.M, fields bson.M) error {
	dm.cache.Remove(dm.generateCacheKey(query))

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando escritura para '%s'", dm.name), "DataManager")
		dm.enqueue(OpPush, query, fields)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Update().SetUpsert(true)
	if _, err := col.UpdateOne(ctx, query, bson.M{"$push": fields}, opts); err != nil {
		logger.Error(fmt.Sprintf("Error en 'push' para '%s'. Encolando por seguridad.", dm.name), "DataManager")
		dm.enqueue(OpPush, query, fields)
		return err
	}
	return nil
}

// Set updates or inserts a document in the database and cache
func (dm *DataManager[T]) Set(ctx context.Context, query bson.M, data interface{}) (*T, error) {
	cacheKey := dm.generateCacheKey(query)

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando escritura para '%s'", dm.name), "DataManager")
		dm.cache.Remove(cacheKey)
		dm.enqueue(OpSet, query, data)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	if err := col.FindOneAndUpdate(ctx, query, bson.M{"$set": data}, opts).Decode(&result); err != nil {
		logger.Error(fmt.Sprintf("Error en 'set' para '%s'. Encolando por seguridad.", dm.name), "DataManager")
		dm.cache.Remove(cacheKey)
		dm.enqueue(OpSet, query, data)
		return nil, err
	}

	dm.cache.Add(cacheKey, &result)
	return &result, nil
}

// Delete removes a document from the database and cache
func (dm *DataManager[T]) Delete(ctx context.Context, query bson.M) error {
	dm.cache.Remove(dm.generateCacheKey(query))

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando eliminación para '%s'", dm.name), "DataManager")
		dm.enqueue(OpDelete, query, nil)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := col.DeleteOne(ctx, query); err != nil {
		logger.Error(fmt.Sprintf("Error en 'delete' para '%s'. Encolando por seguridad.", dm.name), "DataManager")
		dm.enqueue(OpDelete, query, nil)
		return err
	}
	return nil
}

// ClearCache clears the cache of this collection
func (dm *DataManager[T]) ClearCache() {
	dm.cache.Purge()
}

// CacheSize returns the current cache size
func (dm *DataManager[T]) CacheSize() int {
	return dm.cache.Len()
}
