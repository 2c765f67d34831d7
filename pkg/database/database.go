// Package database keeps the MongoDB audit trail: approvals, rejections,
// escalations and the per-guild warn history. Writes issued while the
// database is unreachable are queued and replayed after reconnecting.
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Operation kinds of a queued write
const (
	OpSet    = "set"
	OpDelete = "delete"
	OpInsert = "insert"
	OpPush   = "push"
)

// QueuedOperation represents a pending database operation
type QueuedOperation struct {
	CollectionName string
	Query          bson.M
	Operation      string
	Data           interface{}
}

// Database manages the MongoDB connection and data managers
type Database struct {
	client          *mongo.Client
	db              *mongo.Database
	connected       bool
	writeQueue      []QueuedOperation
	reconnectTicker *time.Ticker
	stopReconnect   chan struct{}
	stopOnce        sync.Once
	mu              sync.RWMutex
	queueMu         sync.Mutex
	collections     map[string]*mongo.Collection
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init initializes the global database instance
func Init(ctx context.Context, mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase()
		err = database.Connect(ctx, mongoURL, dbName)
	})
	return database, err
}

// Get returns the global database instance, nil when MongoDB is disabled
func Get() *Database {
	return database
}

// NewDatabase creates a new Database instance
func NewDatabase() *Database {
	return &Database{
		writeQueue:    make([]QueuedOperation, 0),
		stopReconnect: make(chan struct{}),
		collections:   make(map[string]*mongo.Collection),
	}
}

// Connected reports whether the last ping succeeded
func (d *Database) Connected() bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Connect establishes a connection to MongoDB. On failure it keeps retrying
// in the background every 15 seconds and the caller runs in offline mode.
func (d *Database) Connect(ctx context.Context, mongoURL, dbName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}

	logger.System("Intentando conectar a la base de datos...", "DB")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(mongoURL).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Critical("Fallo al conectar con la base de datos.", "DB")
		d.scheduleReconnect(mongoURL, dbName)
		return err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Critical("Fallo al verificar conexión con la base de datos.", "DB")
		_ = client.Disconnect(context.Background())
		d.scheduleReconnect(mongoURL, dbName)
		return err
	}

	d.client = client
	d.db = client.Database(dbName)
	d.collections = make(map[string]*mongo.Collection)
	d.connected = true

	logger.Success("Conectado exitosamente a la base de datos.", "DB")

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}

	go d.syncOfflineWrites()

	return nil
}

// scheduleReconnect must be called with d.mu held
func (d *Database) scheduleReconnect(mongoURL, dbName string) {
	if d.connected {
		d.connected = false
		logger.Warn("Se perdió la conexión con la base de datos. Activando modo offline.", "DB")
	}
	if d.reconnectTicker != nil {
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	d.reconnectTicker = ticker
	go func() {
		for {
			select {
			case <-ticker.C:
				logger.Info("Intentando reconectar a la base de datos...", "DB")
				if err := d.Connect(context.Background(), mongoURL, dbName); err == nil {
					return
				}
			case <-d.stopReconnect:
				return
			}
		}
	}()
}

// Disconnect closes the database connection
func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}
	d.stopOnce.Do(func() { close(d.stopReconnect) })

	if d.client != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := d.client.Disconnect(ctx); err != nil {
			return err
		}
		d.connected = false
		logger.Warn("La base de datos ha sido desconectada", "DB")
	}
	return nil
}

// Ping measures the database response time
func (d *Database) Ping(ctx context.Context) (time.Duration, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected || d.client == nil {
		return 0, fmt.Errorf("not connected to database")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := d.client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns the database connection status
func (d *Database) GetStatus(ctx context.Context) (string, bool) {
	if d == nil {
		return "⚫ | Deshabilitada", false
	}
	if _, err := d.Ping(ctx); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}

// GetCollection returns a MongoDB collection, nil while offline
func (d *Database) GetCollection(name string) *mongo.Collection {
	d.mu.RLock()
	if col, exists := d.collections[name]; exists {
		d.mu.RUnlock()
		return col
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	col := d.db.Collection(name)
	d.collections[name] = col
	return col
}

// AddToWriteQueue adds an operation to the offline write queue
func (d *Database) AddToWriteQueue(op QueuedOperation) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	d.writeQueue = append(d.writeQueue, op)
}

// QueueLength returns the number of writes waiting for a connection
func (d *Database) QueueLength() int {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return len(d.writeQueue)
}

func (d *Database) apply(ctx context.Context, col *mongo.Collection, op QueuedOperation) error {
	var err error
	switch op.Operation {
	case OpSet:
		_, err = col.UpdateOne(ctx, op.Query, bson.M{"$set": op.Data}, options.Update().SetUpsert(true))
	case OpPush:
		_, err = col.UpdateOne(ctx, op.Query, bson.M{"$push": op.Data}, options.Update().SetUpsert(true))
	case OpInsert:
		_, err = col.InsertOne(ctx, op.Data)
		if mongo.IsDuplicateKeyError(err) {
			err = nil
		}
	case OpDelete:
		_, err = col.DeleteOne(ctx, op.Query)
	default:
		err = fmt.Errorf("operación desconocida %q", op.Operation)
	}
	return err
}

// syncOfflineWrites syncs queued operations with the database
func (d *Database) syncOfflineWrites() {
	d.queueMu.Lock()
	if len(d.writeQueue) == 0 {
		d.queueMu.Unlock()
		return
	}

	logger.System(fmt.Sprintf("Sincronizando %d operaciones pendientes con la DB...", len(d.writeQueue)), "DB-Sync")

	operations := make([]QueuedOperation, len(d.writeQueue))
	copy(operations, d.writeQueue)
	d.writeQueue = make([]QueuedOperation, 0)
	d.queueMu.Unlock()

	failedOps := make([]QueuedOperation, 0)

	for _, op := range operations {
		col := d.GetCollection(op.CollectionName)
		if col == nil {
			failedOps = append(failedOps, op)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := d.apply(ctx, col, op)
		cancel()

		if err != nil {
			logger.Error(fmt.Sprintf("Error al sincronizar operación para '%s'. La operación se volverá a encolar.", op.CollectionName), "DB-Sync")
			failedOps = append(failedOps, op)
		}
	}

	if len(failedOps) > 0 {
		d.queueMu.Lock()
		d.writeQueue = append(d.writeQueue, failedOps...)
		d.queueMu.Unlock()
		logger.Warn(fmt.Sprintf("%d operaciones no pudieron sincronizarse y se reintentarán.", len(failedOps)), "DB-Sync")
	} else {
		logger.Success("Sincronización completada exitosamente.", "DB-Sync")
	}
}

// Client returns the underlying MongoDB client
func (d *Database) Client() *mongo.Client {
	return d.client
}
