// mongodb.go - Optional request log and terminology store

package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/analysis"
)

var mongoClient *mongo.Client
var mongoDB *mongo.Database

// InitMongoDB initializes the MongoDB connection
func InitMongoDB(cfg *configs.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.MongoURI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	mongoClient = client
	mongoDB = client.Database(cfg.MongoDBName)

	log.Println("✅ Connected to MongoDB successfully!")
	return nil
}

// Enabled reports whether a database connection was established.
func Enabled() bool {
	return mongoDB != nil
}

// CloseMongoDB closes the MongoDB connection
func CloseMongoDB() {
	if mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
		log.Println("MongoDB connection closed")
	}
}

// RequestLog is one audit record per gateway request. It records metadata
// only, never the recognized text, so the store is not a result cache.
type RequestLog struct {
	RequestID  string    `bson:"request_id" json:"request_id"`
	Provider   string    `bson:"provider" json:"provider"`
	Operation  string    `bson:"operation" json:"operation"` // "ocr", "analyze", "terminology_parse"
	Status     string    `bson:"status" json:"status"`       // "success" or "failed"
	Error      string    `bson:"error,omitempty" json:"error,omitempty"`
	DurationMs int64     `bson:"duration_ms" json:"duration_ms"`
	TextLength int       `bson:"text_length" json:"text_length"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// SaveRequestLog inserts an audit record. Best effort: a storage failure
// is logged and swallowed, never surfaced to the caller.
func SaveRequestLog(entry RequestLog) {
	if mongoDB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	collection := mongoDB.Collection("request_logs")
	if _, err := collection.InsertOne(ctx, entry); err != nil {
		log.Printf("⚠️  failed to save request log %s: %v", entry.RequestID, err)
	}
}

// TerminologyList is a stored, named terminology reference list that
// analyze requests can reference by id instead of inlining entries.
type TerminologyList struct {
	ListID    string                      `bson:"list_id" json:"list_id"`
	Name      string                      `bson:"name" json:"name"`
	Entries   []analysis.TerminologyEntry `bson:"entries" json:"entries"`
	UpdatedAt time.Time                   `bson:"updated_at" json:"updated_at"`
}

// GetTerminologyList retrieves a stored terminology list by id
func GetTerminologyList(listID string) (*TerminologyList, error) {
	if mongoDB == nil {
		return nil, fmt.Errorf("terminology store is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	collection := mongoDB.Collection("terminologies")
	filter := bson.M{"list_id": listID}

	var list TerminologyList
	err := collection.FindOne(ctx, filter).Decode(&list)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("terminology list not found: %s", listID)
		}
		return nil, fmt.Errorf("failed to query terminology list: %w", err)
	}

	return &list, nil
}
