package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/minesweeper/internal/settings"
)

const defaultCollectionName = "records"

// recordDoc is keyed by the folded player and difficulty
type recordDoc struct {
	ID            string    `bson:"_id"`
	PlayerName    string    `bson:"player_name"`
	Difficulty    string    `bson:"difficulty"`
	DifficultyKey string    `bson:"difficulty_key"`
	Seconds       int       `bson:"seconds"`
	RecordedAt    time.Time `bson:"recorded_at"`
}

func (d recordDoc) toRecord() Record {
	return Record{
		PlayerName: d.PlayerName,
		Difficulty: d.Difficulty,
		Seconds:    d.Seconds,
		RecordedAt: d.RecordedAt,
	}
}

// MongoStore keeps one document per player and difficulty
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// OpenMongo connects and pings the server before returning
func OpenMongo(ctx context.Context, cfg settings.MongoConfig, log *zap.Logger) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb uri is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}

	timeout := time.Duration(cfg.ConnectTimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("open mongodb success", zap.String("database", cfg.Database))
	return client, nil
}

// NewMongoStore uses the named collection and ensures its leaderboard index
func NewMongoStore(ctx context.Context, client *mongo.Client, database, collection string) (*MongoStore, error) {
	if collection == "" {
		collection = defaultCollectionName
	}
	coll := client.Database(database).Collection(collection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "difficulty_key", Value: 1}, {Key: "seconds", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create leaderboard index: %w", err)
	}
	return &MongoStore{client: client, coll: coll, now: time.Now}, nil
}

// Add stores rec when it beats the player's best on that difficulty. The
// replace only matches a slower document, so concurrent wins keep the
// fastest time.
func (s *MongoStore) Add(ctx context.Context, rec Record) (AddResult, error) {
	if err := prepare(&rec, s.now); err != nil {
		return AddResult{}, err
	}
	id := key(rec.PlayerName, rec.Difficulty)

	doc := recordDoc{
		ID:            id,
		PlayerName:    rec.PlayerName,
		Difficulty:    rec.Difficulty,
		DifficultyKey: normalize(rec.Difficulty),
		Seconds:       rec.Seconds,
		RecordedAt:    rec.RecordedAt,
	}
	filter := bson.M{"_id": id, "seconds": bson.M{"$gt": rec.Seconds}}
	opts := options.FindOneAndReplace().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var res AddResult
	var before recordDoc
	err := s.coll.FindOneAndReplace(ctx, filter, doc, opts).Decode(&before)
	switch {
	case err == nil:
		prev := before.toRecord()
		res.Previous = &prev
		res.Stored = true
		return res, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		// Upserted a first record
		res.Stored = true
		return res, nil
	case !mongo.IsDuplicateKeyError(err):
		return AddResult{}, fmt.Errorf("failed to store record: %w", err)
	}

	// The existing best is at least as fast
	var existing recordDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&existing); err != nil {
		return AddResult{}, fmt.Errorf("failed to load record: %w", err)
	}
	prev := existing.toRecord()
	res.Previous = &prev
	return res, nil
}

// Best returns the fastest records for a difficulty, all when limit is 0
func (s *MongoStore) Best(ctx context.Context, difficulty string, limit int) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "seconds", Value: 1},
		{Key: "recorded_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.coll.Find(ctx, bson.M{"difficulty_key": normalize(difficulty)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	var docs []recordDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}

	out := make([]Record, len(docs))
	for i, d := range docs {
		out[i] = d.toRecord()
	}
	return out, nil
}

// PlayerBest returns the player's record on a difficulty or ErrRecordNotFound
func (s *MongoStore) PlayerBest(ctx context.Context, player, difficulty string) (*Record, error) {
	var doc recordDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key(player, difficulty)}).Decode(&doc)
	switch {
	case err == nil:
		r := doc.toRecord()
		return &r, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrRecordNotFound
	default:
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
