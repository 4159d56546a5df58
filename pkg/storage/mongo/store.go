package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volumetracker/config"
	"volumetracker/internal/market"
	"volumetracker/pkg/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// seriesDoc holds one whole series. Replacing a single document is atomic, so
// readers see either the previous series or the new one.
type seriesDoc struct {
	ID        string                `bson:"_id"`
	Kind      string                `bson:"kind"`
	PeriodKey string                `bson:"period_key"`
	UpdatedAt time.Time             `bson:"updated_at"`
	Count     int                   `bson:"count"`
	Hourly    []market.HourlyRecord `bson:"hourly,omitempty"`
	Daily     []market.DailyRecord  `bson:"daily,omitempty"`
}

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ storage.Store = (*Store)(nil)

// Connect dials cfg.URI and verifies the connection with a ping. Record
// fields are stored under their JSON names.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetBSONOptions(&options.BSONOptions{UseJSONStructTags: true}).
		SetConnectTimeout(timeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	return &Store{client: client, collection: coll}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func docID(kind storage.Kind, key string) string {
	return string(kind) + ":" + key
}

func (s *Store) LoadHourly(ctx context.Context, day string) ([]market.HourlyRecord, error) {
	doc, err := s.find(ctx, storage.KindHourly, day)
	if err != nil {
		return nil, err
	}
	if doc.Hourly == nil {
		return []market.HourlyRecord{}, nil
	}
	return doc.Hourly, nil
}

func (s *Store) SaveHourly(ctx context.Context, day string, records []market.HourlyRecord) error {
	return s.replace(ctx, seriesDoc{
		ID:        docID(storage.KindHourly, day),
		Kind:      string(storage.KindHourly),
		PeriodKey: day,
		Count:     len(records),
		Hourly:    records,
	})
}

func (s *Store) LoadDaily(ctx context.Context) ([]market.DailyRecord, error) {
	doc, err := s.find(ctx, storage.KindDaily, storage.DailyKey)
	if err != nil {
		return nil, err
	}
	if doc.Daily == nil {
		return []market.DailyRecord{}, nil
	}
	return doc.Daily, nil
}

func (s *Store) SaveDaily(ctx context.Context, records []market.DailyRecord) error {
	return s.replace(ctx, seriesDoc{
		ID:        docID(storage.KindDaily, storage.DailyKey),
		Kind:      string(storage.KindDaily),
		PeriodKey: storage.DailyKey,
		Count:     len(records),
		Daily:     records,
	})
}

func (s *Store) DeleteHourlyBefore(ctx context.Context, day string) (int, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{
		"kind":       string(storage.KindHourly),
		"period_key": bson.M{"$lt": day},
	})
	if err != nil {
		return 0, fmt.Errorf("delete hourly before %s: %w", day, err)
	}
	return int(res.DeletedCount), nil
}

func (s *Store) find(ctx context.Context, kind storage.Kind, key string) (seriesDoc, error) {
	var doc seriesDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": docID(kind, key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return seriesDoc{}, nil
	}
	if err != nil {
		return seriesDoc{}, fmt.Errorf("load %s/%s: %w", kind, key, err)
	}
	return doc, nil
}

func (s *Store) replace(ctx context.Context, doc seriesDoc) error {
	doc.UpdatedAt = time.Now().UTC()

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("save %s: %w", doc.ID, err)
	}
	return nil
}
