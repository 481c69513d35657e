package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMongoDatabase is used when the URI names no database.
const DefaultMongoDatabase = "sceneguard"

const mongoCollection = "runs"

// MongoStore keeps runs in a MongoDB collection, one document per run.
// Several hosts can share a deployment through it.
type MongoStore struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// runDoc is the stored form of a Run. Creation times are kept as Unix
// nanoseconds because BSON dates only hold milliseconds.
type runDoc struct {
	ID         string `bson:"_id"`
	CreatedAt  int64  `bson:"created_at"`
	Plan       string `bson:"plan"`
	PlanHash   string `bson:"plan_hash"`
	Status     string `bson:"status"`
	Scenes     int    `bson:"scenes"`
	Elements   int    `bson:"elements"`
	Collisions int    `bson:"collisions"`
	Unresolved int    `bson:"unresolved"`
	Reflows    int    `bson:"reflows"`
	Result     []byte `bson:"result,omitempty"`
}

func toDoc(r *Run) runDoc {
	return runDoc{
		ID: r.ID, CreatedAt: r.CreatedAt.UnixNano(), Plan: r.Plan, PlanHash: r.PlanHash,
		Status: r.Status, Scenes: r.Scenes, Elements: r.Elements, Collisions: r.Collisions,
		Unresolved: r.Unresolved, Reflows: r.Reflows, Result: r.Result,
	}
}

func (d runDoc) run() *Run {
	r := &Run{
		ID: d.ID, CreatedAt: time.Unix(0, d.CreatedAt).UTC(), Plan: d.Plan, PlanHash: d.PlanHash,
		Status: d.Status, Scenes: d.Scenes, Elements: d.Elements, Collisions: d.Collisions,
		Unresolved: d.Unresolved, Reflows: d.Reflows,
	}
	if len(d.Result) > 0 {
		r.Result = d.Result
	}
	return r
}

// OpenMongo connects to uri ("mongodb://host:27017/db") and ensures the
// creation-time index exists. database overrides the one named in the URI.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri).SetConnectTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	runs := client.Database(database).Collection(mongoCollection)
	_, err = runs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &MongoStore{client: client, runs: runs}, nil
}

// Save upserts run.
func (s *MongoStore) Save(ctx context.Context, run *Run) error {
	if err := prepare(run); err != nil {
		return err
	}
	doc := toDoc(run)
	_, err := s.runs.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Get loads a run by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*Run, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var doc runDoc
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	return doc.run(), nil
}

// List returns the newest runs first, without their result payload.
func (s *MongoStore) List(ctx context.Context, limit int) ([]*Run, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"result": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer cur.Close(ctx)

	var runs []*Run
	for cur.Next(ctx) {
		var doc runDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, doc.run())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Delete removes a run.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	res, err := s.runs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
