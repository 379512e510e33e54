package db

import (
	"context"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const CName = "directory.db"

//go:generate mockgen -destination mock_db/mock_db.go -package mock_db github.com/openkeydir/key-directory/db Database

var log = logger.NewNamed(CName)

// CollUserIdentity is the collection holding user identity claims.
const CollUserIdentity = "userIdentity"

type Mongo struct {
	Connect  string `yaml:"connect"`
	Database string `yaml:"database"`
}

type Database interface {
	app.ComponentRunnable
	Db() *mongo.Database

	// InsertMany attempts to insert all docs into collName and returns the ids
	// the store assigned; the inserted count is len(ids). An empty docs slice
	// succeeds without a round trip.
	InsertMany(ctx context.Context, collName string, docs []any) (ids []any, err error)
	// Find decodes all documents matching an equality filter into results,
	// which must be a pointer to a slice.
	Find(ctx context.Context, collName string, filter, results any) (err error)
	DeleteMany(ctx context.Context, collName string, filter any) (err error)
}

func New() Database {
	return &database{}
}

type mongoProvider interface {
	GetMongo() Mongo
}

type database struct {
	conf   Mongo
	client *mongo.Client
	db     *mongo.Database
}

func (d *database) Init(a *app.App) (err error) {
	d.conf = a.MustComponent("config").(mongoProvider).GetMongo()
	return
}

func (d *database) Name() (name string) {
	return CName
}

func (d *database) Run(ctx context.Context) (err error) {
	if d.client, err = mongo.Connect(ctx, options.Client().ApplyURI(d.conf.Connect)); err != nil {
		return err
	}
	d.db = d.client.Database(d.conf.Database)
	return d.ensureIndexes(ctx)
}

// one verified record per email; unverified claims for the same address stay
// unrestricted
var verifiedEmailIndex = mongo.IndexModel{
	Keys: bson.D{{Key: "email", Value: 1}},
	Options: options.Index().
		SetName("uniqVerifiedEmail").
		SetUnique(true).
		SetPartialFilterExpression(bson.D{{Key: "verified", Value: true}}),
}

func (d *database) ensureIndexes(ctx context.Context) (err error) {
	_, err = d.db.Collection(CollUserIdentity).Indexes().CreateOne(ctx, verifiedEmailIndex)
	if err != nil {
		log.Error("can't create verified email index", zap.Error(err))
	}
	return
}

func (d *database) Close(ctx context.Context) (err error) {
	if d.client != nil {
		return d.client.Disconnect(ctx)
	}
	return nil
}

func (d *database) Db() *mongo.Database {
	return d.db
}

func (d *database) InsertMany(ctx context.Context, collName string, docs []any) (ids []any, err error) {
	if len(docs) == 0 {
		// mongo rejects an empty InsertMany
		return nil, nil
	}
	res, err := d.db.Collection(collName).InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

func (d *database) Find(ctx context.Context, collName string, filter, results any) (err error) {
	cur, err := d.db.Collection(collName).Find(ctx, filter)
	if err != nil {
		return err
	}
	return cur.All(ctx, results)
}

func (d *database) DeleteMany(ctx context.Context, collName string, filter any) (err error) {
	_, err = d.db.Collection(collName).DeleteMany(ctx, filter)
	return
}
