package db

import (
	"context"
	"testing"

	"github.com/anyproto/any-sync/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var ctx = context.Background()

const testColl = "docOps"

func TestDatabase_InsertMany(t *testing.T) {
	fx := newFixture(t)
	defer fx.finish(t)

	ids, err := fx.InsertMany(ctx, testColl, []any{
		bson.M{"keyId": "ABCD", "email": "a@x.com"},
		bson.M{"keyId": "ABCD", "email": "b@x.com"},
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	t.Run("empty batch", func(t *testing.T) {
		ids, err := fx.InsertMany(ctx, testColl, nil)
		require.NoError(t, err)
		assert.Len(t, ids, 0)
	})
}

func TestDatabase_FindAndDelete(t *testing.T) {
	fx := newFixture(t)
	defer fx.finish(t)

	_, err := fx.InsertMany(ctx, testColl, []any{
		bson.M{"keyId": "ABCD", "email": "a@x.com"},
		bson.M{"keyId": "ABCD", "email": "b@x.com"},
		bson.M{"keyId": "ABCD", "email": "c@x.com"},
		bson.M{"keyId": "FFFF", "email": "d@x.com"},
		bson.M{"keyId": "FFFF", "email": "e@x.com"},
	})
	require.NoError(t, err)

	var found []bson.M
	require.NoError(t, fx.Find(ctx, testColl, bson.M{"keyId": "ABCD"}, &found))
	assert.Len(t, found, 3)

	require.NoError(t, fx.DeleteMany(ctx, testColl, bson.M{"keyId": "ABCD"}))

	found = nil
	require.NoError(t, fx.Find(ctx, testColl, bson.M{"keyId": "ABCD"}, &found))
	assert.Len(t, found, 0)
	require.NoError(t, fx.Find(ctx, testColl, bson.M{"keyId": "FFFF"}, &found))
	assert.Len(t, found, 2)

	// deleting with no matches is fine
	require.NoError(t, fx.DeleteMany(ctx, testColl, bson.M{"keyId": "ABCD"}))
}

func TestDatabase_VerifiedEmailIndex(t *testing.T) {
	fx := newFixture(t)
	defer fx.finish(t)

	_ = fx.Db().Collection(CollUserIdentity).Drop(ctx)
	require.NoError(t, fx.Database.(*database).ensureIndexes(ctx))

	_, err := fx.InsertMany(ctx, CollUserIdentity, []any{
		bson.M{"email": "dup@x.com", "keyId": "ABCD", "verified": true},
	})
	require.NoError(t, err)

	t.Run("second verified record rejected", func(t *testing.T) {
		_, err := fx.InsertMany(ctx, CollUserIdentity, []any{
			bson.M{"email": "dup@x.com", "keyId": "FFFF", "verified": true},
		})
		assert.Error(t, err)
	})
	t.Run("unverified duplicates allowed", func(t *testing.T) {
		_, err := fx.InsertMany(ctx, CollUserIdentity, []any{
			bson.M{"email": "dup@x.com", "keyId": "FFFF", "verified": false},
			bson.M{"email": "dup@x.com", "keyId": "EEEE", "verified": false},
		})
		require.NoError(t, err)
	})
}

func newFixture(t *testing.T) *fixture {
	fx := &fixture{
		Database: New(),
		a:        new(app.App),
	}
	fx.a.Register(config{}).Register(fx.Database)
	require.NoError(t, fx.a.Start(ctx))
	_ = fx.Db().Collection(testColl).Drop(ctx)
	return fx
}

type fixture struct {
	Database
	a *app.App
}

func (fx *fixture) finish(t *testing.T) {
	require.NoError(t, fx.a.Close(ctx))
}

type config struct {
}

func (c config) Init(a *app.App) (err error) { return }
func (c config) Name() string                { return "config" }

func (c config) GetMongo() Mongo {
	return Mongo{
		Connect:  "mongodb://localhost:27017",
		Database: "directory_unittest",
	}
}
