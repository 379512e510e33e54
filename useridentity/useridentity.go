package useridentity

import (
	"context"
	"errors"
	"strings"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/openkeydir/key-directory/db"
)

const CName = "directory.userIdentity"

const collName = db.CollUserIdentity

var log = logger.NewNamed(CName)

// ErrPersistence is returned when the store reports fewer inserted records
// than requested; the batch outcome is indeterminate and must be reconciled
// by the caller.
var ErrPersistence = errors.New("inserted count does not match requested count")

func New() IdentityStore {
	return new(identityStore)
}

// DocumentCollection is the slice of the db component this store relies on.
type DocumentCollection interface {
	InsertMany(ctx context.Context, collName string, docs []any) (ids []any, err error)
	Find(ctx context.Context, collName string, filter, results any) (err error)
	DeleteMany(ctx context.Context, collName string, filter any) (err error)
}

type IdentityStore interface {
	// BatchInsert stamps keyId onto every draft and persists them as one
	// insert-many. It returns the records with their store-assigned ids.
	BatchInsert(ctx context.Context, keyId string, records []UserIdentity) (inserted []UserIdentity, err error)
	// FindVerified resolves the single verified record for a key or for an
	// ordered list of email candidates; the key lookup wins, the candidate
	// loop short-circuits on the first verified hit. A nil result with a nil
	// error means no verified record exists.
	FindVerified(ctx context.Context, keyId string, candidates []UserIdentity) (found *UserIdentity, err error)
	// RemoveByKey deletes every record owned by keyId. Zero matches is not
	// an error.
	RemoveByKey(ctx context.Context, keyId string) (err error)
	app.Component
}

type identityStore struct {
	docs DocumentCollection
}

func (s *identityStore) Init(a *app.App) (err error) {
	s.docs = a.MustComponent(db.CName).(DocumentCollection)
	return
}

func (s *identityStore) Name() (name string) {
	return CName
}

func (s *identityStore) BatchInsert(ctx context.Context, keyId string, records []UserIdentity) (inserted []UserIdentity, err error) {
	inserted = make([]UserIdentity, len(records))
	docs := make([]any, len(records))
	for i, rec := range records {
		rec.Id = nil
		rec.KeyId = keyId
		rec.Email = strings.ToLower(rec.Email)
		inserted[i] = rec
		docs[i] = rec
	}
	ids, err := s.docs.InsertMany(ctx, collName, docs)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(records) {
		log.Error("partial insert",
			zap.String("keyId", keyId),
			zap.Int("requested", len(records)),
			zap.Int("inserted", len(ids)))
		return nil, ErrPersistence
	}
	for i, id := range ids {
		if objId, ok := id.(primitive.ObjectID); ok {
			inserted[i].Id = &objId
		}
	}
	return inserted, nil
}

type byKeyId struct {
	KeyId string `bson:"keyId"`
}

type byEmail struct {
	Email string `bson:"email"`
}

func (s *identityStore) FindVerified(ctx context.Context, keyId string, candidates []UserIdentity) (found *UserIdentity, err error) {
	if keyId != "" {
		if found, err = s.firstVerified(ctx, byKeyId{keyId}, zap.String("keyId", keyId)); err != nil || found != nil {
			return
		}
	}
	for _, c := range candidates {
		email := strings.ToLower(c.Email)
		if found, err = s.firstVerified(ctx, byEmail{email}, zap.String("email", email)); err != nil || found != nil {
			return
		}
	}
	return nil, nil
}

// firstVerified returns the first verified record in the store's natural
// order; several verified matches violate the one-verified-per-email
// invariant and are logged.
func (s *identityStore) firstVerified(ctx context.Context, filter any, key zap.Field) (found *UserIdentity, err error) {
	var recs []UserIdentity
	if err = s.docs.Find(ctx, collName, filter, &recs); err != nil {
		return nil, err
	}
	var verified int
	for i := range recs {
		if recs[i].Verified {
			if found == nil {
				found = &recs[i]
			}
			verified++
		}
	}
	if verified > 1 {
		log.Warn("more than one verified record", key, zap.Int("count", verified))
	}
	return found, nil
}

func (s *identityStore) RemoveByKey(ctx context.Context, keyId string) (err error) {
	return s.docs.DeleteMany(ctx, collName, byKeyId{keyId})
}
