package useridentity

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserIdentity is one identity claim: an email address bound to the key that
// owns it. The nonce is generated by the verification flow upstream and only
// stored here; the verified flip also belongs to that flow. Records are never
// updated in place by this service, only inserted and removed.
type UserIdentity struct {
	Id       *primitive.ObjectID `bson:"_id,omitempty"`
	Email    string              `bson:"email"`
	Name     string              `bson:"name"`
	KeyId    string              `bson:"keyId"`
	Nonce    string              `bson:"nonce"`
	Verified bool                `bson:"verified"`
}
