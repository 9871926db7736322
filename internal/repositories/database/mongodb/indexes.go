package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// onlyStrings limits a unique index to documents where the field is set.
func onlyStrings(field string) bson.M {
	return bson.M{field: bson.M{"$type": "string"}}
}

// EnsureIndexes creates the unique indexes that serialize concurrent sign-ups
// and the lookup indexes for one-time tokens.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_users_email"),
		},
		{
			Keys: bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_users_google_id").
				SetPartialFilterExpression(onlyStrings("google_id")),
		},
		{
			Keys: bson.D{{Key: "facebook_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_users_facebook_id").
				SetPartialFilterExpression(onlyStrings("facebook_id")),
		},
		{
			Keys:    bson.D{{Key: "verification_token_hash", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_users_verification_token"),
		},
		{
			Keys:    bson.D{{Key: "reset_token_hash", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_users_reset_token"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_users_created_at"),
		},
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.c.Indexes().CreateMany(ctx, indexes)
	return err
}
