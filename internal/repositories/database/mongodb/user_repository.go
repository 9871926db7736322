package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
	"github.com/SscSPs/auth_service/internal/models"
	"github.com/SscSPs/auth_service/internal/utils/mapping"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const usersCollection = "users"

var sortFields = map[string]string{
	"createdAt": "created_at",
	"email":     "email",
	"firstName": "first_name",
	"lastName":  "last_name",
	"role":      "role",
	"status":    "status",
}

var providerFields = map[domain.AuthProvider]string{
	domain.ProviderGoogle:   "google_id",
	domain.ProviderFacebook: "facebook_id",
}

// Refresh tokens are embedded in the user document and never leave the store.
var withoutRefreshTokens = bson.M{"refresh_tokens": 0}

// UserRepository stores users, with their refresh token registry embedded, in one collection.
type UserRepository struct {
	c       *mongo.Collection
	timeout time.Duration
}

// NewUserRepository creates the Mongo user store. Every call is bounded by timeout.
func NewUserRepository(db *mongo.Database, timeout time.Duration) *UserRepository {
	return &UserRepository{c: db.Collection(usersCollection), timeout: timeout}
}

var (
	_ portsrepo.UserRepositoryFacade = (*UserRepository)(nil)
	_ portsrepo.StoreHealthChecker   = (*UserRepository)(nil)
)

func (r *UserRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Ping checks the primary is reachable.
func (r *UserRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.c.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var m models.User
	err := r.c.FindOne(ctx, filter, options.FindOne().SetProjection(withoutRefreshTokens)).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user := mapping.ToDomainUser(m)
	return &user, nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindUserByProviderID(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.User, error) {
	field, ok := providerFields[provider]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.findOne(ctx, bson.M{field: externalID})
}

func (r *UserRepository) FindUserByVerificationTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"verification_token_hash": tokenHash})
}

func (r *UserRepository) FindUserByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"reset_token_hash": tokenHash})
}

func buildUserFilter(filter domain.UserFilter) bson.M {
	f := bson.M{}
	if filter.Role != nil {
		f["role"] = string(*filter.Role)
	}
	if filter.Status != nil {
		f["status"] = string(*filter.Status)
	}
	if filter.Verified != nil {
		f["is_verified"] = *filter.Verified
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
		f["$or"] = bson.A{
			bson.M{"email": pattern},
			bson.M{"first_name": pattern},
			bson.M{"last_name": pattern},
		}
	}
	return f
}

func (r *UserRepository) FindUsers(ctx context.Context, filter domain.UserFilter, opts domain.UserListOptions) ([]domain.User, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	f := buildUserFilter(filter)
	total, err := r.c.CountDocuments(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	field, ok := sortFields[opts.SortBy]
	if !ok {
		field = "created_at"
	}
	direction := -1
	if opts.SortOrder == domain.SortAsc {
		direction = 1
	}
	findOpts := options.Find().
		SetProjection(withoutRefreshTokens).
		SetSort(bson.D{{Key: field, Value: direction}, {Key: "_id", Value: 1}}).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit))

	cur, err := r.c.Find(ctx, f, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer cur.Close(ctx)

	modelUsers := []models.User{}
	if err := cur.All(ctx, &modelUsers); err != nil {
		return nil, 0, fmt.Errorf("failed to decode users: %w", err)
	}
	return mapping.ToDomainUserSlice(modelUsers), total, nil
}

func (r *UserRepository) SaveUser(ctx context.Context, user domain.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	m := mapping.ToModelUser(user)
	m.RefreshTokens = nil
	if _, err := r.c.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to save user: %w", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// setOrUnset places optional values in $set and nil ones in $unset.
func setOrUnset(set, unset bson.M, field string, value any, isNil bool) {
	if isNil {
		unset[field] = ""
		return
	}
	set[field] = value
}

func (r *UserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	m := mapping.ToModelUser(user)
	set := bson.M{
		"first_name":  m.FirstName,
		"last_name":   m.LastName,
		"role":        m.Role,
		"status":      m.Status,
		"is_verified": m.IsVerified,
		"updated_at":  m.UpdatedAt,
	}
	unset := bson.M{}
	setOrUnset(set, unset, "password_hash", m.PasswordHash, m.PasswordHash == nil)
	setOrUnset(set, unset, "avatar_url", m.AvatarURL, m.AvatarURL == nil)
	setOrUnset(set, unset, "verification_token_hash", m.VerificationTokenHash, m.VerificationTokenHash == nil)
	setOrUnset(set, unset, "verification_token_expires_at", m.VerificationTokenExpiresAt, m.VerificationTokenExpiresAt == nil)
	setOrUnset(set, unset, "reset_token_hash", m.ResetTokenHash, m.ResetTokenHash == nil)
	setOrUnset(set, unset, "reset_token_expires_at", m.ResetTokenExpiresAt, m.ResetTokenExpiresAt == nil)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": m.UserID}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// LinkProvider uses a pipeline update so the avatar and verified flag are
// decided against the stored document in the same write.
func (r *UserRepository) LinkProvider(ctx context.Context, userID string, provider domain.AuthProvider, externalID string, markVerified bool, avatarURL *string) (bool, error) {
	field, ok := providerFields[provider]
	if !ok {
		return false, fmt.Errorf("unsupported provider %q", provider)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"_id": userID,
		// nil matches both a missing and a null field.
		"$or": bson.A{
			bson.M{field: nil},
			bson.M{field: externalID},
		},
	}
	set := bson.D{
		{Key: field, Value: externalID},
		{Key: "is_verified", Value: bson.M{"$or": bson.A{"$is_verified", markVerified}}},
		{Key: "updated_at", Value: time.Now().UTC()},
	}
	if avatarURL != nil {
		set = append(set, bson.E{Key: "avatar_url", Value: bson.M{"$ifNull": bson.A{"$avatar_url", *avatarURL}}})
	}

	res, err := r.c.UpdateOne(ctx, filter, mongo.Pipeline{{{Key: "$set", Value: set}}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("failed to link provider: %w", apperrors.ErrDuplicate)
		}
		return false, fmt.Errorf("failed to link provider: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"last_login_at": at}})
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AddRefreshToken drops expired entries and appends the new one in a single update.
func (r *UserRepository) AddRefreshToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	entry := models.RefreshToken{TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: now}
	live := bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$refresh_tokens", bson.A{}}},
		"as":    "t",
		"cond":  bson.M{"$gt": bson.A{"$$t.expires_at", now}},
	}}
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "refresh_tokens", Value: bson.M{"$concatArrays": bson.A{live, bson.A{entry}}}},
	}}}}

	res, err := r.c.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ConsumeRefreshToken pulls the entry only if it is present, so concurrent
// callers with the same token see exactly one modification.
func (r *UserRepository) ConsumeRefreshToken(ctx context.Context, userID string, tokenHash string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": userID, "refresh_tokens.hash": tokenHash},
		bson.M{"$pull": bson.M{"refresh_tokens": bson.M{"hash": tokenHash}}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *UserRepository) ClearRefreshTokens(ctx context.Context, userID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"refresh_tokens": bson.A{}}})
	if err != nil {
		return fmt.Errorf("failed to clear refresh tokens: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, userID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.c.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
