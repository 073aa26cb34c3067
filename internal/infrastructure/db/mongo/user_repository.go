package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opsbridge/tokengate/internal/core/domain"
)

const usersCollection = "users"

// UserRepository stores users keyed by (application_type, username).
type UserRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(usersCollection), now: time.Now}
}

type userDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	ApplicationType string             `bson:"application_type"`
	Username        string             `bson:"username"`
	PasswordHash    string             `bson:"password_hash"`
	IsActive        bool               `bson:"is_active"`
	Roles           []string           `bson:"roles"`
	CreatedAt       int64              `bson:"created_at"`
	UpdatedAt       int64              `bson:"updated_at"`
}

// EnsureIndexes creates the unique (application_type, username) index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "application_type", Value: 1},
			{Key: "username", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("application_type_username"),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, applicationType, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	err := r.col.FindOne(ctx, userFilter(applicationType, username)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := fromDomain(user)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = id
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) SetActive(ctx context.Context, applicationType, username string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		userFilter(applicationType, username),
		bson.M{"$set": bson.M{"is_active": active, "updated_at": r.now().UnixMilli()}},
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func userFilter(applicationType, username string) bson.M {
	return bson.M{"application_type": applicationType, "username": username}
}

func fromDomain(u *domain.User) userDocument {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userDocument{
		ApplicationType: u.ApplicationType,
		Username:        u.Username,
		PasswordHash:    u.PasswordHash,
		IsActive:        u.IsActive,
		Roles:           roles,
		CreatedAt:       u.CreatedAt.UnixMilli(),
		UpdatedAt:       u.UpdatedAt.UnixMilli(),
	}
}

func (d userDocument) toDomain() *domain.User {
	var id string
	if !d.ID.IsZero() {
		id = d.ID.Hex()
	}
	roles := d.Roles
	if roles == nil {
		roles = []string{}
	}
	return &domain.User{
		ID:              id,
		ApplicationType: d.ApplicationType,
		Username:        d.Username,
		PasswordHash:    d.PasswordHash,
		IsActive:        d.IsActive,
		Roles:           roles,
		CreatedAt:       millisToTime(d.CreatedAt),
		UpdatedAt:       millisToTime(d.UpdatedAt),
	}
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
