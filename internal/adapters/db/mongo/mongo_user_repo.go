package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/password"
	customErrors "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"
	"github.com/google/uuid"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// userDocument is the stored shape; the id is kept as a uuid string.
type userDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d userDocument) toModel() (model.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		ID:           id,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Name:         d.Name,
		Role:         d.Role,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

type MongoUserRepo struct {
	db     *mongodriver.Database
	users  *mongodriver.Collection
	hasher *password.Hasher
}

func NewMongoUserRepo(db *mongodriver.Database, hasher *password.Hasher) *MongoUserRepo {
	return &MongoUserRepo{
		db:     db,
		users:  db.Collection(usersCollection),
		hasher: hasher,
	}
}

func (m *MongoUserRepo) CreateUser(ctx context.Context, nu model.NewUser) (model.User, error) {
	hash, err := m.hasher.Hash(nu.Password)
	if err != nil {
		return model.User{}, customErrors.WrapInternal(err, "CreateUser")
	}

	// MongoDB DateTime keeps milliseconds.
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDocument{
		ID:           uuid.NewString(),
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: hash,
		Role:         model.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := m.users.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return model.User{}, customErrors.ErrAlreadyExists
		}
		return model.User{}, customErrors.WrapInternal(err, "CreateUser")
	}
	return doc.toModel()
}

func (m *MongoUserRepo) findOne(ctx context.Context, filter bson.D, op string) (model.User, error) {
	var doc userDocument
	if err := m.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return model.User{}, customErrors.ErrNotFound
		}
		return model.User{}, customErrors.WrapInternal(err, op)
	}

	u, err := doc.toModel()
	if err != nil {
		return model.User{}, customErrors.WrapInternal(err, op)
	}
	return u, nil
}

func (m *MongoUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return m.findOne(ctx, bson.D{{Key: "email", Value: email}}, "GetUserByEmail")
}

func (m *MongoUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return m.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}}, "GetUserByID")
}

func (m *MongoUserRepo) ComparePassword(_ context.Context, u model.User, plaintext string) (bool, error) {
	ok, err := m.hasher.Compare(plaintext, u.PasswordHash)
	if err != nil {
		return false, customErrors.WrapInternal(err, "ComparePassword")
	}
	return ok, nil
}

func (m *MongoUserRepo) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, readpref.Primary())
}
