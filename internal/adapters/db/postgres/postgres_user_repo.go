package postgres

import (
	"context"
	"errors"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/password"
	customErrors "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"time"
)

// UserRecord maps the users table.
type UserRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null;default:customer"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserRecord) TableName() string { return "users" }

func (r UserRecord) toModel() model.User {
	return model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Name:         r.Name,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type PostgresUserRepo struct {
	db     *gorm.DB
	hasher *password.Hasher
}

func NewPostgresUserRepo(db *gorm.DB, hasher *password.Hasher) *PostgresUserRepo {
	return &PostgresUserRepo{db: db, hasher: hasher}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, nu model.NewUser) (model.User, error) {
	hash, err := p.hasher.Hash(nu.Password)
	if err != nil {
		return model.User{}, customErrors.WrapInternal(err, "CreateUser")
	}

	rec := UserRecord{
		ID:           uuid.New(),
		Email:        nu.Email,
		Name:         nu.Name,
		PasswordHash: hash,
		Role:         model.RoleCustomer,
	}
	res := p.db.WithContext(ctx).Create(&rec)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return model.User{}, customErrors.ErrAlreadyExists
		}
		return model.User{}, customErrors.WrapInternal(err, "CreateUser")
	}
	return rec.toModel(), nil
}

func (p *PostgresUserRepo) first(ctx context.Context, op, query string, arg any) (model.User, error) {
	var rec UserRecord
	res := p.db.WithContext(ctx).Where(query, arg).First(&rec)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, op)
	}
	return rec.toModel(), nil
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return p.first(ctx, "GetUserByEmail", "email = ?", email)
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return p.first(ctx, "GetUserByID", "id = ?", id)
}

func (p *PostgresUserRepo) ComparePassword(_ context.Context, u model.User, plaintext string) (bool, error) {
	ok, err := p.hasher.Compare(plaintext, u.PasswordHash)
	if err != nil {
		return false, customErrors.WrapInternal(err, "ComparePassword")
	}
	return ok, nil
}

func (p *PostgresUserRepo) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
