package postgres

import (
	"context"
	"testing"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/password"
	customErrors "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"
	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) *PostgresUserRepo {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// every new sqlite connection would get its own empty :memory: database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&UserRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	params := &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	return NewPostgresUserRepo(db, password.NewHasher("pepper", params))
}

func TestPostgresUserRepo_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, model.NewUser{Name: "A", Email: "a@x.com", Password: "pw"})
	if err != nil {
		t.Fatalf("create %v", err)
	}
	if u.Role != model.RoleCustomer || u.PasswordHash == "pw" {
		t.Fatalf("bad user %+v", u)
	}

	got, err := repo.GetUserByEmail(ctx, "a@x.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("get by email %v", err)
	}
	got2, err := repo.GetUserByID(ctx, u.ID)
	if err != nil || got2.Email != "a@x.com" {
		t.Fatalf("get by id %v", err)
	}

	ok, err := repo.ComparePassword(ctx, got2, "pw")
	if err != nil || !ok {
		t.Fatalf("compare %v %v", ok, err)
	}
	if ok, _ := repo.ComparePassword(ctx, got2, "bad"); ok {
		t.Fatal("wrong password accepted")
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping %v", err)
	}
}

func TestPostgresUserRepo_Duplicate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, model.NewUser{Name: "A", Email: "dup@x.com", Password: "pw"}); err != nil {
		t.Fatalf("create %v", err)
	}
	_, err := repo.CreateUser(ctx, model.NewUser{Name: "B", Email: "dup@x.com", Password: "pw2"})
	if !customErrors.IsAlreadyExists(err) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func TestPostgresUserRepo_NotFound(t *testing.T) {
	repo := setupRepo(t)

	if _, err := repo.GetUserByID(context.Background(), uuid.New()); !customErrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := repo.GetUserByEmail(context.Background(), "none@x.com"); !customErrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}) {
		t.Fatal("23505 must be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: pgerrcode.NotNullViolation}) {
		t.Fatal("23502 is not a unique violation")
	}
	if !isUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Fatal("gorm duplicated key must count")
	}
}
