package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/pkg/db"
)

var admin = models.Actor{UserID: 1000, Role: models.RoleAdmin}

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	require.NoError(t, repo.Migrate(ctx, gdb))
	return &repo.GormRepo{DB: gdb}
}

func seedUser(t *testing.T, r *repo.GormRepo, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, r *repo.GormRepo, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Slug: name, Price: decimal.RequireFromString(price), Stock: 3}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}
