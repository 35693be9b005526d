package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"github.com/stretchr/testify/assert"
)

func TestPromoLookup_Found(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewPromoRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "promo_codes" WHERE code = $1 AND active = $2`)).
		WithArgs("LOVE100", true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"code", "discount", "active"}).AddRow("LOVE100", 100, true))

	discount, ok, err := repo.Lookup(context.Background(), "LOVE100")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(100), discount)
}

func TestPromoLookup_Missing(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewPromoRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "promo_codes"`)).
		WithArgs("NOPE", true, 1).
		WillReturnRows(sqlmock.NewRows([]string{}))

	_, ok, err := repo.Lookup(context.Background(), "NOPE")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestPromoLookup_DatabaseError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewPromoRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "promo_codes"`)).
		WillReturnError(errors.New("connection reset"))

	_, ok, err := repo.Lookup(context.Background(), "LOVE100")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestPromoSeed(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewPromoRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "promo_codes"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Seed(context.Background(), map[string]int64{"LOVE100": 100})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
