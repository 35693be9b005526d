package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func strPtr(s string) *string { return &s }

func TestAttemptCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttemptRepository(gormDB)

	id := uuid.New()
	attempt := &models.PaymentAttempt{
		GatewayOrderID: "order_123",
		Receipt:        "valentine_1700000000000",
		AmountMinor:    19900,
		Currency:       "INR",
		PromoCode:      "LOVE100",
		Discount:       100,
		Status:         models.AttemptStatusCreated,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "payment_attempts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), attempt)
	assert.NoError(t, err)
	assert.Equal(t, id, attempt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptFindByOrderID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttemptRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_attempts" WHERE gateway_order_id = $1`)).
		WithArgs("order_missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{}))

	a, err := repo.FindByOrderID(context.Background(), "order_missing")
	assert.ErrorIs(t, err, repository.ErrAttemptNotFound)
	assert.Nil(t, a)
}

func TestAttemptFindByOrderID_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttemptRepository(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "gateway_order_id", "receipt", "amount_minor", "currency", "status", "created_at", "updated_at"}).
		AddRow(uuid.New(), "order_123", "valentine_1", 29900, "INR", models.AttemptStatusPaid, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_attempts"`)).
		WithArgs("order_123", 1).
		WillReturnRows(rows)

	a, err := repo.FindByOrderID(context.Background(), "order_123")
	require.NoError(t, err)
	assert.Equal(t, int64(29900), a.AmountMinor)
	assert.Equal(t, models.AttemptStatusPaid, a.Status)
}

func TestAttemptUpdate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttemptRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payment_attempts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), "order_123", models.AttemptUpdate{
		Status:    strPtr(models.AttemptStatusPaid),
		PaymentID: strPtr("pay_1"),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptUpdate_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttemptRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payment_attempts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), "order_missing", models.AttemptUpdate{
		GatewayStatus: strPtr(models.GatewayStatusCaptured),
	})
	assert.ErrorIs(t, err, repository.ErrAttemptNotFound)
}

func TestAttemptUpdate_NothingToChange(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttemptRepository(gormDB)

	err := repo.Update(context.Background(), "order_123", models.AttemptUpdate{})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptListByStatus(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttemptRepository(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "gateway_order_id", "status", "created_at"}).
		AddRow(uuid.New(), "order_2", models.AttemptStatusSaveFailed, now).
		AddRow(uuid.New(), "order_1", models.AttemptStatusSaveFailed, now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_attempts" WHERE status = $1 ORDER BY created_at DESC LIMIT $2`)).
		WithArgs(models.AttemptStatusSaveFailed, 20).
		WillReturnRows(rows)

	list, err := repo.ListByStatus(context.Background(), models.AttemptStatusSaveFailed, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "order_2", list[0].GatewayOrderID)
}
