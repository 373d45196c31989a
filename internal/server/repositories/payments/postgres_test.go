package payments

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentCols = []string{"id", "user_id", "external_id", "provider", "plan", "amount_cents", "currency", "quota_bytes", "status", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+payments\s*\(user_id,.*status\)\s*VALUES.*RETURNING\s+id,\s*created_at$`
	mock.ExpectQuery(q).
		WithArgs("u1", "inv-1", models.ProviderBTCPay, "small", int64(599), "USD", int64(5<<30), models.PaymentPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("p1", time.Now()))
	mock.ExpectQuery(q).WillReturnError(&pgconn.PgError{Code: "23505"})

	p, err := repo.Create(context.Background(), &models.Payment{UserID: "u1", ExternalID: "inv-1", Provider: models.ProviderBTCPay,
		Plan: "small", AmountCents: 599, Currency: "USD", QuotaBytes: 5 << 30, Status: models.PaymentPending})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = repo.Create(context.Background(), &models.Payment{})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestGetByExternalID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)FROM\s+payments\s+p\s+WHERE\s+p\.provider\s*=\s*\$1\s+AND\s+p\.external_id\s*=\s*\$2$`
	mock.ExpectQuery(q).
		WithArgs(models.ProviderPayPal, "ord-1").
		WillReturnRows(sqlmock.NewRows(paymentCols).
			AddRow("p1", "u1", "ord-1", "paypal", "mega", int64(9999), "USD", int64(100<<30), "pending", time.Now()))
	mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)

	p, err := repo.GetByExternalID(context.Background(), models.ProviderPayPal, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100<<30), p.QuotaBytes)

	_, err = repo.GetByExternalID(context.Background(), models.ProviderPayPal, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMarkCompleted_OnlyOnce(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `^UPDATE payments SET status = 'completed' WHERE id = \$1 AND status IN \('pending', 'failed'\)$`
	mock.ExpectExec(q).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.MarkCompleted(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkCompleted(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMarkFailed(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`^UPDATE payments SET status = 'failed'`).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFailed(context.Background(), "p1"))
}

func TestListings(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	cols := append(append([]string{}, paymentCols...), "name", "email")
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(cols).
			AddRow("p1", "u1", "inv", "btcpay", "small", int64(599), "USD", int64(5<<30), "completed", time.Now(), "Alice", "a@x")
	}

	mock.ExpectQuery(`(?s)JOIN\s+users\s+u.*WHERE\s+p\.user_id\s*=\s*\$1.*LIMIT\s+\$2$`).WithArgs("u1", 5).WillReturnRows(row())
	mock.ExpectQuery(`(?s)JOIN\s+users\s+u\s+ON\s+u\.id\s*=\s*p\.user_id\s+ORDER\s+BY\s+p\.created_at\s+DESC$`).WillReturnRows(row())
	mock.ExpectQuery(`(?s)JOIN\s+users\s+u.*ORDER\s+BY\s+p\.created_at\s+DESC\s+LIMIT\s+\$1$`).WithArgs(5).WillReturnRows(row())
	mock.ExpectQuery(`^SELECT COALESCE\(SUM\(amount_cents\), 0\) FROM payments WHERE status = 'completed'$`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(1598)))

	byUser, err := repo.ListByUser(context.Background(), "u1", 5)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "Alice", byUser[0].UserName)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@x", all[0].UserEmail)

	recent, err := repo.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	rev, err := repo.RevenueCents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1598), rev)
	require.NoError(t, mock.ExpectationsWereMet())
}
