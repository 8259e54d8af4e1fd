package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateRunsStatementsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	env := &Env{DB: sqlx.NewDb(db, "sqlmock")}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS b").WillReturnError(errors.New("denied"))

	err = env.Migrate(context.Background(), []string{
		"CREATE TABLE IF NOT EXISTS a (id INT)",
		"CREATE TABLE IF NOT EXISTS b (id INT)",
		"CREATE TABLE IF NOT EXISTS c (id INT)",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectClose()
	assert.NoError(t, env.Close())
}

func TestMigrateWithoutDatabase(t *testing.T) {
	env := &Env{}
	assert.NoError(t, env.Migrate(context.Background(), []string{"CREATE TABLE x (id INT)"}))
	assert.NoError(t, env.Close())
}
