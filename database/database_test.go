package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace-server/models"
)

func TestLowerCamel(t *testing.T) {
	assert.Equal(t, "inProgress", lowerCamel("in_progress"))
	assert.Equal(t, "onTheWay", lowerCamel("on_the_way"))
	assert.Equal(t, "pending", lowerCamel("pending"))
}

func TestMigrateLegacyStatuses(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	for range models.AllStatuses {
		mock.ExpectExec(`UPDATE "service_requests" SET "status"`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, migrateLegacyStatuses(gdb))
	assert.NoError(t, mock.ExpectationsWereMet())
}
