package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

func TestCounterRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("InsertConflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO counters")).
			WithArgs("umkm", int64(1), now, now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewCounterRepository(db).Insert(ctx, &models.Counter{Name: "umkm", Seq: 1, CreatedAt: now, UpdatedAt: now})
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsertCreated", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO counters")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewCounterRepository(db).Insert(ctx, &models.Counter{Name: "umkm", Seq: 1, CreatedAt: now, UpdatedAt: now})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CompareAndSwap", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE counters SET seq")).
			WithArgs(int64(6), now, "umkm", int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, NewCounterRepository(db).CompareAndSwap(ctx, "umkm", 5, 6, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CompareAndSwapLostRace", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE counters SET seq")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewCounterRepository(db).CompareAndSwap(ctx, "umkm", 5, 6, now)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("ByNameMissing", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "counters" WHERE name = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"name", "seq", "created_at", "updated_at"}))

		counter, err := NewCounterRepository(db).ByName(ctx, "umkm")
		assert.NoError(t, err)
		assert.Nil(t, counter)
	})
}

func TestCatalogRepositoryWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("DeleteMissing", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(`DELETE FROM "umkm" WHERE id = \$1`).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewUmkmRepository(db).Delete(ctx, 7)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE "umkm" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		name := "Bakso"
		err := NewUmkmRepository(db).Update(ctx, &models.Umkm{DocID: "7", ID: 7, Name: &name})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ByIDMissing", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "destinations" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"doc_id", "id"}))

		dest, err := NewDestinationRepository(db).ByID(ctx, 3)
		assert.NoError(t, err)
		assert.Nil(t, dest)
	})
}

func TestApplyListingSQL(t *testing.T) {
	db, _ := newMockDB(t)
	dry := db.Session(&gorm.Session{DryRun: true})

	compile := func(q listing.Query) (string, []any) {
		var rows []*models.Umkm
		stmt := applyListing(dry.Model(&models.Umkm{}), q).Find(&rows).Statement
		return stmt.SQL.String(), stmt.Vars
	}

	t.Run("DefaultIDOrder", func(t *testing.T) {
		sql, vars := compile(listing.Build(listing.Options{}))
		assert.Contains(t, sql, "ORDER BY id ASC")
		assert.NotContains(t, sql, "WHERE")
		assert.Contains(t, vars, 21)
	})

	t.Run("PrefixForcesName", func(t *testing.T) {
		sql, vars := compile(listing.Build(listing.Options{Q: "Ayam", SortBy: "createdAt", Limit: "5"}))
		assert.Contains(t, sql, "name_lower >= $1 AND name_lower < $2")
		assert.Contains(t, sql, "ORDER BY name_lower ASC NULLS FIRST,id ASC")
		assert.Equal(t, "ayam", vars[0])
		assert.Equal(t, "ayam"+listing.HighSentinel, vars[1])
	})

	t.Run("ResumeDescending", func(t *testing.T) {
		cursor := listing.EncodeCursor(listing.FieldNameLower, "bakso", 4)
		sql, vars := compile(listing.Build(listing.Options{SortBy: "name", Order: "desc", Cursor: cursor}))
		assert.Contains(t, sql, "(name_lower < $1 OR (name_lower = $2 AND id > $3) OR name_lower IS NULL)")
		assert.Contains(t, sql, "ORDER BY name_lower DESC NULLS LAST,id ASC")
		assert.Equal(t, []any{"bakso", "bakso", int64(4)}, vars[:3])
	})

	t.Run("ResumeByID", func(t *testing.T) {
		sql, _ := compile(listing.Build(listing.Options{Order: "desc", Cursor: "12"}))
		assert.Contains(t, sql, "id < $1")
		assert.Contains(t, sql, "ORDER BY id DESC")
	})

	t.Run("Category", func(t *testing.T) {
		sql, vars := compile(listing.Build(listing.Options{Category: " Kuliner "}))
		assert.Contains(t, sql, "category_lower = $1")
		assert.Equal(t, "kuliner", vars[0])
	})
}
