package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vapor-share-api/internal/models"
)

var fileColumnNames = []string{"id", "user_id", "original_filename", "file_size", "mime_type", "storage_object_id", "storage_url", "access_code", "created_at", "expires_at", "is_accessed", "accessed_at", "sender_email", "recipient_email", "deleted"}

func fileRow(rows *sqlmock.Rows, accessed bool) *sqlmock.Rows {
	now := time.Now()
	var accessedAt interface{}
	if accessed {
		accessedAt = now
	}
	return rows.AddRow("f-1", "u-1", "a.txt", int64(10), "text/plain", "raw:vapor-share/u-1/1_a.txt", "https://cdn.example/a.txt", "ABCD1234", now, now.Add(24*time.Hour), accessed, accessedAt, "alice@example.com", nil, false)
}

func TestFileRepositoryCodeInUse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM files WHERE access_code = $1 AND is_accessed = FALSE)")).
		WithArgs("ABCD1234").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	inUse, err := repo.CodeInUse(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.True(t, inUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	sender := "alice@example.com"
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO files")).
		WithArgs("f-1", "u-1", "a.txt", int64(10), "text/plain", "raw:vapor-share/u-1/1_a.txt", "https://cdn.example/a.txt", "ABCD1234", &sender, nil, int64(86400)).
		WillReturnRows(fileRow(sqlmock.NewRows(fileColumnNames), false))

	file, err := repo.Create(context.Background(), models.NewFileRecord{
		ID:               "f-1",
		UserID:           "u-1",
		OriginalFilename: "a.txt",
		FileSize:         10,
		MimeType:         "text/plain",
		StorageObjectID:  "raw:vapor-share/u-1/1_a.txt",
		StorageURL:       "https://cdn.example/a.txt",
		AccessCode:       "ABCD1234",
		Retention:        24 * time.Hour,
		SenderEmail:      &sender,
	})
	require.NoError(t, err)
	assert.Equal(t, "f-1", file.ID)
	assert.False(t, file.IsAccessed)
	assert.Nil(t, file.AccessedAt)
	assert.True(t, file.ExpiresAt.After(file.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepositoryCreateDuplicateCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery("INSERT INTO files").WillReturnError(&pq.Error{Code: "23505", Constraint: "files_live_access_code_idx"})

	_, err := repo.Create(context.Background(), models.NewFileRecord{ID: "f-1", AccessCode: "ABCD1234", Retention: time.Hour})
	assert.ErrorIs(t, err, ErrDuplicateAccessCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepositoryFindLiveByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM files WHERE access_code = $1 AND is_accessed = FALSE AND expires_at > NOW() LIMIT 1")).
		WithArgs("ABCD1234").
		WillReturnRows(fileRow(sqlmock.NewRows(fileColumnNames), false))

	file, err := repo.FindLiveByCode(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", file.OriginalFilename)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepositoryFindLiveByCodeMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery("FROM files WHERE access_code").WithArgs("ZZZZ9999").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLiveByCode(context.Background(), "ZZZZ9999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFileRepositoryClaim(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE files SET is_accessed = TRUE, accessed_at = NOW()\nWHERE access_code = $1 AND is_accessed = FALSE AND expires_at > NOW()")).
		WithArgs("ABCD1234").
		WillReturnRows(fileRow(sqlmock.NewRows(fileColumnNames), true))

	file, err := repo.Claim(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.True(t, file.IsAccessed)
	require.NotNil(t, file.AccessedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepositoryClaimLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery("UPDATE files SET is_accessed = TRUE").
		WithArgs("ABCD1234").
		WillReturnRows(sqlmock.NewRows(fileColumnNames))

	_, err := repo.Claim(context.Background(), "ABCD1234")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepositoryClaimDatabaseError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery("UPDATE files SET is_accessed = TRUE").WillReturnError(errors.New("connection reset"))

	_, err := repo.Claim(context.Background(), "ABCD1234")
	require.Error(t, err)
	assert.False(t, errors.Is(err, sql.ErrNoRows))
}

func TestFileRepositoryListSweepCandidates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	created := time.Now().Add(-48 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (expires_at < NOW() OR is_accessed = TRUE) AND storage_object_id IS NOT NULL\nORDER BY created_at, id LIMIT $1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "storage_object_id", "created_at"}).
			AddRow("f-1", "raw:a", created).
			AddRow("f-2", "raw:b", created))

	page, err := repo.ListSweepCandidates(context.Background(), models.SweepCursor{}, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)

	mock.ExpectQuery(regexp.QuoteMeta("AND (created_at, id) > ($1, $2)")).
		WithArgs(created, "f-2", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "storage_object_id", "created_at"}))

	page, err = repo.ListSweepCandidates(context.Background(), models.SweepCursor{CreatedAt: created, ID: "f-2"}, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepositoryClearBlobReference(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE files SET storage_object_id = NULL, storage_url = NULL, deleted = TRUE WHERE id = $1 AND storage_object_id = $2")).
		WithArgs("f-1", "raw:a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE files SET storage_object_id = NULL").
		WithArgs("f-1", "raw:a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	cleared, err := repo.ClearBlobReference(context.Background(), "f-1", "raw:a")
	require.NoError(t, err)
	assert.True(t, cleared)

	cleared, err = repo.ClearBlobReference(context.Background(), "f-1", "raw:a")
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}
