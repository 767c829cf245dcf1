package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/book-expert/specter-content/internal/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectSQL = "SELECT id, title, image_url FROM evidence ORDER BY id LIMIT $1 OFFSET $2"
	updateSQL = "UPDATE evidence SET image_url = $1 WHERE id = $2"
)

func TestStore_ListEvidence_Paginates(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectSQL)).
		WithArgs(2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "image_url"}).
			AddRow("1", "Initial Police Report", nil).
			AddRow("2", "Property Records", "/evidence/hartwell-property-records.png"))
	mock.ExpectQuery(regexp.QuoteMeta(selectSQL)).
		WithArgs(2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "image_url"}).
			AddRow("3", "Thermal Imaging Analysis", nil))

	store, err := postgres.NewStore(db, "", 2)
	require.NoError(t, err)

	records, err := store.ListEvidence(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Nil(t, records[0].ImageURL)
	require.NotNil(t, records[1].ImageURL)
	assert.Equal(t, "/evidence/hartwell-property-records.png", *records[1].ImageURL)
	assert.Equal(t, "Thermal Imaging Analysis", records[2].Title)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateImageURL(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(updateSQL)).
		WithArgs("/evidence/hartwell-thermal.png", "7").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(updateSQL)).
		WithArgs("/evidence/x.png", "99").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := postgres.NewStore(db, "evidence", 0)
	require.NoError(t, err)

	require.NoError(t, store.UpdateImageURL(context.Background(), "7", "/evidence/hartwell-thermal.png"))

	err = store.UpdateImageURL(context.Background(), "99", "/evidence/x.png")
	require.ErrorIs(t, err, postgres.ErrRowNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_QueryError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(selectSQL)).WillReturnError(boom)

	store, err := postgres.NewStore(db, "evidence", 10)
	require.NoError(t, err)

	_, err = store.ListEvidence(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestNewStore_RejectsUnsafeTable(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	_, err = postgres.NewStore(db, "evidence; DROP TABLE evidence", 10)
	require.ErrorIs(t, err, postgres.ErrInvalidTable)
}
