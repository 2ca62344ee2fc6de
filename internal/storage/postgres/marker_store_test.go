package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

func newMockStore(t *testing.T) (*MarkerStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewMarkerStoreWithPool(mock, "")
	require.NoError(t, err)
	return store, mock
}

func TestNewMarkerStoreWithPoolValidates(t *testing.T) {
	t.Parallel()

	_, err := NewMarkerStoreWithPool(nil, "")
	assert.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewMarkerStoreWithPool(mock, "markers; DROP TABLE x")
	assert.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS page_markers").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertInsertsRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO page_markers").
		WithArgs("http://example.com/").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.Upsert(context.Background(), crawler.PageMarker{URI: "http://example.com/"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertWrapsErrors(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO page_markers").
		WithArgs("http://example.com/").
		WillReturnError(boom)

	err := store.Upsert(context.Background(), crawler.PageMarker{URI: "http://example.com/"})
	require.ErrorIs(t, err, boom)
}

func TestExists(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("http://example.com/").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Exists(context.Background(), "http://example.com/")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchTranslatesGlob(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT uri FROM page_markers WHERE uri LIKE").
		WithArgs(`http://example.com/a\_%`).
		WillReturnRows(pgxmock.NewRows([]string{"uri"}).
			AddRow("http://example.com/a_1").
			AddRow("http://example.com/a_2"))

	found, err := store.Search(context.Background(), "http://example.com/a_*")
	require.NoError(t, err)
	assert.Equal(t, []crawler.PageMarker{
		{URI: "http://example.com/a_1"},
		{URI: "http://example.com/a_2"},
	}, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReturnsRowsAffected(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM page_markers").
		WithArgs("http://example.com/%").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := store.Delete(context.Background(), "http://example.com/*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT uri FROM page_markers ORDER BY uri").
		WillReturnRows(pgxmock.NewRows([]string{"uri"}).AddRow("http://example.com/"))

	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []crawler.PageMarker{{URI: "http://example.com/"}}, all)
}
