package departments

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (*Repo, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepo(mock), mock
}

var deptCols = []string{
	"id", "name", "parent_department_id", "manager_id", "description",
	"display_order", "created_at", "updated_at",
}

func TestRepo_List(t *testing.T) {
	repo, mock := setupMock(t)
	now := time.Now()
	parent := int64(1)

	mock.ExpectQuery(`select .* from we_departments order by display_order, name`).
		WillReturnRows(pgxmock.NewRows(deptCols).
			AddRow(int64(1), "경영지원", (*int64)(nil), (*int64)(nil), "", 0, now, now).
			AddRow(int64(2), "SI사업부", &parent, (*int64)(nil), "system integration", 1, now, now))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].ParentID)
	require.NotNil(t, got[1].ParentID)
	assert.Equal(t, int64(1), *got[1].ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_GetNotFound(t *testing.T) {
	repo, mock := setupMock(t)
	mock.ExpectQuery(`select .* from we_departments where id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows(deptCols))

	_, err := repo.Get(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Delete(t *testing.T) {
	t.Run("leaf", func(t *testing.T) {
		repo, mock := setupMock(t)
		mock.ExpectQuery(`select count\(\*\) from we_departments where parent_department_id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`delete from we_departments where id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.Delete(context.Background(), 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("has children", func(t *testing.T) {
		repo, mock := setupMock(t)
		mock.ExpectQuery(`select count\(\*\) from we_departments`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

		assert.ErrorIs(t, repo.Delete(context.Background(), 1), ErrHasChildren)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := setupMock(t)
		mock.ExpectQuery(`select count\(\*\) from we_departments`).
			WithArgs(int64(8)).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`delete from we_departments`).
			WithArgs(int64(8)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), 8), ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
