package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/campuskit/registry/internal/models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPillarRepositoryLock(t *testing.T) {
	t.Run("creates the tracker lazily and locks it", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO pillar_trackers").
			WithArgs(340000).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery("SELECT sub_pillar_base, last_issued, updated_at").
			WithArgs(340000).
			WillReturnRows(pgxmock.NewRows([]string{"sub_pillar_base", "last_issued", "updated_at"}).
				AddRow(340000, 340041, time.Now()))

		repo := &PillarRepository{pool: mock}
		tracker, err := repo.Lock(context.Background(), nil, 340000)

		require.NoError(t, err)
		assert.Equal(t, 340000, tracker.SubPillarBase)
		assert.Equal(t, 340041, tracker.LastIssued)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing tracker survives the conflict clause", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO pillar_trackers").
			WithArgs(780000).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectQuery("SELECT sub_pillar_base, last_issued, updated_at").
			WithArgs(780000).
			WillReturnRows(pgxmock.NewRows([]string{"sub_pillar_base", "last_issued", "updated_at"}).
				AddRow(780000, 789999, time.Now()))

		repo := &PillarRepository{pool: mock}
		tracker, err := repo.Lock(context.Background(), nil, 780000)

		require.NoError(t, err)
		assert.True(t, tracker.Exhausted())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPillarRepositorySetLastIssued(t *testing.T) {
	t.Run("advances the high-water mark", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("UPDATE pillar_trackers SET last_issued").
			WithArgs(340042, 340000).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := &PillarRepository{pool: mock}
		require.NoError(t, repo.SetLastIssued(context.Background(), nil, 340000, 340042))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing tracker reports not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("UPDATE pillar_trackers SET last_issued").
			WithArgs(340042, 340000).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := &PillarRepository{pool: mock}
		err = repo.SetLastIssued(context.Background(), nil, 340000, 340042)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
