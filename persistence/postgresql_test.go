package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/analogyarena/models"
)

var resultCols = []string{"id", "user_id", "game_type", "topic", "sub_topic", "difficulty", "score", "created_at"}

func TestPostgreSQL_InsertResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgreSQLFromDB(db)
	r := models.GameResult{
		ID: "r1", UserID: "u1", GameType: models.GameRiddle, Topic: "Technology",
		Difficulty: models.Easy, Score: 70, CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO game_results").
		WithArgs("r1", "u1", "riddle", "Technology", "", "Easy", 70, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.InsertResult(context.Background(), r))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQL_ListResults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgreSQLFromDB(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	t.Run("FilteredByUserAndType", func(t *testing.T) {
		rows := sqlmock.NewRows(resultCols).
			AddRow("r2", "u1", "wordle", "", "", "Medium", 5, now).
			AddRow("r1", "u1", "wordle", "", "", "Medium", 10, now.Add(-time.Hour))

		mock.ExpectQuery(`FROM game_results WHERE user_id = \$1 AND game_type = \$2 ORDER BY created_at DESC, id DESC LIMIT \$3`).
			WithArgs("u1", "wordle", 20).
			WillReturnRows(rows)

		results, err := store.ListResults(ctx, ResultQuery{UserID: "u1", GameType: models.GameWordle, Limit: 20})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "r2", results[0].ID)
		assert.Equal(t, models.GameWordle, results[0].GameType)
		assert.Equal(t, models.Medium, results[1].Difficulty)
	})

	t.Run("UnboundedLimitIsClamped", func(t *testing.T) {
		mock.ExpectQuery(`FROM game_results ORDER BY created_at DESC, id DESC LIMIT \$1`).
			WithArgs(MaxListLimit).
			WillReturnRows(sqlmock.NewRows(resultCols))

		results, err := store.ListResults(ctx, ResultQuery{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Offset", func(t *testing.T) {
		mock.ExpectQuery(`FROM game_results WHERE user_id = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
			WithArgs("u1", MaxListLimit, MaxListLimit).
			WillReturnRows(sqlmock.NewRows(resultCols))

		results, err := store.ListResults(ctx, ResultQuery{UserID: "u1", Offset: MaxListLimit})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("QueryError", func(t *testing.T) {
		mock.ExpectQuery("FROM game_results").WillReturnError(errors.New("connection reset"))
		_, err := store.ListResults(ctx, ResultQuery{UserID: "u1"})
		assert.Error(t, err)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQL_DeleteResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgreSQLFromDB(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM game_results").
		WithArgs("r1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, store.DeleteResult(ctx, "r1", "u1"))

	mock.ExpectExec("DELETE FROM game_results").
		WithArgs("r1", "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.DeleteResult(ctx, "r1", "someone-else"), ErrRecordNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQL_GetProfiles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgreSQLFromDB(db)
	ctx := context.Background()

	empty, err := store.GetProfiles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	mock.ExpectQuery(`SELECT id, username, avatar_url FROM profiles WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "avatar_url"}).
			AddRow("u1", "alice", "https://cdn/a.png"))

	profiles, err := store.GetProfiles(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, "alice", profiles["u1"].Username)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQL_SaveProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO profiles").
		WithArgs("u1", "alice", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgreSQLFromDB(db)
	require.NoError(t, store.SaveProfile(context.Background(), models.Profile{ID: "u1", Username: "alice"}))
	require.NoError(t, mock.ExpectationsWereMet())
}
