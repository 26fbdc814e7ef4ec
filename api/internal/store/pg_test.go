package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB подключается к TEST_DATABASE_URL; без неё тесты пропускаются.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, Migrate(ctx, db))
	return db
}

func TestPG_StagedAndConversation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewPG(db)
	chatID := time.Now().UnixNano()

	require.NoError(t, r.SetStaged(ctx, chatID, KeyEquation, "a"))
	require.NoError(t, r.SetStaged(ctx, chatID, KeyEquation, "b"))
	v, err := r.TakeStaged(ctx, chatID, KeyEquation)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	v, err = r.GetStaged(ctx, chatID, KeyEquation)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, r.SetSubject(ctx, chatID, "Алгебра"))
	conv, err := r.CurrentConversation(ctx, chatID)
	require.NoError(t, err)
	require.NoError(t, r.SaveMessage(ctx, Message{ConvID: conv, Role: "user", Content: "x=1", UserID: 5}))

	msgs, err := r.FetchConversation(ctx, conv)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(5), msgs[0].UserID)

	s, err := r.GetSubject(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, "Алгебра", s)
}

func TestPG_FeedbackKeyedByChat(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewPG(db)
	userID := time.Now().UnixNano()

	require.NoError(t, r.SaveFeedback(ctx, Feedback{ChatID: 1, UserID: userID, MessageID: 5, Value: "like"}))
	require.NoError(t, r.SaveFeedback(ctx, Feedback{ChatID: 2, UserID: userID, MessageID: 5, Value: "dislike"}))
	require.NoError(t, r.SaveFeedback(ctx, Feedback{ChatID: 2, UserID: userID, MessageID: 5, Value: "like"}))

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`select count(*) from feedback where user_id=$1`, userID).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestRecognitionRepo_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRecognitionRepo(db)
	hash := time.Now().Format(time.RFC3339Nano)

	_, err := r.Find(ctx, hash, "gemini", "m", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Upsert(ctx, hash, "gemini", "m", "x^2=4"))
	text, err := r.Find(ctx, hash, "gemini", "m", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "x^2=4", text)
}
