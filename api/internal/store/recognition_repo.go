package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = sql.ErrNoRows

// RecognitionRepo: кэш распознанных уравнений по хэшу картинки.
// Повторно присланное фото не гоняем через vision-модель.
type RecognitionRepo struct{ DB *sql.DB }

func NewRecognitionRepo(db *sql.DB) *RecognitionRepo { return &RecognitionRepo{DB: db} }

// Find достаёт текст по ключу (image_hash + engine + model).
// Если maxAge > 0 и запись старше, вернёт ErrNotFound.
func (r *RecognitionRepo) Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (string, error) {
	const q = `select text, created_at
	           from recognitions
	           where image_hash=$1 and engine=$2 and model=$3`
	var (
		text string
		ts   time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, imageHash, engine, model).Scan(&text, &ts); err != nil {
		return "", err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return "", ErrNotFound
	}
	return text, nil
}

// Upsert сохраняет/обновляет распознанный текст.
func (r *RecognitionRepo) Upsert(ctx context.Context, imageHash, engine, model, text string) error {
	const q = `
insert into recognitions(image_hash, engine, model, text)
values ($1,$2,$3,$4)
on conflict (image_hash, engine, model)
do update set text=excluded.text, created_at=now()`
	_, err := r.DB.ExecContext(ctx, q, imageHash, engine, model, text)
	return err
}

// PurgeOlderThan удаляет старые записи кэша, чтобы не раздувать БД.
func (r *RecognitionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from recognitions where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
