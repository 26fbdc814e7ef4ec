package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PG: реализация ChatState поверх Postgres (драйвер pgx через database/sql).
type PG struct{ DB *sql.DB }

func NewPG(db *sql.DB) *PG { return &PG{DB: db} }

var _ ChatState = (*PG)(nil)

func (r *PG) GetStaged(ctx context.Context, chatID int64, key string) (string, error) {
	const q = `select value from staged_data where chat_id=$1 and key=$2`
	var v string
	err := r.DB.QueryRowContext(ctx, q, chatID, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetStaged перезаписывает значение: последний вызов побеждает.
func (r *PG) SetStaged(ctx context.Context, chatID int64, key, value string) error {
	const q = `
insert into staged_data(chat_id, key, value)
values ($1,$2,$3)
on conflict (chat_id, key)
do update set value=excluded.value, updated_at=now()`
	_, err := r.DB.ExecContext(ctx, q, chatID, key, value)
	return err
}

func (r *PG) TakeStaged(ctx context.Context, chatID int64, key string) (string, error) {
	const q = `delete from staged_data where chat_id=$1 and key=$2 returning value`
	var v string
	err := r.DB.QueryRowContext(ctx, q, chatID, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (r *PG) GetSubject(ctx context.Context, chatID int64) (string, error) {
	const q = `select coalesce(subject,'') from chats where chat_id=$1`
	var s string
	err := r.DB.QueryRowContext(ctx, q, chatID).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return s, err
}

func (r *PG) SetSubject(ctx context.Context, chatID int64, subject string) error {
	// conv_id из insert используется только для нового чата.
	const q = `
insert into chats(chat_id, conv_id, subject)
values ($1,$2,nullif($3,''))
on conflict (chat_id)
do update set subject=excluded.subject, updated_at=now()`
	_, err := r.DB.ExecContext(ctx, q, chatID, uuid.NewString(), subject)
	return err
}

func (r *PG) CurrentConversation(ctx context.Context, chatID int64) (string, error) {
	const q = `select conv_id from chats where chat_id=$1`
	var id string
	err := r.DB.QueryRowContext(ctx, q, chatID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return r.NewConversation(ctx, chatID)
	}
	return id, err
}

func (r *PG) NewConversation(ctx context.Context, chatID int64) (string, error) {
	id := uuid.NewString()
	const q = `
insert into chats(chat_id, conv_id)
values ($1,$2)
on conflict (chat_id)
do update set conv_id=excluded.conv_id, updated_at=now()`
	if _, err := r.DB.ExecContext(ctx, q, chatID, id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PG) SaveMessage(ctx context.Context, m Message) error {
	const q = `
insert into messages(conv_id, role, content, user_id, user_name, message_id, system_prompt, reply_user_id)
values ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.DB.ExecContext(ctx, q,
		m.ConvID, m.Role, m.Content, m.UserID, m.UserName, m.MessageID, m.SystemPrompt, m.ReplyUserID)
	return err
}

// FetchConversation возвращает сообщения беседы в порядке записи.
func (r *PG) FetchConversation(ctx context.Context, convID string) ([]Message, error) {
	const q = `
select conv_id, role, content,
       coalesce(user_id,0), coalesce(user_name,''), coalesce(message_id,0),
       coalesce(system_prompt,''), coalesce(reply_user_id,0), created_at
from messages
where conv_id=$1
order by id`
	rows, err := r.DB.QueryContext(ctx, q, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ConvID, &m.Role, &m.Content,
			&m.UserID, &m.UserName, &m.MessageID,
			&m.SystemPrompt, &m.ReplyUserID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveFeedback: повторный отзыв на то же сообщение перезаписывает прежний.
func (r *PG) SaveFeedback(ctx context.Context, f Feedback) error {
	const q = `
insert into feedback(chat_id, user_id, message_id, feedback)
values ($1,$2,$3,$4)
on conflict (chat_id, user_id, message_id)
do update set feedback=excluded.feedback, created_at=now()`
	_, err := r.DB.ExecContext(ctx, q, f.ChatID, f.UserID, f.MessageID, f.Value)
	return err
}
