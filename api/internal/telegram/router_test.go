package telegram

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-bot/api/internal/llm"
	"math-bot/api/internal/render"
	"math-bot/api/internal/solver"
	"math-bot/api/internal/store"
)

const chatID int64 = 42

func newTestRouter(t *testing.T, mode string, b *llm.MockBackend) (*Router, *fakeBot, *store.Memory) {
	t.Helper()
	p := &llm.Provider{
		Name:         "mock",
		Model:        "mock",
		Mode:         mode,
		SystemPrompt: "Ты помощник по математике.",
		MaxAttempts:  1,
		Completer:    llm.NewClient("mock", b, llm.Options{MaxAttempts: 1}, nil),
	}
	mgr, err := llm.NewManager("mock", p, &llm.Provider{Name: "other", Model: "other-model", Completer: p.Completer})
	require.NoError(t, err)

	bot := newFakeBot()
	mem := store.NewMemory()
	r := &Router{
		Bot:          bot,
		State:        mem,
		Providers:    mgr,
		Renderer:     render.NewTextRenderer(),
		Subjects:     map[string]string{"Алгебра": "algebra"},
		SubjectNames: []string{"Алгебра"},
	}
	return r, bot, mem
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 7},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func command(chat, from int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 5,
		From:      &tgbotapi.User{ID: from, FirstName: "Аня"},
		Chat:      &tgbotapi.Chat{ID: chat},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func textMessage(chat, from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 5,
		From:      &tgbotapi.User{ID: from, FirstName: "Аня"},
		Chat:      &tgbotapi.Chat{ID: chat},
		Text:      text,
	}}
}

func staged(t *testing.T, mem *store.Memory) string {
	t.Helper()
	v, err := mem.GetStaged(context.Background(), chatID, store.KeyEquation)
	require.NoError(t, err)
	return v
}

func TestConfirmEquation_DirectProvider(t *testing.T) {
	b := llm.Texts("x = 3")
	r, bot, mem := newTestRouter(t, solver.ModeDirect, b)
	ctx := context.Background()
	require.NoError(t, mem.SetStaged(ctx, chatID, store.KeyEquation, "2x = 6"))

	r.HandleUpdate(ctx, callback(cbConfirmEquation))

	assert.Equal(t, 1, b.CallCount())
	assert.Equal(t, []string{"Уравнение: `2x = 6`\n\nРешение: x = 3"}, bot.texts())
	assert.Empty(t, staged(t, mem))
	assert.Equal(t, 1, bot.count(isKeyboardRemoval))
}

func TestConfirmEquation_VerifiedProvider(t *testing.T) {
	b := llm.Texts(
		"1. Делим обе части на 2",
		`"explanation": "Делим обе части на 2"
"calculation": "x = 3"
"verification": "2*3 = 6"`,
		"VERIFICATION:\n- Логика: CORRECT\nFINAL_VERDICT: CORRECT",
	)
	r, bot, mem := newTestRouter(t, solver.ModeVerified, b)
	ctx := context.Background()
	require.NoError(t, mem.SetStaged(ctx, chatID, store.KeyEquation, "2x = 6"))

	r.HandleUpdate(ctx, callback(cbConfirmEquation))

	assert.Equal(t, 3, b.CallCount())
	out := strings.Join(bot.texts(), "\n")
	assert.True(t, strings.HasPrefix(out, "Уравнение: `2x = 6`\n\n📝 Решение:"), out)
	assert.Contains(t, out, "✅ Шаг проверен и корректен")
}

func TestConfirmEquation_NothingStaged(t *testing.T) {
	b := llm.Texts()
	r, bot, _ := newTestRouter(t, solver.ModeDirect, b)

	r.HandleUpdate(context.Background(), callback(cbConfirmEquation))

	assert.Equal(t, 0, b.CallCount())
	assert.Equal(t, []string{"Ошибка: Уравнение не найдено."}, bot.texts())
}

func TestConfirmEquation_InFlightGuard(t *testing.T) {
	b := llm.Texts("x = 3")
	r, bot, mem := newTestRouter(t, solver.ModeDirect, b)
	ctx := context.Background()
	require.NoError(t, mem.SetStaged(ctx, chatID, store.KeyEquation, "2x = 6"))

	require.True(t, r.acquire(chatID))
	r.HandleUpdate(ctx, callback(cbConfirmEquation))

	assert.Equal(t, 0, b.CallCount())
	assert.Equal(t, "2x = 6", staged(t, mem))
	assert.Equal(t, []string{"Уже решаю предыдущее уравнение, подождите."}, bot.texts())

	r.release(chatID)
	r.HandleUpdate(ctx, callback(cbConfirmEquation))
	assert.Equal(t, 1, b.CallCount())
}

func TestConfirmEquation_Timeout(t *testing.T) {
	b := llm.Texts("1. путь")
	r, bot, mem := newTestRouter(t, solver.ModeVerified, b)
	require.NoError(t, mem.SetStaged(context.Background(), chatID, store.KeyEquation, "2x = 6"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.HandleUpdate(ctx, callback(cbConfirmEquation))

	assert.Equal(t, 0, b.CallCount())
	assert.Equal(t, []string{"Не успел решить уравнение за отведённое время. Попробуйте ещё раз."}, bot.texts())
	// уравнение уже снято со стейджа
	assert.Empty(t, staged(t, mem))
}

func TestRejectEquation_ClearsStaged(t *testing.T) {
	r, bot, mem := newTestRouter(t, solver.ModeDirect, llm.Texts())
	ctx := context.Background()
	require.NoError(t, mem.SetStaged(ctx, chatID, store.KeyEquation, "2x = 6"))

	r.HandleUpdate(ctx, callback(cbRejectEquation))

	assert.Empty(t, staged(t, mem))
	assert.Equal(t, []string{"Уравнение отклонено. Пожалуйста, отправьте новое уравнение."}, bot.texts())
}

func TestSolveCommand_StagesAndSendsPreview(t *testing.T) {
	r, bot, mem := newTestRouter(t, solver.ModeDirect, llm.Texts())

	r.HandleUpdate(context.Background(), command(chatID, chatID, "/solve $x^2 = 4$"))

	assert.Equal(t, "x^2 = 4", staged(t, mem))
	photos := bot.photos()
	require.Len(t, photos, 1)
	assert.Equal(t, previewCaption, photos[0].Caption)
	assert.Equal(t, *makeConfirmKeyboard(), photos[0].ReplyMarkup)
}

func TestSolveCommand_LastEquationWins(t *testing.T) {
	r, _, mem := newTestRouter(t, solver.ModeDirect, llm.Texts())
	ctx := context.Background()

	r.HandleUpdate(ctx, command(chatID, chatID, "/solve x + 1 = 2"))
	r.HandleUpdate(ctx, command(chatID, chatID, "/solve x + 2 = 5"))

	assert.Equal(t, "x + 2 = 5", staged(t, mem))
}

type failingRenderer struct{}

func (failingRenderer) Render(string) ([]byte, error) { return nil, errors.New("no font") }

func TestSolveCommand_TextPreviewWhenRenderFails(t *testing.T) {
	r, bot, mem := newTestRouter(t, solver.ModeDirect, llm.Texts())
	r.Renderer = failingRenderer{}

	r.HandleUpdate(context.Background(), command(chatID, chatID, "/solve x + 1 = 2"))

	assert.Equal(t, "x + 1 = 2", staged(t, mem))
	assert.Empty(t, bot.photos())
	assert.Equal(t, []string{previewCaption + "\n`x + 1 = 2`"}, bot.texts())
}

func TestGenerate_PersistsConversation(t *testing.T) {
	b := llm.Texts("Будет 4")
	r, bot, mem := newTestRouter(t, solver.ModeDirect, b)
	ctx := context.Background()

	r.HandleUpdate(ctx, textMessage(chatID, chatID, "Сколько будет 2+2?"))

	assert.Equal(t, []string{placeholderText, "Будет 4"}, bot.texts())
	edit, ok := bot.sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, makeLikesKeyboard(), edit.ReplyMarkup)

	conv, err := mem.CurrentConversation(ctx, chatID)
	require.NoError(t, err)
	hist, err := mem.FetchConversation(ctx, conv)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "Сколько будет 2+2?", hist[0].Content)
	assert.Equal(t, roleUser, hist[0].Role)
	assert.Equal(t, "Будет 4", hist[1].Content)
	assert.Equal(t, roleAssistant, hist[1].Role)
	assert.Equal(t, 101, hist[1].MessageID)
	assert.Equal(t, chatID, hist[1].ReplyUserID)

	// следующая реплика видит историю
	b.Add(llm.MockReply{Text: "Да"})
	r.HandleUpdate(ctx, textMessage(chatID, chatID, "Точно?"))
	require.Equal(t, 2, b.CallCount())
	assert.Len(t, b.Calls[1], 3)
}

func TestGenerate_SameChatSeesPreviousTurn(t *testing.T) {
	b := llm.Texts("первый", "второй")
	r, _, _ := newTestRouter(t, solver.ModeDirect, b)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, text := range []string{"раз", "два"} {
		text := text
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.HandleUpdate(ctx, textMessage(chatID, chatID, text))
		}()
	}
	wg.Wait()

	require.Equal(t, 2, b.CallCount())
	assert.Len(t, b.Calls[0], 1)
	second := b.Calls[1]
	require.Len(t, second, 3)
	assert.Equal(t, llm.RoleAssistant, second[1].Role)
	assert.Equal(t, "первый", second[1].Content)
}

func TestGenerate_GroupPrefixesAuthor(t *testing.T) {
	b := llm.Texts("Привет")
	r, _, _ := newTestRouter(t, solver.ModeDirect, b)

	r.HandleUpdate(context.Background(), textMessage(-100, 7, "вопрос"))

	require.Equal(t, 1, b.CallCount())
	msgs := b.Calls[0]
	assert.Contains(t, msgs[len(msgs)-1].Content, "Из чата пишет Аня: вопрос")
}

func TestGenerate_SubjectGoesToSystemPrompt(t *testing.T) {
	b := llm.Texts("ok")
	r, _, mem := newTestRouter(t, solver.ModeDirect, b)
	require.NoError(t, mem.SetSubject(context.Background(), chatID, "Алгебра"))

	r.HandleUpdate(context.Background(), textMessage(chatID, chatID, "что такое корень?"))

	require.Equal(t, 1, b.CallCount())
	assert.Contains(t, b.Calls[0][0].Content, "Алгебра (algebra)")
}

func TestGenerate_ErrorEditsPlaceholder(t *testing.T) {
	b := llm.NewMockBackend(llm.MockReply{Err: errors.New("boom")})
	r, bot, _ := newTestRouter(t, solver.ModeDirect, b)

	r.HandleUpdate(context.Background(), textMessage(chatID, chatID, "вопрос"))

	texts := bot.texts()
	require.Len(t, texts, 2)
	assert.True(t, strings.HasPrefix(texts[1], "Что-то пошло не так:"), texts[1])
}

func TestFeedback_SavedAndKeyboardRemoved(t *testing.T) {
	r, bot, mem := newTestRouter(t, solver.ModeDirect, llm.Texts())

	r.HandleUpdate(context.Background(), callback(cbFeedback+"like"))

	assert.Equal(t, "like", mem.FeedbackFor(chatID, 7, 10))
	assert.Equal(t, 1, bot.count(isKeyboardRemoval))
}

func TestSetSubject_CallbackStartsNewConversation(t *testing.T) {
	r, bot, mem := newTestRouter(t, solver.ModeDirect, llm.Texts())
	ctx := context.Background()
	before, err := mem.CurrentConversation(ctx, chatID)
	require.NoError(t, err)

	r.HandleUpdate(ctx, callback(cbSetSubject+"Алгебра"))

	subj, err := mem.GetSubject(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, "Алгебра", subj)
	after, err := mem.CurrentConversation(ctx, chatID)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, []string{"Выбранный предмет: Алгебра"}, bot.texts())
}

func TestSubjectCommands(t *testing.T) {
	r, bot, mem := newTestRouter(t, solver.ModeDirect, llm.Texts())
	ctx := context.Background()

	r.HandleUpdate(ctx, command(chatID, chatID, "/get_subject"))
	require.NoError(t, mem.SetSubject(ctx, chatID, "Алгебра"))
	r.HandleUpdate(ctx, command(chatID, chatID, "/get_subject"))
	r.HandleUpdate(ctx, command(chatID, chatID, "/reset_subject"))

	assert.Equal(t, []string{"Предмет не выбран.", "Алгебра", "Выбор предмета сброшен."}, bot.texts())
	subj, _ := mem.GetSubject(ctx, chatID)
	assert.Empty(t, subj)
}

func TestUnknownCommand_OnlyInPrivateChats(t *testing.T) {
	r, bot, _ := newTestRouter(t, solver.ModeDirect, llm.Texts())

	r.HandleUpdate(context.Background(), command(-100, 7, "/weather"))
	assert.Empty(t, bot.texts())

	r.HandleUpdate(context.Background(), command(chatID, chatID, "/weather"))
	assert.Equal(t, []string{unknownCmdText}, bot.texts())
}

func TestEngineCommand_SwitchesProvider(t *testing.T) {
	r, bot, _ := newTestRouter(t, solver.ModeDirect, llm.Texts())

	r.HandleUpdate(context.Background(), command(chatID, chatID, "/engine other"))
	assert.Equal(t, "other", r.Providers.Get(chatID).Name)
	assert.Equal(t, "mock", r.Providers.Get(1).Name)

	r.HandleUpdate(context.Background(), command(chatID, chatID, "/engine nope"))
	texts := bot.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "Модель переключена на other", texts[0])
	assert.Contains(t, texts[1], "Неизвестная модель")
}

func TestHistoryCommand(t *testing.T) {
	r, bot, mem := newTestRouter(t, solver.ModeDirect, llm.Texts())
	ctx := context.Background()

	r.HandleUpdate(ctx, command(chatID, chatID, "/history"))
	conv, _ := mem.CurrentConversation(ctx, chatID)
	require.NoError(t, mem.SaveMessage(ctx, store.Message{ConvID: conv, Role: roleUser, UserName: "Аня", Content: "2+2?"}))
	r.HandleUpdate(ctx, command(chatID, chatID, "/history"))
	r.HandleUpdate(ctx, command(chatID, chatID, "/reset_history"))
	r.HandleUpdate(ctx, command(chatID, chatID, "/history"))

	texts := bot.texts()
	require.Len(t, texts, 4)
	assert.Equal(t, "Истории не найдено", texts[0])
	assert.Contains(t, texts[1], "Аня: 2+2?")
	assert.Equal(t, "История сброшена", texts[2])
	assert.Equal(t, "Истории не найдено", texts[3])
}

type fakeRecognizer struct {
	text  string
	calls int
}

func (f *fakeRecognizer) Recognize(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestPhoto_RecognizedAndStaged(t *testing.T) {
	r, bot, mem := newTestRouter(t, solver.ModeDirect, llm.Texts())
	rec := &fakeRecognizer{text: "$x + 1 = 2$"}
	r.Recognizer = rec
	r.AlbumDebounce = 10 * time.Millisecond
	img := pngBytes(t, 20, 10)
	r.Download = func(_ context.Context, url string) ([]byte, error) {
		assert.Equal(t, "https://files.example/big", url)
		return img, nil
	}

	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 5,
		From:      &tgbotapi.User{ID: chatID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Photo:     []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}},
	}})

	require.Eventually(t, func() bool { return len(bot.photos()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "x + 1 = 2", staged(t, mem))
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, photoAcceptedText, bot.texts()[0])
}

func TestAddPhoto_TakenBatchIsReplaced(t *testing.T) {
	r, _, _ := newTestRouter(t, solver.ModeDirect, llm.Texts())
	r.AlbumDebounce = time.Hour
	key := "grp:album"
	taken := &photoBatch{ChatID: chatID, images: [][]byte{[]byte("old")}, done: true}
	r.batches.Store(key, taken)

	msg := &tgbotapi.Message{MessageID: 6, Chat: &tgbotapi.Chat{ID: chatID}, MediaGroupID: "album"}
	first := r.addPhoto(context.Background(), key, msg, []byte("new"))
	assert.True(t, first)

	bi, ok := r.batches.Load(key)
	require.True(t, ok)
	fresh := bi.(*photoBatch)
	assert.NotSame(t, taken, fresh)
	assert.Equal(t, [][]byte{[]byte("new")}, fresh.images)
	fresh.timer.Stop()

	// таймер забранной пачки не трогает новую
	r.processBatch(context.Background(), key, taken)
	_, ok = r.batches.Load(key)
	assert.True(t, ok)
}

func TestProcessBatch_RunsOnce(t *testing.T) {
	r, bot, _ := newTestRouter(t, solver.ModeDirect, llm.Texts())
	key := "chat:42"
	b := &photoBatch{ChatID: chatID, images: [][]byte{pngBytes(t, 20, 10)}}
	r.batches.Store(key, b)

	r.processBatch(context.Background(), key, b)
	r.processBatch(context.Background(), key, b)

	assert.True(t, b.done)
	_, ok := r.batches.Load(key)
	assert.False(t, ok)
	assert.Equal(t, []string{"Распознавание изображений не настроено."}, bot.texts())
}

func TestCombineAsOne_StacksAlbum(t *testing.T) {
	out, err := combineAsOne([][]byte{pngBytes(t, 20, 10), pngBytes(t, 30, 15)})
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
}

func TestCombineAsOne_RejectsGarbage(t *testing.T) {
	_, err := combineAsOne([][]byte{[]byte("not an image")})
	assert.Error(t, err)
}
