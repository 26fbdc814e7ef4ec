package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const photoAcceptedText = "Фото получил, распознаю уравнение…"

// acceptPhoto скачивает фото и складывает его в пачку. Фото одного альбома
// приходят отдельными апдейтами, поэтому пачка обрабатывается по таймеру.
func (r *Router) acceptPhoto(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	ph := msg.Photo[len(msg.Photo)-1]
	url, err := r.Bot.GetFileDirectURL(ph.FileID)
	if err != nil {
		r.sendError(cid, err)
		return
	}
	imgBytes, err := r.download(ctx, url)
	if err != nil {
		r.sendError(cid, err)
		return
	}

	key := "chat:" + fmt.Sprint(cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}

	if r.addPhoto(ctx, key, msg, imgBytes) {
		r.send(cid, photoAcceptedText)
	}
}

// addPhoto кладёт фото в текущую пачку ключа и перезапускает таймер.
// Пачку, которую таймер уже забрал (done), заменяем новой. true, если
// фото стало первым в пачке.
func (r *Router) addPhoto(ctx context.Context, key string, msg *tgbotapi.Message, img []byte) bool {
	bctx := context.WithoutCancel(ctx)
	for {
		bi, _ := r.batches.LoadOrStore(key, &photoBatch{
			ChatID: msg.Chat.ID, ReplyTo: msg.MessageID, MediaGroupID: msg.MediaGroupID, images: make([][]byte, 0, 4),
		})
		b := bi.(*photoBatch)

		b.mu.Lock()
		if b.done {
			b.mu.Unlock()
			r.batches.CompareAndDelete(key, b)
			continue
		}
		b.images = append(b.images, img)
		if c := strings.TrimSpace(msg.Caption); c != "" {
			b.caption = c
		}
		first := len(b.images) == 1
		if b.timer != nil {
			b.timer.Stop()
		}
		b.timer = time.AfterFunc(r.albumDebounce(), func() { r.processBatch(bctx, key, b) })
		b.mu.Unlock()
		return first
	}
}

func (r *Router) albumDebounce() time.Duration {
	if r.AlbumDebounce > 0 {
		return r.AlbumDebounce
	}
	return albumDebounce
}

func (r *Router) processBatch(ctx context.Context, key string, b *photoBatch) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("photo batch panic", "key", key, "panic", rec)
		}
	}()
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return
	}
	b.done = true
	images := append([][]byte(nil), b.images...)
	chatID, replyTo, caption := b.ChatID, b.ReplyTo, b.caption
	r.batches.CompareAndDelete(key, b)
	b.mu.Unlock()

	if len(images) == 0 {
		return
	}

	merged, err := combineAsOne(images)
	if err != nil {
		r.sendError(chatID, fmt.Errorf("склейка: %w", err))
		return
	}

	if r.Recognizer == nil {
		r.send(chatID, "Распознавание изображений не настроено.")
		return
	}
	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	eq, err := r.Recognizer.Recognize(ctx, merged)
	if err != nil {
		slog.Error("recognize", "chat_id", chatID, "images", len(images), "error", err)
	}
	if eq == "" {
		// подпись к фото служит запасным вариантом
		eq = caption
	}
	if eq == "" {
		r.send(chatID, "Не удалось распознать уравнение на изображении.")
		return
	}
	r.stageEquation(ctx, chatID, replyTo, eq)
}

// combineAsOne склеивает фото альбома сверху вниз на белом фоне.
// Одно фото возвращается без перекодирования.
func combineAsOne(images [][]byte) ([]byte, error) {
	if len(images) == 1 {
		if _, _, err := image.DecodeConfig(bytes.NewReader(images[0])); err != nil {
			return nil, err
		}
		return images[0], nil
	}

	decoded := make([]image.Image, 0, len(images))
	maxW, sumH := 0, 0
	for _, b := range images {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, img)
		maxW = max(maxW, img.Bounds().Dx())
		sumH += img.Bounds().Dy()
	}
	if maxW == 0 || sumH == 0 {
		return nil, fmt.Errorf("пустые изображения")
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxW, sumH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	y := 0
	for _, img := range decoded {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := (maxW - w) / 2
		draw.Draw(dst, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
		y += h
	}

	final := image.Image(dst)
	if total := maxW * sumH; total > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(total))
		newW := max(1, int(float64(maxW)*scale+0.5))
		newH := max(1, int(float64(sumH)*scale+0.5))
		final = resize.Resize(uint(newW), uint(newH), dst, resize.Bilinear)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, final, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	if r.Download != nil {
		return r.Download(ctx, url)
	}
	return download(ctx, url)
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
