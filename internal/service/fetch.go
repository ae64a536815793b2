// fetch.go — получение содержимого артефакта по дескриптору.
// Remote: нормализация сегмента delivery URL (сохранённый URL может быть
// устаревшим) + fl_attachment при скачивании. Legacy: фиксированный базовый
// путь + идентификатор файла. Inline: payload встроен в дескриптор,
// сетевой запрос не выполняется.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bigkaa/artdelivery/internal/domain/model"
	"github.com/bigkaa/artdelivery/internal/hostenv"
	"github.com/bigkaa/artdelivery/internal/storeclient"
)

// Ошибки read path.
var (
	// ErrEmptyPayload — получение прошло успешно, но тело нулевой длины.
	// Эквивалентно сбою получения: пустой файл пользователю не отдаётся.
	ErrEmptyPayload = errors.New("получен пустой файл")
)

// DeliveryMode — цель получения артефакта.
type DeliveryMode string

const (
	// ModeDownload — прямое скачивание (с attachment-подсказкой в URL).
	ModeDownload DeliveryMode = "download"
	// ModeView — просмотр без attachment-подсказки.
	ModeView DeliveryMode = "view"
)

// Payload — содержимое артефакта в памяти.
type Payload struct {
	// Data — байты артефакта
	Data []byte
	// ContentType — MIME-тип (рекомендательный, сверяется валидатором)
	ContentType string
	// Name — имя файла для показа пользователю
	Name string
}

// ContentFetcher — получение содержимого артефакта по разрешённому дескриптору.
type ContentFetcher struct {
	legacyBaseURL string
	logger        *slog.Logger
}

// NewContentFetcher создаёт fetcher.
// legacyBaseURL — базовый URL legacy-файлового сервера приложения.
func NewContentFetcher(legacyBaseURL string, logger *slog.Logger) *ContentFetcher {
	return &ContentFetcher{
		legacyBaseURL: strings.TrimRight(legacyBaseURL, "/"),
		logger:        logger.With(slog.String("component", "content_fetcher")),
	}
}

// Fetch получает содержимое артефакта. Вариант дескриптора уже выбран
// конструкторами ArtifactDescriptor в фиксированном порядке приоритета.
func (f *ContentFetcher) Fetch(ctx context.Context, env hostenv.Environment, d *model.ArtifactDescriptor, deliveryMode DeliveryMode) (*Payload, error) {
	switch {
	case hasRemote(d):
		remote, _ := d.Remote()
		return f.fetchRemote(ctx, env, remote, deliveryMode)
	case hasLegacy(d):
		legacy, _ := d.Legacy()
		return f.fetchLegacy(ctx, env, legacy)
	case hasInline(d):
		inline, _ := d.Inline()
		return fetchInline(inline)
	}
	return nil, model.ErrInvalidDescriptor
}

// fetchRemote получает артефакт из удалённого хранилища.
// Перед запросом применяется та же коррекция сегмента URL, что и на
// write path: сохранённый delivery URL может быть устаревшим и вести
// raw-артефакт через image-доставку.
func (f *ContentFetcher) fetchRemote(ctx context.Context, env hostenv.Environment, remote *model.RemoteArtifact, deliveryMode DeliveryMode) (*Payload, error) {
	fetchURL := remote.DeliveryURL
	if expectedType(remote.OriginalName, remote.MimeType) == model.ResourceTypeDocument {
		fetchURL = storeclient.NormalizeDeliveryURL(fetchURL, remote.StoreID, model.ResourceTypeDocument)
	}
	if deliveryMode == ModeDownload {
		fetchURL = storeclient.WithAttachmentHint(fetchURL)
	}

	f.logger.Debug("Получение remote-артефакта",
		slog.String("store_id", remote.StoreID),
		slog.String("url", fetchURL),
	)

	data, contentType, err := env.FetchBytes(ctx, fetchURL)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	return &Payload{
		Data:        data,
		ContentType: contentType,
		Name:        remote.OriginalName,
	}, nil
}

// fetchLegacy получает артефакт с legacy-файлового сервера.
// URL: <base>/files/<fileId> (fileName используется только без fileId).
func (f *ContentFetcher) fetchLegacy(ctx context.Context, env hostenv.Environment, legacy *model.LegacyServerArtifact) (*Payload, error) {
	id := legacy.FileID
	if id == "" {
		id = legacy.FileName
	}
	fetchURL := fmt.Sprintf("%s/files/%s", f.legacyBaseURL, id)

	f.logger.Debug("Получение legacy-артефакта", slog.String("url", fetchURL))

	data, contentType, err := env.FetchBytes(ctx, fetchURL)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	return &Payload{
		Data:        data,
		ContentType: contentType,
		Name:        legacy.FileName,
	}, nil
}

// fetchInline декодирует встроенный data URI. Без сетевого запроса.
func fetchInline(inline *model.InlineArtifact) (*Payload, error) {
	data, contentType, err := decodeDataURI(inline.DataURI)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	return &Payload{
		Data:        data,
		ContentType: contentType,
		Name:        inline.DisplayName,
	}, nil
}

// decodeDataURI разбирает data URI формата RFC 2397:
// data:<mime>[;base64],<данные>.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("некорректный data URI: отсутствует префикс data:")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("некорректный data URI: отсутствует разделитель данных")
	}

	contentType := meta
	isBase64 := false
	if strings.HasSuffix(meta, ";base64") {
		contentType = strings.TrimSuffix(meta, ";base64")
		isBase64 = true
	}

	if !isBase64 {
		// Plain-форма несёт данные percent-encoded
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("декодирование percent-encoded data URI: %w", err)
		}
		return []byte(decoded), contentType, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("декодирование base64 data URI: %w", err)
	}
	return data, contentType, nil
}

// expectedType определяет ожидаемый тип ресурса по имени файла
// или заявленному MIME-типу.
func expectedType(filename, mimeType string) model.ResourceType {
	mt := strings.ToLower(mimeType)
	if mt == "" && filename != "" {
		mt = strings.ToLower(mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))))
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return model.ResourceTypeImage
	case strings.HasPrefix(mt, "application/pdf"):
		return model.ResourceTypeDocument
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return model.ResourceTypeDocument
	}
	return model.ResourceTypeAuto
}

// hasRemote/hasLegacy/hasInline — краткие проверки заполненного варианта.

func hasRemote(d *model.ArtifactDescriptor) bool { _, ok := d.Remote(); return ok }
func hasLegacy(d *model.ArtifactDescriptor) bool { _, ok := d.Legacy(); return ok }
func hasInline(d *model.ArtifactDescriptor) bool { _, ok := d.Inline(); return ok }
