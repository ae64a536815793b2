// Пакет model — доменные модели Artifact Delivery Module.
// ArtifactDescriptor — tagged union трёх поддерживаемых форматов ссылки
// на артефакт (remote / legacy / inline). Конструкторы взаимоисключающие:
// в экземпляре заполнен ровно один вариант, порядок разрешения
// (Remote → Legacy → Inline) зафиксирован на уровне типа.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки доменной модели.
var (
	// ErrInvalidDescriptor — ни один из трёх вариантов дескриптора не заполнен.
	ErrInvalidDescriptor = errors.New("дескриптор артефакта не содержит ни одного способа получения")
)

// ResourceType — классификация артефакта в удалённом хранилище.
// Определяет сегмент delivery URL и допустимые опции трансформации.
type ResourceType string

const (
	// ResourceTypeDocument — документы (PDF и прочие raw-артефакты).
	// Сегмент delivery URL: raw. Опции трансформации изображений недопустимы.
	ResourceTypeDocument ResourceType = "raw"
	// ResourceTypeImage — изображения. Сегмент delivery URL: image.
	// Допускает опции трансформации (quality, fetch_format).
	ResourceTypeImage ResourceType = "image"
	// ResourceTypeAuto — тип не определён, хранилище классифицирует само.
	ResourceTypeAuto ResourceType = "auto"
)

// Segment возвращает сегмент delivery URL для типа ресурса.
// Для ResourceTypeAuto возвращает raw — в delivery URL авто-тип не встречается.
func (rt ResourceType) Segment() string {
	if rt == ResourceTypeImage {
		return "image"
	}
	return "raw"
}

// RemoteArtifact — актуальный формат: объект живёт в удалённом хранилище.
type RemoteArtifact struct {
	// StoreID — идентификатор объекта в хранилище (public id, может включать folder)
	StoreID string
	// DeliveryURL — URL доставки, вычисленный хранилищем
	DeliveryURL string
	// OriginalName — оригинальное имя файла
	OriginalName string
	// ByteSize — размер в байтах
	ByteSize int64
	// MimeType — заявленный MIME-тип
	MimeType string
}

// LegacyServerArtifact — исторический формат: объект отдаётся
// файловым сервером приложения по фиксированному пути.
type LegacyServerArtifact struct {
	// FileName — имя файла на legacy-сервере
	FileName string
	// FileID — идентификатор файла на legacy-сервере (приоритетнее FileName)
	FileID string
}

// InlineArtifact — наименьший и самый старый формат: содержимое
// встроено в дескриптор как data URI, сетевой запрос не требуется.
type InlineArtifact struct {
	// DataURI — полезная нагрузка в формате RFC 2397 (data:<mime>;base64,...)
	DataURI string
	// DisplayName — имя для показа пользователю
	DisplayName string
}

// ArtifactDescriptor — ссылка на артефакт в одном из трёх форматов.
// Создаётся только через конструкторы New*Descriptor или ParseDescriptor,
// поэтому заполнен ровно один вариант.
type ArtifactDescriptor struct {
	remote *RemoteArtifact
	legacy *LegacyServerArtifact
	inline *InlineArtifact
}

// NewRemoteDescriptor создаёт дескриптор remote-артефакта.
func NewRemoteDescriptor(a RemoteArtifact) *ArtifactDescriptor {
	return &ArtifactDescriptor{remote: &a}
}

// NewLegacyDescriptor создаёт дескриптор legacy-артефакта.
func NewLegacyDescriptor(a LegacyServerArtifact) *ArtifactDescriptor {
	return &ArtifactDescriptor{legacy: &a}
}

// NewInlineDescriptor создаёт дескриптор inline-артефакта.
func NewInlineDescriptor(a InlineArtifact) *ArtifactDescriptor {
	return &ArtifactDescriptor{inline: &a}
}

// Remote возвращает remote-вариант, если он заполнен.
func (d *ArtifactDescriptor) Remote() (*RemoteArtifact, bool) {
	return d.remote, d.remote != nil
}

// Legacy возвращает legacy-вариант, если он заполнен.
func (d *ArtifactDescriptor) Legacy() (*LegacyServerArtifact, bool) {
	return d.legacy, d.legacy != nil
}

// Inline возвращает inline-вариант, если он заполнен.
func (d *ArtifactDescriptor) Inline() (*InlineArtifact, bool) {
	return d.inline, d.inline != nil
}

// DisplayName возвращает имя файла из заполненного варианта
// (оригинальное имя, legacy-имя или display name data URI).
func (d *ArtifactDescriptor) DisplayName() string {
	switch {
	case d.remote != nil:
		return d.remote.OriginalName
	case d.legacy != nil:
		return d.legacy.FileName
	case d.inline != nil:
		return d.inline.DisplayName
	}
	return ""
}

// DescriptorDocument — wire-формат дескриптора с опциональными полями.
// Исторически артефакт хранился duck-typed объектом, поэтому в одной
// записи могут одновременно присутствовать поля нескольких форматов
// (например, после миграции legacy → remote остаются устаревшие
// legacy-поля). Приоритет выбора формата фиксирован в ParseDescriptor.
type DescriptorDocument struct {
	StoreID      string `json:"store_id,omitempty"`
	DeliveryURL  string `json:"delivery_url,omitempty"`
	OriginalName string `json:"original_name,omitempty"`
	ByteSize     int64  `json:"byte_size,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`

	FileName string `json:"file_name,omitempty"`
	FileID   string `json:"file_id,omitempty"`

	DataURI     string `json:"data_uri,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// ParseDescriptor выбирает формат получения артефакта в фиксированном
// порядке приоритета: remote → legacy → inline. Порядок несёт смысловую
// нагрузку: мигрированный дескриптор может сохранять устаревшие
// legacy-поля, поэтому remote всегда выигрывает.
// Возвращает ErrInvalidDescriptor, если не заполнен ни один вариант.
func ParseDescriptor(doc DescriptorDocument) (*ArtifactDescriptor, error) {
	switch {
	case strings.TrimSpace(doc.DeliveryURL) != "":
		return NewRemoteDescriptor(RemoteArtifact{
			StoreID:      doc.StoreID,
			DeliveryURL:  doc.DeliveryURL,
			OriginalName: doc.OriginalName,
			ByteSize:     doc.ByteSize,
			MimeType:     doc.MimeType,
		}), nil
	case doc.FileID != "" || doc.FileName != "":
		return NewLegacyDescriptor(LegacyServerArtifact{
			FileName: doc.FileName,
			FileID:   doc.FileID,
		}), nil
	case doc.DataURI != "":
		return NewInlineDescriptor(InlineArtifact{
			DataURI:     doc.DataURI,
			DisplayName: doc.DisplayName,
		}), nil
	}
	return nil, ErrInvalidDescriptor
}

// UploadResult — результат успешной загрузки артефакта в хранилище.
// Неизменяем после создания; запись, ссылающаяся на артефакт
// (notice, submission, запись галереи), принадлежит вызывающему коду.
type UploadResult struct {
	// StoreID — идентификатор объекта в хранилище
	StoreID string `json:"store_id"`
	// DeliveryURL — нормализованный URL доставки
	DeliveryURL string `json:"delivery_url"`
	// ResourceType — тип ресурса, подтверждённый хранилищем
	ResourceType ResourceType `json:"resource_type"`
	// ByteSize — размер сохранённого объекта в байтах
	ByteSize int64 `json:"byte_size"`
}

// String — компактное представление для логов (без URL целиком).
func (r *UploadResult) String() string {
	return fmt.Sprintf("%s (%s, %d байт)", r.StoreID, r.ResourceType, r.ByteSize)
}
