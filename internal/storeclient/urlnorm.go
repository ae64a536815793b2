// urlnorm.go — нормализация delivery URL удалённого хранилища.
//
// Формат delivery URL: <base>/<сегмент типа>/upload/<folder>/<storeId>[.ext],
// где сегмент типа — image или raw. Часть хранилищ в ответе put не
// отражает запрошенный тип ресурса, поэтому raw/document-артефакты могут
// получить image-URL. Нормализатор переписывает сегмент, а при
// необходимости реконструирует URL из базового пути и storeId.
package storeclient

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/bigkaa/artdelivery/internal/domain/model"
)

// Сегменты delivery URL удалённого хранилища.
const (
	segmentImage  = "/image/upload/"
	segmentRaw    = "/raw/upload/"
	uploadMarker  = "/upload/"
	attachmentTag = "fl_attachment"
)

// NormalizeDeliveryURL приводит delivery URL в соответствие с
// требуемым типом ресурса.
//
// Алгоритм:
//  1. URL содержит image-сегмент, а требуемый тип — Document →
//     сегмент переписывается на raw.
//  2. Если storeId известен, а URL после переписывания всё ещё не
//     содержит нужный сегмент — URL реконструируется из базового пути
//     хранилища, типа ресурса и storeId (расширение из id отбрасывается).
//
// Для ResourceTypeAuto URL возвращается без изменений: тип определяет
// хранилище, и его ответ считается истинным.
func NormalizeDeliveryURL(deliveryURL, storeID string, rt model.ResourceType) string {
	if deliveryURL == "" || rt == model.ResourceTypeAuto {
		return deliveryURL
	}

	normalized := deliveryURL
	if rt == model.ResourceTypeDocument && strings.Contains(normalized, segmentImage) {
		normalized = strings.Replace(normalized, segmentImage, segmentRaw, 1)
	}

	wantSegment := "/" + rt.Segment() + uploadMarker
	if strings.Contains(normalized, wantSegment) {
		return normalized
	}

	// URL так и не соответствует типу — реконструируем из base + storeId
	if storeID != "" {
		if rebuilt := rebuildDeliveryURL(normalized, storeID, rt); rebuilt != "" {
			return rebuilt
		}
	}

	return normalized
}

// WithAttachmentHint вставляет флаг прямого скачивания (fl_attachment)
// сразу после сегмента /upload/ delivery URL. URL без сегмента /upload/
// возвращается без изменений. Повторная вставка не выполняется.
func WithAttachmentHint(deliveryURL string) string {
	if strings.Contains(deliveryURL, uploadMarker+attachmentTag+"/") {
		return deliveryURL
	}
	idx := strings.Index(deliveryURL, uploadMarker)
	if idx == -1 {
		return deliveryURL
	}
	cut := idx + len(uploadMarker)
	return deliveryURL[:cut] + attachmentTag + "/" + deliveryURL[cut:]
}

// rebuildDeliveryURL реконструирует delivery URL из базового пути
// исходного URL, типа ресурса и storeId.
// Расширение файла в storeId отбрасывается: для raw-доставки
// идентификатор объекта не содержит суффикса.
func rebuildDeliveryURL(deliveryURL, storeID string, rt model.ResourceType) string {
	base := deliveryBase(deliveryURL)
	if base == "" {
		return ""
	}

	id := strings.TrimPrefix(storeID, "/")
	if ext := path.Ext(id); ext != "" {
		id = strings.TrimSuffix(id, ext)
	}

	return fmt.Sprintf("%s/%s/upload/%s", base, rt.Segment(), id)
}

// deliveryBase извлекает базовый путь хранилища из delivery URL:
// часть до известного сегмента типа, иначе scheme://host.
func deliveryBase(deliveryURL string) string {
	for _, seg := range []string{segmentImage, segmentRaw} {
		if idx := strings.Index(deliveryURL, seg); idx != -1 {
			return deliveryURL[:idx]
		}
	}

	parsed, err := url.Parse(deliveryURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
