// Пакет classify — классификация загружаемого артефакта для
// удалённого хранилища: MIME-тип + подсказка вызывающего кода →
// тип ресурса и опции put. Image-опции трансформации прикрепляются
// только к image-загрузкам — это гарантируют конструкторы PutOptions.
package classify

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/bigkaa/artdelivery/internal/domain/model"
	"github.com/bigkaa/artdelivery/internal/storeclient"
)

// Hint — подсказка вызывающего кода о назначении загрузки.
type Hint string

const (
	// HintNone — назначение неизвестно, классификация только по MIME.
	HintNone Hint = ""
	// HintImage — загрузка заявлена как изображение (например, для галереи).
	HintImage Hint = "image"
	// HintDocument — загрузка заявлена как документ.
	HintDocument Hint = "document"
)

// documentMIMETypes — MIME-типы, классифицируемые как Document.
var documentMIMETypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"text/plain": {},
}

// Classify определяет тип ресурса и опции put для загрузки.
//
// Политика:
//   - документные MIME-типы (application/pdf и т.п.) → Document;
//   - распространённые image-типы → Image c опциями трансформации;
//   - неизвестный или пустой MIME → авто-классификация на стороне
//     хранилища (generic binary).
//
// Подсказка вызывающего кода имеет приоритет над MIME-типом:
// она отражает знание о назначении загрузки (галерея, документ),
// которого у классификатора нет.
func Classify(mimeType string, hint Hint, folder string) (model.ResourceType, storeclient.PutOptions) {
	switch hint {
	case HintImage:
		return model.ResourceTypeImage, storeclient.ImagePutOptions(folder)
	case HintDocument:
		return model.ResourceTypeDocument, storeclient.DocumentPutOptions(folder)
	}

	switch {
	case isImageMIME(mimeType):
		return model.ResourceTypeImage, storeclient.ImagePutOptions(folder)
	case isDocumentMIME(mimeType):
		return model.ResourceTypeDocument, storeclient.DocumentPutOptions(folder)
	}

	return model.ResourceTypeAuto, storeclient.AutoPutOptions(folder)
}

// ClassifyFilename — классификация по расширению имени файла,
// когда MIME-тип не заявлен. Расширение переводится в MIME стандартной
// таблицей mime.TypeByExtension.
func ClassifyFilename(filename string, hint Hint, folder string) (model.ResourceType, storeclient.PutOptions) {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	return Classify(mimeType, hint, folder)
}

// isImageMIME распознаёт распространённые image-типы.
func isImageMIME(mimeType string) bool {
	return strings.HasPrefix(normalizeMIME(mimeType), "image/")
}

// isDocumentMIME распознаёт документные типы.
func isDocumentMIME(mimeType string) bool {
	_, ok := documentMIMETypes[normalizeMIME(mimeType)]
	return ok
}

// normalizeMIME отбрасывает параметры (charset и т.д.) и регистр.
func normalizeMIME(mimeType string) string {
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
