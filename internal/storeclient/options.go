// options.go — опции операции put удалённого хранилища.
// Опции трансформации изображений (quality, fetch_format) существуют
// только у image-опций: для документов их невозможно задать на уровне типа.
package storeclient

import (
	"net/url"

	"github.com/bigkaa/artdelivery/internal/domain/model"
)

// Режимы доступа хранилища.
const (
	// AccessModePublic — объект доступен по delivery URL без подписи.
	AccessModePublic = "public"
)

// PutOptions — параметры put-запроса к хранилищу.
// Создаются только через Document/Image/AutoPutOptions, поэтому
// image-опции никогда не попадают в запрос для документа.
type PutOptions struct {
	folder       string
	resourceType model.ResourceType
	accessMode   string
	quality      string
	fetchFormat  string
}

// DocumentPutOptions — опции загрузки документа (raw).
// Опции трансформации изображений не задаются.
func DocumentPutOptions(folder string) PutOptions {
	return PutOptions{
		folder:       folder,
		resourceType: model.ResourceTypeDocument,
		accessMode:   AccessModePublic,
	}
}

// ImagePutOptions — опции загрузки изображения,
// с авто-подбором качества и формата доставки.
func ImagePutOptions(folder string) PutOptions {
	return PutOptions{
		folder:       folder,
		resourceType: model.ResourceTypeImage,
		accessMode:   AccessModePublic,
		quality:      "auto:good",
		fetchFormat:  "auto",
	}
}

// AutoPutOptions — опции загрузки с авто-классификацией на стороне
// хранилища (MIME-тип неизвестен или не распознан).
func AutoPutOptions(folder string) PutOptions {
	return PutOptions{
		folder:       folder,
		resourceType: model.ResourceTypeAuto,
		accessMode:   AccessModePublic,
	}
}

// ResourceType возвращает запрошенный тип ресурса.
func (o PutOptions) ResourceType() model.ResourceType {
	return o.resourceType
}

// Folder возвращает папку хранилища.
func (o PutOptions) Folder() string {
	return o.folder
}

// HasImageTransforms сообщает, заданы ли image-опции трансформации.
func (o PutOptions) HasImageTransforms() bool {
	return o.quality != "" || o.fetchFormat != ""
}

// FormValues сериализует опции в поля multipart/form-data put-запроса.
func (o PutOptions) FormValues() url.Values {
	v := url.Values{}
	v.Set("folder", o.folder)
	v.Set("access_mode", o.accessMode)
	if o.quality != "" {
		v.Set("quality", o.quality)
	}
	if o.fetchFormat != "" {
		v.Set("fetch_format", o.fetchFormat)
	}
	return v
}
