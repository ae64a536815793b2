// Пакет hostenv — внедряемое host-окружение доставки.
// Сетевое получение байт, уведомление пользователя и передача файла
// пользователю абстрагированы интерфейсом Environment: боевой код
// привязывает их к HTTP-клиенту и файловой системе (или HTTP-ответу),
// тесты — к in-memory fake.
package hostenv

import (
	"context"
	"fmt"
)

// Environment — host-возможности, нужные read path.
type Environment interface {
	// FetchBytes выполняет сетевое получение содержимого по URL.
	// Возвращает байты и заявленный Content-Type (может быть пустым —
	// заголовок носит рекомендательный характер и не считается истинным).
	FetchBytes(ctx context.Context, url string) ([]byte, string, error)

	// NotifyUser показывает пользователю сообщение (алерт, stderr, лог).
	NotifyUser(message string)

	// PresentFile передаёт байты пользователю как файл с указанным именем
	// (save-as браузера, запись на диск для CLI/desktop-хоста).
	PresentFile(data []byte, filename string) error
}

// FetchError — сбой сетевого получения: не-2xx статус ответа.
// Статус-код сохраняется для диагностики пользователю.
type FetchError struct {
	// StatusCode — HTTP-статус ответа
	StatusCode int
	// URL — запрошенный URL
	URL string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("получение артефакта не выполнено: статус %d", e.StatusCode)
}
