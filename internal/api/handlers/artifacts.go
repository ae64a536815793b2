// artifacts.go — обработчики операций с артефактами.
// POST /api/v1/artifacts          — загрузка (multipart) в хранилище
// POST /api/v1/artifacts/resolve  — получение артефакта по дескриптору
// DELETE /api/v1/artifacts/{id}   — best-effort удаление из хранилища
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/artdelivery/internal/api/errors"
	"github.com/bigkaa/artdelivery/internal/classify"
	"github.com/bigkaa/artdelivery/internal/domain/model"
	"github.com/bigkaa/artdelivery/internal/hostenv"
	"github.com/bigkaa/artdelivery/internal/service"
	"github.com/bigkaa/artdelivery/internal/staging"
	"github.com/bigkaa/artdelivery/internal/storeclient"
)

// handleUpload — реализация POST /api/v1/artifacts.
// Multipart-поле file обязательно; поле hint — подсказка классификатору
// (image / document). Файл сначала размещается в staging-директории,
// после put staged-копия удаляется на любом исходе.
func (h *APIHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.WriteError(w, http.StatusRequestEntityTooLarge, apierrors.CodeFileTooLarge,
				"Размер файла превышает допустимый максимум")
			return
		}
		apierrors.ValidationError(w, "Отсутствует multipart-поле file")
		return
	}
	defer file.Close()

	guard, err := staging.Stage(h.cfg.StagingDir, file, header.Filename, h.logger)
	if err != nil {
		h.logger.Error("Ошибка staging загрузки", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Не удалось разместить файл для загрузки")
		return
	}
	// Страховка на случай ошибки до передачи владения UploadService
	defer guard.Release()

	declaredMIME := header.Header.Get("Content-Type")
	hint := classify.Hint(r.FormValue("hint"))

	result, err := h.uploads.Upload(r.Context(), guard.Path(), header.Filename, declaredMIME, hint)
	if err != nil {
		var storeErr *storeclient.UploadError
		if errors.As(err, &storeErr) {
			h.logger.Warn("Хранилище отклонило загрузку",
				slog.Int("status", storeErr.StatusCode),
				slog.String("filename", header.Filename),
			)
			apierrors.WriteError(w, http.StatusBadGateway, apierrors.CodeStoreUploadFailed, storeErr.Error())
			return
		}
		h.logger.Error("Ошибка загрузки артефакта", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при загрузке артефакта")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleResolve — реализация POST /api/v1/artifacts/resolve.
// Тело — wire-дескриптор артефакта; query-параметр mode: download (по
// умолчанию) или view. Байты отдаются в ответе как attachment.
func (h *APIHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var doc model.DescriptorDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON дескриптора артефакта")
		return
	}

	deliveryMode := service.ModeDownload
	if r.URL.Query().Get("mode") == string(service.ModeView) {
		deliveryMode = service.ModeView
	}

	env := &responseEnvironment{
		Fetcher: h.fetcher,
		w:       w,
		logger:  h.logger,
	}

	err := h.download.Download(r.Context(), env, doc, deliveryMode)
	if err == nil {
		return
	}

	// Маппинг ошибок read path в коды API.
	// Диагностика без внутренних путей и учётных данных хранилища.
	var fetchErr *hostenv.FetchError
	var deliveryErr *service.DeliveryError
	switch {
	case errors.Is(err, model.ErrInvalidDescriptor):
		apierrors.WriteError(w, http.StatusUnprocessableEntity, apierrors.CodeInvalidDescriptor,
			"Дескриптор не содержит ни одного способа получения артефакта")
	case errors.As(err, &fetchErr):
		if fetchErr.StatusCode == http.StatusNotFound {
			apierrors.NotFound(w, "Артефакт не найден в хранилище")
			return
		}
		apierrors.WriteError(w, http.StatusBadGateway, apierrors.CodeFetchFailed, fetchErr.Error())
	case errors.Is(err, service.ErrEmptyPayload):
		apierrors.WriteError(w, http.StatusBadGateway, apierrors.CodeEmptyPayload, "Получен пустой файл")
	case errors.As(err, &deliveryErr):
		h.logger.Error("Ошибка передачи файла пользователю", slog.String("error", err.Error()))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.CodeDeliveryFailed,
			"Не удалось передать файл пользователю")
	default:
		h.logger.Error("Ошибка получения артефакта", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при получении артефакта")
	}
}

// handleDelete — реализация DELETE /api/v1/artifacts/{storeId}.
// Best effort: всегда 202, результат наблюдаем в логах и метриках.
// storeId может содержать папку, поэтому маршрут wildcard.
func (h *APIHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "*")
	if storeID == "" {
		apierrors.ValidationError(w, "Не указан идентификатор артефакта")
		return
	}

	rt := model.ResourceTypeDocument
	if r.URL.Query().Get("resource_type") == string(model.ResourceTypeImage) {
		rt = model.ResourceTypeImage
	}

	deleted := h.uploads.Delete(r.Context(), storeID, rt)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"store_id": storeID,
		"deleted":  deleted,
	})
}

// responseEnvironment — host-окружение HTTP-запроса: PresentFile пишет
// байты в ответ как attachment. Окружение принадлежит одному запросу.
type responseEnvironment struct {
	*hostenv.Fetcher
	w         http.ResponseWriter
	logger    *slog.Logger
	presented bool
}

// NotifyUser — для HTTP-хоста сообщение уходит в лог:
// пользовательский ответ формируется маппингом ошибок обработчика.
func (e *responseEnvironment) NotifyUser(message string) {
	e.logger.Info("Сообщение пользователю", slog.String("message", message))
}

// PresentFile отдаёт байты как attachment с санитизированным именем.
func (e *responseEnvironment) PresentFile(data []byte, filename string) error {
	if e.presented {
		return errors.New("ответ уже сформирован")
	}
	e.presented = true

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	e.w.Header().Set("Content-Type", contentType)
	e.w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	e.w.WriteHeader(http.StatusOK)
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	return nil
}
