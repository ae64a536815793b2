package storeclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigkaa/artdelivery/internal/domain/model"
)

// newMockStoreServer создаёт тестовый HTTP-сервер, имитирующий
// удалённое object store.
func newMockStoreServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

// stageTestFile создаёт локальный файл для put-запросов.
func stageTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("создание тестового файла: %v", err)
	}
	return path
}

// TestClient_Put_Success проверяет успешный put: multipart-поля,
// Authorization header и разбор ответа.
func TestClient_Put_Success(t *testing.T) {
	var gotPath, gotAuth, gotFolder, gotAccessMode string
	var gotQuality []string

	srv := newMockStoreServer(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("разбор multipart: %v", err)
		}
		gotFolder = r.FormValue("folder")
		gotAccessMode = r.FormValue("access_mode")
		gotQuality = r.MultipartForm.Value["quality"]

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(putResponse{
			StoreID:      "artifacts/abc123",
			ResourceType: "raw",
			DeliveryURL:  "https://store.example.com/raw/upload/artifacts/abc123",
			Bytes:        17,
		})
	})
	defer srv.Close()

	client := New(srv.URL, "test-key", 10*time.Second, slog.Default())
	path := stageTestFile(t, "report.pdf", "%PDF-1.4 контент")

	result, err := client.Put(context.Background(), path, DocumentPutOptions("artifacts"))
	if err != nil {
		t.Fatalf("Put ошибка: %v", err)
	}

	if gotPath != "/api/v1/raw/upload" {
		t.Errorf("путь запроса = %q, ожидался /api/v1/raw/upload", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotFolder != "artifacts" {
		t.Errorf("folder = %q", gotFolder)
	}
	if gotAccessMode != AccessModePublic {
		t.Errorf("access_mode = %q", gotAccessMode)
	}
	// Для документа quality не передаётся
	if len(gotQuality) != 0 {
		t.Errorf("quality = %v, для документа поле недопустимо", gotQuality)
	}

	if result.StoreID != "artifacts/abc123" {
		t.Errorf("StoreID = %q", result.StoreID)
	}
	if result.ResourceType != model.ResourceTypeDocument {
		t.Errorf("ResourceType = %q", result.ResourceType)
	}
	if result.ByteSize != 17 {
		t.Errorf("ByteSize = %d", result.ByteSize)
	}
}

// TestClient_Put_ImageOptions проверяет передачу image-опций трансформации.
func TestClient_Put_ImageOptions(t *testing.T) {
	var gotQuality, gotFetchFormat string

	srv := newMockStoreServer(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(10 << 20)
		gotQuality = r.FormValue("quality")
		gotFetchFormat = r.FormValue("fetch_format")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(putResponse{
			StoreID:      "gallery/pic1",
			ResourceType: "image",
			DeliveryURL:  "https://store.example.com/image/upload/gallery/pic1",
			Bytes:        4,
		})
	})
	defer srv.Close()

	client := New(srv.URL, "", 10*time.Second, slog.Default())
	path := stageTestFile(t, "pic.png", "PNG!")

	if _, err := client.Put(context.Background(), path, ImagePutOptions("gallery")); err != nil {
		t.Fatalf("Put ошибка: %v", err)
	}

	if gotQuality != "auto:good" {
		t.Errorf("quality = %q, ожидался auto:good", gotQuality)
	}
	if gotFetchFormat != "auto" {
		t.Errorf("fetch_format = %q, ожидался auto", gotFetchFormat)
	}
}

// TestClient_Put_StoreError проверяет *UploadError при не-2xx ответе хранилища.
func TestClient_Put_StoreError(t *testing.T) {
	srv := newMockStoreServer(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("quota exceeded"))
	})
	defer srv.Close()

	client := New(srv.URL, "", 10*time.Second, slog.Default())
	path := stageTestFile(t, "f.bin", "x")

	_, err := client.Put(context.Background(), path, AutoPutOptions("artifacts"))
	if err == nil {
		t.Fatal("ожидалась ошибка put")
	}

	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("ошибка = %T, ожидался *UploadError", err)
	}
	if uploadErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, ожидался 429", uploadErr.StatusCode)
	}
}

// TestClient_Put_MissingLocalFile проверяет ошибку открытия staged-файла.
func TestClient_Put_MissingLocalFile(t *testing.T) {
	client := New("http://store.invalid", "", time.Second, slog.Default())

	_, err := client.Put(context.Background(), filepath.Join(t.TempDir(), "нет.bin"), AutoPutOptions("a"))
	if err == nil {
		t.Fatal("ожидалась ошибка для отсутствующего файла")
	}
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("ошибка = %T, ожидался *UploadError", err)
	}
}

// TestClient_Delete_Success проверяет подтверждённое удаление.
func TestClient_Delete_Success(t *testing.T) {
	var gotPath, gotBody string

	srv := newMockStoreServer(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	client := New(srv.URL, "", 10*time.Second, slog.Default())

	if ok := client.Delete(context.Background(), "artifacts/abc123", model.ResourceTypeDocument); !ok {
		t.Error("Delete должен подтвердить удаление")
	}
	if gotPath != "/api/v1/raw/destroy" {
		t.Errorf("путь запроса = %q", gotPath)
	}
	if gotBody != "store_id=artifacts/abc123" {
		t.Errorf("тело запроса = %q", gotBody)
	}
}

// TestClient_Delete_SwallowsFailure проверяет best-effort семантику:
// сбой delete не поднимается, но наблюдаем через возвращаемое значение.
func TestClient_Delete_SwallowsFailure(t *testing.T) {
	srv := newMockStoreServer(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	client := New(srv.URL, "", 10*time.Second, slog.Default())

	if ok := client.Delete(context.Background(), "artifacts/abc123", model.ResourceTypeImage); ok {
		t.Error("Delete не должен подтверждать удаление при 500")
	}
}

// TestClient_Delete_TransportFailure проверяет best-effort при недоступном хранилище.
func TestClient_Delete_TransportFailure(t *testing.T) {
	client := New("http://127.0.0.1:1", "", time.Second, slog.Default())

	if ok := client.Delete(context.Background(), "x", model.ResourceTypeDocument); ok {
		t.Error("Delete не должен подтверждать удаление при транспортной ошибке")
	}
}
