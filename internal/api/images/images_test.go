package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-pokedex-api/config"
	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

const uploadDir = "uploads/pokemon"

var pngBytes = []byte("\x89PNG\r\n\x1a\nnot-really-a-png")

func newStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewStore(fs, config.StorageConfig{UploadDir: uploadDir, MaxUploadBytes: 1024})
	require.NoError(t, err)
	return store, fs
}

func TestExtension(t *testing.T) {
	tests := []struct {
		contentType string
		name        string
		want        string
		wantErr     bool
	}{
		{"image/png", "pikachu.png", "png", false},
		{"image/jpeg", "PIKACHU.JPG", "jpg", false},
		{"image/jpeg", "pikachu.jpeg", "jpeg", false},
		{"image/gif", "pikachu.gif", "gif", false},
		{"image/webp", "pikachu.webp", "", true},
		{"text/plain", "pikachu.png", "", true},
		{"image/png", "pikachu", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.contentType+" "+tt.name, func(t *testing.T) {
			got, err := Extension(tt.contentType, tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, api.ErrInvalidImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStoreSaveReplacesOtherExtensions(t *testing.T) {
	store, fs := newStore(t)

	name, n, err := store.Save(25, "png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "creature_25.png", name)
	assert.Equal(t, int64(len(pngBytes)), n)

	name, _, err = store.Save(25, "gif", strings.NewReader("GIF89a"))
	require.NoError(t, err)
	assert.Equal(t, "creature_25.gif", name)

	pngLeft, err := afero.Exists(fs, uploadDir+"/creature_25.png")
	require.NoError(t, err)
	assert.False(t, pngLeft)

	f, contentType, err := store.Open(25)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "image/gif", contentType)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "GIF89a", string(body))

	tmpLeft, err := afero.Exists(fs, uploadDir+"/creature_25.gif.tmp")
	require.NoError(t, err)
	assert.False(t, tmpLeft)
}

func TestStoreConcurrentSavesKeepOneWholeImage(t *testing.T) {
	store, fs := newStore(t)

	payloads := make([][]byte, 8)
	for i := range payloads {
		payloads[i] = bytes.Repeat([]byte{byte('a' + i)}, 512)
	}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.Save(7, "png", bytes.NewReader(p))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	f, _, err := store.Open(7)
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, payloads, got)

	entries, err := afero.ReadDir(fs, uploadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "creature_7.png", entries[0].Name())
}

func TestStoreRejects(t *testing.T) {
	store, fs := newStore(t)

	_, _, err := store.Save(1, "png", strings.NewReader(""))
	assert.ErrorIs(t, err, api.ErrInvalidImage)

	_, _, err = store.Save(1, "png", bytes.NewReader(make([]byte, 2048)))
	assert.ErrorIs(t, err, api.ErrInvalidImage)

	entries, err := afero.ReadDir(fs, uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, _, err = store.Open(1)
	assert.ErrorIs(t, err, api.ErrNotFound)

	removed, err := store.Remove(1)
	require.NoError(t, err)
	assert.False(t, removed)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Get(ctx context.Context, id int) (*types.CreatureView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CreatureView), args.Error(1)
}

func (m *MockCatalog) SetImageURL(ctx context.Context, id int, url *string) error {
	return m.Called(ctx, id, url).Error(0)
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formField, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newImageRouter(t *testing.T, catalog Catalog) http.Handler {
	t.Helper()
	store, _ := newStore(t)
	h := NewImageHandler(NewImageService(store, catalog, slog.Default()), 1024, slog.Default())

	r := chi.NewRouter()
	r.Get("/pokemon/{id}/image", h.GetImage)
	r.Post("/pokemon/{id}/image", h.UploadImage)
	r.Delete("/pokemon/{id}/image", h.DeleteImage)
	return r
}

func TestImageHandlersLifecycle(t *testing.T) {
	catalog := new(MockCatalog)
	router := newImageRouter(t, catalog)
	url := "/api/v1/pokemon/25/image"

	catalog.On("Get", mock.Anything, 25).Return(&types.CreatureView{Creature: types.Creature{ID: 25}}, nil)
	catalog.On("SetImageURL", mock.Anything, 25, &url).Return(nil).Once()
	catalog.On("SetImageURL", mock.Anything, 25, (*string)(nil)).Return(nil).Once()

	body, ct := multipartBody(t, "pikachu.png", "image/png", pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/pokemon/25/image", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"filename":"creature_25.png","image_url":"/api/v1/pokemon/25/image"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pokemon/25/image", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rr.Body.Bytes())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/pokemon/25/image", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pokemon/25/image", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	catalog.AssertExpectations(t)
}

func TestUploadImageRejections(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		filename    string
		contentType string
		content     []byte
		setup       func(catalog *MockCatalog)
		want        int
	}{
		{name: "not an image", id: "25", filename: "notes.txt", contentType: "text/plain", content: []byte("hi"), want: http.StatusBadRequest},
		{name: "bad extension", id: "25", filename: "pikachu.bmp", contentType: "image/bmp", content: pngBytes, want: http.StatusBadRequest},
		{
			name: "empty file", id: "25", filename: "pikachu.png", contentType: "image/png", content: []byte{},
			setup: func(catalog *MockCatalog) {
				catalog.On("Get", mock.Anything, 25).Return(&types.CreatureView{}, nil)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown creature", id: "404", filename: "pikachu.png", contentType: "image/png", content: pngBytes,
			setup: func(catalog *MockCatalog) {
				catalog.On("Get", mock.Anything, 404).Return(nil, api.ErrNotFound)
			},
			want: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := new(MockCatalog)
			if tt.setup != nil {
				tt.setup(catalog)
			}
			router := newImageRouter(t, catalog)

			body, ct := multipartBody(t, tt.filename, tt.contentType, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/pokemon/"+tt.id+"/image", body)
			req.Header.Set("Content-Type", ct)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			catalog.AssertNotCalled(t, "SetImageURL", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
