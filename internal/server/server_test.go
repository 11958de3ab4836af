package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	app "photo-classifier/internal/application"
	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
	"photo-classifier/internal/infrastructure/storage"
)

type backendFunc func() ([]entity.PredictionRow, error)

func (f backendFunc) Predict(ctx context.Context, img *entity.SourceImage) ([]entity.PredictionRow, error) {
	return f()
}

func newTestServer(t *testing.T, detectorErr error) *Server {
	t.Helper()
	dispatcher := app.NewInferenceDispatcher(map[entity.ModelChoice]port.InferenceBackend{
		entity.ModelMobileNetV2: backendFunc(func() ([]entity.PredictionRow, error) {
			return entity.RowsFromClassifications([]entity.Classification{
				{ClassName: "cat", Probability: 0.92},
				{ClassName: "dog", Probability: 0.05},
			}), nil
		}),
		entity.ModelCocoSSD: backendFunc(func() ([]entity.PredictionRow, error) {
			if detectorErr != nil {
				return nil, detectorErr
			}
			return entity.RowsFromDetections([]entity.Detection{
				{Class: "person", Score: 0.88, Box: entity.Box{X: 1, Y: 1, Width: 2, Height: 2}},
			}), nil
		}),
	})
	svc := app.NewClassificationService(storage.NewMemoryUserRepository(), dispatcher, nil, 0)
	return New(svc, Options{MaxUpload: 1 << 20})
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		fw, err := mw.CreateFormFile(field, "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 6, 6))))
	return buf.Bytes()
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, s *Server, path string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, imageField, data)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	return do(t, s, req)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestModels(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var models []modelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	require.Equal(t, []modelResponse{
		{ID: entity.ModelMobileNetV2, Title: "MobileNet V2"},
		{ID: entity.ModelCocoSSD, Title: "Coco SSD"},
	}, models)
}

func TestPredict(t *testing.T) {
	s := newTestServer(t, nil)

	rec := upload(t, s, "/v1/predict", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp predictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, entity.ModelMobileNetV2, resp.Model)
	require.Equal(t, []rowResponse{
		{ID: "0", Description: "cat", Probability: 0.92, Percent: 92},
		{ID: "1", Description: "dog", Probability: 0.05, Percent: 5},
	}, resp.Rows)

	rec = upload(t, s, "/v1/predict?model=coco", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, entity.ModelCocoSSD, resp.Model)
	require.Len(t, resp.Rows, 1)
	require.Equal(t, "person", resp.Rows[0].Description)
	require.NotNil(t, resp.Rows[0].Box)
}

func TestPredict_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	require.Equal(t, http.StatusBadRequest, upload(t, s, "/v1/predict?model=resnet", pngBytes(t)).Code)
	require.Equal(t, http.StatusBadRequest, upload(t, s, "/v1/predict", []byte("not an image")).Code)
	require.Equal(t, http.StatusBadRequest, upload(t, s, "/v1/predict", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusBadRequest, do(t, s, req).Code)
}

func TestPredict_BackendFailure(t *testing.T) {
	s := newTestServer(t, errors.New("weights missing"))
	rec := upload(t, s, "/v1/predict?model=COCO_SSD", pngBytes(t))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPredict_ConfiguredDefaultModel(t *testing.T) {
	dispatcher := app.NewInferenceDispatcher(map[entity.ModelChoice]port.InferenceBackend{
		entity.ModelCocoSSD: backendFunc(func() ([]entity.PredictionRow, error) {
			return entity.RowsFromDetections([]entity.Detection{{Class: "person", Score: 0.88}}), nil
		}),
	})
	svc := app.NewClassificationService(storage.NewMemoryUserRepository(), dispatcher, nil, 0)
	s := New(svc, Options{MaxUpload: 1 << 20, DefaultModel: entity.ModelCocoSSD})

	rec := upload(t, s, "/v1/predict", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp predictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, entity.ModelCocoSSD, resp.Model)
	require.Equal(t, "person", resp.Rows[0].Description)
}

func createSession(t *testing.T, s *Server) sessionResponse {
	t.Helper()
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func selectModel(t *testing.T, s *Server, id, model string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/"+id+"/model", strings.NewReader(`{"model":"`+model+`"}`))
	req.Header.Set("Content-Type", "application/json")
	return do(t, s, req)
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t, nil)
	session := createSession(t, s)
	require.Equal(t, entity.ModelMobileNetV2, session.Model)
	require.Empty(t, session.Rows)

	// смена модели без фото ничего не запускает
	rec := selectModel(t, s, session.ID, "COCO_SSD")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Ran)
	require.Equal(t, entity.ModelCocoSSD, resp.Model)

	rec = upload(t, s, "/v1/sessions/"+session.ID+"/image", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Ran)
	require.Len(t, resp.Rows, 1)
	require.Equal(t, "person", resp.Rows[0].Description)

	// та же картинка, другая модель: таблица заменена целиком
	rec = selectModel(t, s, session.ID, "mobilenet")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Ran)
	require.Len(t, resp.Rows, 2)
	require.Equal(t, uint64(2), resp.Run)

	// пустая загрузка не трогает таблицу
	require.Equal(t, http.StatusBadRequest, upload(t, s, "/v1/sessions/"+session.ID+"/image", nil).Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+session.ID+"/rows", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 2)
	require.Equal(t, "cat", resp.Rows[0].Description)
	require.Equal(t, uint64(2), resp.Run)
}

func TestSession_NotFoundAndBadModel(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/sessions/not-a-uuid/rows", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/v1/sessions/2b1e4a3c-53c4-4f0e-9a57-3f1d3f3a1e11/rows", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	session := createSession(t, s)
	require.Equal(t, http.StatusBadRequest, selectModel(t, s, session.ID, "resnet").Code)

	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/"+session.ID+"/model", strings.NewReader("{"))
	require.Equal(t, http.StatusBadRequest, do(t, s, req).Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "2b1e4a3c-53c4-4f0e-9a57-3f1d3f3a1e11")
	rec := do(t, s, req)
	require.Equal(t, "2b1e4a3c-53c4-4f0e-9a57-3f1d3f3a1e11", rec.Header().Get("X-Request-ID"))
}
