package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	app "photo-classifier/internal/application"
	"photo-classifier/internal/domain/entity"
)

const imageField = "image"

// Options настройки HTTP API
type Options struct {
	MaxUpload    int64
	DefaultModel entity.ModelChoice // модель для /v1/predict без параметра model
	SessionTTL   time.Duration
	MaxSessions  int
}

// Server HTTP API поверх сервиса распознавания
type Server struct {
	classification *app.ClassificationService
	sessions       *sessionRegistry
	maxUpload      int64
	defaultModel   entity.ModelChoice
	router         *mux.Router
}

func New(classification *app.ClassificationService, opts Options) *Server {
	s := &Server{
		classification: classification,
		maxUpload:      opts.MaxUpload,
		defaultModel:   opts.DefaultModel,
		router:         mux.NewRouter(),
	}
	if !s.defaultModel.Valid() {
		s.defaultModel = entity.DefaultModel
	}
	s.sessions = newSessionRegistry(opts.SessionTTL, opts.MaxSessions, s.forget)
	s.routes()
	return s
}

func (s *Server) forget(userID int64) {
	if err := s.classification.Forget(context.Background(), userID); err != nil {
		log.Printf("Failed to drop expired session %d: %v", userID, err)
	}
}

func (s *Server) routes() {
	s.router.Use(withRequestID, enableCORS)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/models", s.handleModels).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/predict", s.handlePredict).Methods(http.MethodPost, http.MethodOptions)

	s.router.HandleFunc("/v1/sessions", s.handleCreateSession).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/v1/sessions/{id}/image", s.handleSessionImage).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/v1/sessions/{id}/model", s.handleSessionModel).Methods(http.MethodPut, http.MethodOptions)
	s.router.HandleFunc("/v1/sessions/{id}/rows", s.handleSessionRows).Methods(http.MethodGet)
}

func (s *Server) Router() http.Handler { return s.router }

// StartMetrics поднимает /metrics на отдельном адресе
func StartMetrics(addr string) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, metricsMux); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.classification.Models()
	out := make([]modelResponse, 0, len(models))
	for _, m := range models {
		out = append(out, modelResponse{ID: m, Title: m.Title()})
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePredict распознаёт картинку без сессии: POST /v1/predict?model=COCO_SSD
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	model := s.defaultModel
	if name := r.URL.Query().Get("model"); name != "" {
		parsed, err := entity.ParseModelChoice(name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		model = parsed
	}

	data, err := s.readImage(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(data) == 0 {
		log.Printf("No file was uploaded.")
	}

	rows, err := s.classification.Predict(r.Context(), data, model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{Model: model, Rows: toRows(rows)})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, userID := s.sessions.create()
	user, err := s.classification.Rows(r.Context(), userID, 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(id.String(), user, nil))
}

// handleSessionImage заменяет фото сессии и распознаёт его активной моделью
func (s *Server) handleSessionImage(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := s.session(w, r)
	if !ok {
		return
	}

	data, err := s.readImage(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.classification.AcceptPhoto(r.Context(), userID, 0, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionView(id, out.User, out))
}

// handleSessionModel переключает модель; при наличии фото запускает распознавание заново
func (s *Server) handleSessionModel(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := s.session(w, r)
	if !ok {
		return
	}

	var req selectModelRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON", RequestID: requestID(r.Context())})
		return
	}
	model, err := entity.ParseModelChoice(req.Model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.classification.SelectModel(r.Context(), userID, 0, model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionView(id, out.User, out))
}

func (s *Server) handleSessionRows(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := s.session(w, r)
	if !ok {
		return
	}

	user, err := s.classification.Rows(r.Context(), userID, 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionView(id, user, nil))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	id, userID, ok := s.sessions.lookup(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found", RequestID: requestID(r.Context())})
		return "", 0, false
	}
	return id.String(), userID, true
}

// readImage читает поле image из multipart-формы. Отсутствие файла не ошибка: вернётся nil.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return nil, errBadForm
	}

	file, header, err := r.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errBadForm
	}
	defer file.Close()

	log.Printf("Received file: %s, size: %d bytes", header.Filename, header.Size)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errBadForm
	}
	return data, nil
}

var errBadForm = errors.New("failed to parse form")

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "prediction failed"

	switch {
	case errors.Is(err, errBadForm):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrNoImage):
		status, msg = http.StatusBadRequest, "no image file provided, use 'image' as the form field name"
	case errors.Is(err, entity.ErrDecodeImage):
		status, msg = http.StatusBadRequest, "invalid image format, supported: JPEG, PNG, GIF"
	case errors.Is(err, entity.ErrUnknownModel):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "prediction timed out"
	default:
		log.Printf("%s prediction error: %v", requestID(r.Context()), err)
	}

	writeJSON(w, status, errorResponse{Error: msg, RequestID: requestID(r.Context())})
}

func sessionView(id string, user *entity.User, out *app.RunOutput) sessionResponse {
	resp := sessionResponse{
		ID:    id,
		Model: user.Model,
		State: user.State,
		Run:   user.RunSeq,
		Rows:  toRows(user.Rows),
	}
	if out != nil {
		resp.Ran = out.Ran
		resp.Superseded = out.Superseded
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
