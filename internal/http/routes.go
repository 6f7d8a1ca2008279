package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"autism-screening/internal/db"
	"autism-screening/internal/pipeline"
	"autism-screening/internal/schemas"
	"autism-screening/internal/screening"
	"autism-screening/internal/storage"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 2*storage.MaxMediaBytes + 1<<20
)

type Server struct {
	Store    Store
	Queue    Queue
	Media    Media
	Cache    Cache
	Screener *pipeline.Screener
	APIToken string
	Log      *slog.Logger
}

// NewServer wires the router into an *http.Server listening on addr.
func NewServer(addr string, s *Server) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) Routes() http.Handler {
	if s.Log == nil {
		s.Log = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, RequestLogger(s.Log), m.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Use(RequireAPIToken(s.APIToken))
		r.Post("/questionnaire", s.scoreQuestionnaire)
		r.Post("/screenings", s.createScreening)
		r.Post("/screenings/media", s.createMediaScreening)
		r.Get("/screenings/{id}", s.getScreening)
	})

	r.Get("/healthz", s.health)
	return r
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps err onto a status code. Unexpected errors are logged and
// hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, screening.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errResp{err.Error()})
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResp{"not found"})
	default:
		s.Log.Error("request failed", "path", r.URL.Path, "request_id", m.GetReqID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errResp{"internal error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(screening.ErrInvalidInput, "body: %v", err)
	}
	return nil
}

func (s *Server) scoreQuestionnaire(w http.ResponseWriter, r *http.Request) {
	var req schemas.QuestionnaireRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Screener.ScoreQuestionnaire(req.Answers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schemas.QuestionnaireOut{
		Label:     res.Label,
		Score:     res.Score,
		MaxScore:  res.MaxScore,
		Threshold: res.Threshold,
	})
}

func (s *Server) createScreening(w http.ResponseWriter, r *http.Request) {
	var req schemas.ScreeningRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	report, err := s.Screener.Screen(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id := uuid.NewString()
	doc := report.Document()
	if err := s.Store.CreateComplete(r.Context(), id, db.SourceSignals, req, doc); err != nil {
		s.fail(w, r, err)
		return
	}
	out := &schemas.ScreeningOut{ID: id, Status: schemas.StatusComplete, CreatedAt: time.Now().UTC(), Report: &doc}
	s.cacheSet(r, out)
	s.Log.Info("screening complete", "screening_id", id, "label", doc.Label, "confidence", doc.Confidence)
	writeJSON(w, http.StatusCreated, out)
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func (s *Server) createMediaScreening(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.fail(w, r, errors.Wrapf(screening.ErrInvalidInput, "multipart: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	photo, err := formFile(r, "photo")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	audio, err := formFile(r, "audio")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if photo == nil && audio == nil {
		s.fail(w, r, errors.Wrap(screening.ErrInvalidInput, "a photo or audio file is required"))
		return
	}

	answers := splitAnswers(r.FormValue("answers"))
	if len(answers) > 0 {
		if _, err := s.Screener.ScoreQuestionnaire(answers); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	id := uuid.NewString()
	payload := schemas.ClassifyMediaPayload{ScreeningID: id, Answers: answers}
	if photo != nil {
		if payload.PhotoRef, err = s.Media.PutMedia(r.Context(), "photo", photo.name, photo.contentType, photo.data); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if audio != nil {
		if payload.AudioRef, err = s.Media.PutMedia(r.Context(), "audio", audio.name, audio.contentType, audio.data); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	if err := s.Store.CreatePending(r.Context(), id, payload); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Queue.EnqueueClassify(r.Context(), payload); err != nil {
		if ferr := s.Store.Fail(r.Context(), id, "enqueue failed"); ferr != nil {
			s.Log.Error("mark screening failed", "screening_id", id, "error", ferr)
		}
		s.fail(w, r, err)
		return
	}
	s.Log.Info("media screening queued", "screening_id", id, "photo", photo != nil, "audio", audio != nil)
	writeJSON(w, http.StatusAccepted, schemas.ScreeningOut{ID: id, Status: schemas.StatusPending})
}

func (s *Server) getScreening(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.Cache != nil {
		cached, err := s.Cache.Get(r.Context(), id)
		if err != nil {
			s.Log.Warn("report cache get failed", "screening_id", id, "error", err)
		}
		if cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	row, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := row.Out()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cacheSet(r, &out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		s.Log.Error("health check failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResp{"db error"})
		return
	}
	cfg := s.Screener.Config()
	weights := make(map[screening.Modality]float64)
	for _, mod := range []screening.Modality{screening.ModalityFace, screening.ModalityEye, screening.ModalityVoice, screening.ModalityQuestionnaire} {
		weights[mod] = cfg.Policy.WeightFor(mod)
	}
	for _, mod := range cfg.Policy.Modalities() {
		weights[mod] = cfg.Policy.WeightFor(mod)
	}
	writeJSON(w, http.StatusOK, schemas.HealthOut{
		Status: "ok",
		Policy: schemas.PolicyOut{
			Modalities:          weights,
			MinAvailableSignals: cfg.Policy.MinAvailableSignals,
			TieBreak:            cfg.Policy.EffectiveTieBreak(),
			Confidence:          cfg.Policy.EffectiveConfidence(),
		},
		Questions: len(cfg.Questions.Questions),
	})
}

func (s *Server) cacheSet(r *http.Request, out *schemas.ScreeningOut) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Set(r.Context(), out); err != nil {
		s.Log.Warn("report cache set failed", "screening_id", out.ID, "error", err)
	}
}

// formFile returns nil when field is absent.
func formFile(r *http.Request, field string) (*upload, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(screening.ErrInvalidInput, "%s: %v", field, err)
	}
	defer f.Close()
	return readUpload(f, hdr, field)
}

func readUpload(f multipart.File, hdr *multipart.FileHeader, field string) (*upload, error) {
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxMediaBytes+1))
	if err != nil {
		return nil, errors.Wrapf(screening.ErrInvalidInput, "%s: %v", field, err)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(screening.ErrInvalidInput, "%s is empty", field)
	}
	if len(data) > storage.MaxMediaBytes {
		return nil, errors.Wrapf(screening.ErrInvalidInput, "%s exceeds %d bytes", field, storage.MaxMediaBytes)
	}
	return &upload{name: hdr.Filename, contentType: hdr.Header.Get("Content-Type"), data: data}, nil
}

// splitAnswers reads a comma separated answer list. Blank input means none.
func splitAnswers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
