package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"

	"autism-screening/internal/classifier"
	"autism-screening/internal/db"
	"autism-screening/internal/pipeline"
	"autism-screening/internal/schemas"
	"autism-screening/internal/screening"
	"autism-screening/internal/storage"
)

type Store interface {
	Complete(ctx context.Context, id string, report screening.ReportDocument) error
	Fail(ctx context.Context, id, msg string) error
}

type MediaSource interface {
	GetMedia(ctx context.Context, ref string) ([]byte, error)
}

type Classifier interface {
	Classify(ctx context.Context, m classifier.Media) []screening.ModalityPrediction
}

type Cache interface {
	Delete(ctx context.Context, id string) error
}

type Server struct {
	Store      Store
	Media      MediaSource
	Classifier Classifier
	Screener   *pipeline.Screener
	Cache      Cache
	Log        *slog.Logger
}

func (s *Server) Mux() *asynq.ServeMux {
	if s.Log == nil {
		s.Log = slog.Default()
	}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeClassifyMedia, s.HandleClassifyMedia)
	return mux
}

// HandleClassifyMedia fetches the uploaded media, classifies it, aggregates
// the result and finishes the pending screening. Media and store errors are
// retried; the screening is marked failed once retries run out.
func (s *Server) HandleClassifyMedia(ctx context.Context, t *asynq.Task) error {
	var p schemas.ClassifyMediaPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return errors.Wrapf(asynq.SkipRetry, "payload: %v", err)
	}
	if p.ScreeningID == "" {
		return errors.Wrap(asynq.SkipRetry, "payload: screening_id is empty")
	}
	log := s.Log.With("screening_id", p.ScreeningID)
	log.Info("classifying media", "photo", p.PhotoRef != "", "audio", p.AudioRef != "")

	media, err := s.fetch(ctx, p)
	if err != nil {
		if finalAttempt(ctx) {
			s.fail(ctx, log, p.ScreeningID, "media unavailable")
		}
		return err
	}

	preds := s.Classifier.Classify(ctx, media)
	report, err := s.Screener.Assess(preds, p.Answers)
	if err != nil {
		s.fail(ctx, log, p.ScreeningID, err.Error())
		return errors.Wrapf(asynq.SkipRetry, "assess: %v", err)
	}

	doc := report.Document()
	err = s.Store.Complete(ctx, p.ScreeningID, doc)
	if errors.Is(err, db.ErrNotPending) || errors.Is(err, db.ErrNotFound) {
		log.Warn("screening already finished", "error", err)
		return nil
	}
	if err != nil {
		if finalAttempt(ctx) {
			s.fail(ctx, log, p.ScreeningID, "report could not be saved")
		}
		return err
	}
	s.invalidate(ctx, log, p.ScreeningID)
	log.Info("screening complete", "label", doc.Label, "confidence", doc.Confidence)
	return nil
}

func (s *Server) fetch(ctx context.Context, p schemas.ClassifyMediaPayload) (classifier.Media, error) {
	var (
		m   classifier.Media
		err error
	)
	if p.PhotoRef != "" {
		if m.Photo, err = s.Media.GetMedia(ctx, p.PhotoRef); err != nil {
			return m, errors.Wrap(err, "fetch photo")
		}
		m.PhotoName = storage.Name(p.PhotoRef)
	}
	if p.AudioRef != "" {
		if m.Audio, err = s.Media.GetMedia(ctx, p.AudioRef); err != nil {
			return m, errors.Wrap(err, "fetch audio")
		}
		m.AudioName = storage.Name(p.AudioRef)
	}
	return m, nil
}

func (s *Server) fail(ctx context.Context, log *slog.Logger, id, msg string) {
	if err := s.Store.Fail(ctx, id, msg); err != nil && !errors.Is(err, db.ErrNotPending) {
		log.Error("mark screening failed", "error", err)
		return
	}
	s.invalidate(ctx, log, id)
	log.Warn("screening failed", "reason", msg)
}

func (s *Server) invalidate(ctx context.Context, log *slog.Logger, id string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, id); err != nil {
		log.Warn("report cache delete failed", "error", err)
	}
}

// finalAttempt reports whether a failure now exhausts the task's retries.
// Outside asynq there is no retry, so every attempt is final.
func finalAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

// Run processes tasks from the Redis at addr until the process is signalled.
func Run(addr string, concurrency int, s *Server) error {
	mux := s.Mux()
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: addr}, asynq.Config{
		Concurrency: concurrency,
		Logger:      asynqLogger{s.Log},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			s.Log.Error("task failed", "type", t.Type(), "error", err)
		}),
	})
	return srv.Run(mux)
}

type asynqLogger struct {
	log *slog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }

func (l asynqLogger) Fatal(args ...any) {
	l.log.Error(fmt.Sprint(args...))
	os.Exit(1)
}
