package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
	"photo-classifier/internal/metrics"
)

// ClassificationService связывает сессию пользователя с диспетчером:
// новое фото или новая модель запускают свежий прогон, результат которого целиком заменяет таблицу.
type ClassificationService struct {
	repo       port.UserRepository
	dispatcher *InferenceDispatcher
	annotator  port.BoxAnnotator
	timeout    time.Duration
}

// RunOutput результат одного запуска
type RunOutput struct {
	Model      entity.ModelChoice
	Rows       []entity.PredictionRow
	Ran        bool   // false, если запускать было не на чем
	Superseded bool   // результат отброшен, потому что начался более новый прогон
	Annotated  []byte // JPEG с рамками, только для детектора
	User       *entity.User
}

// NewClassificationService создаёт сервис. annotator может быть nil, timeout 0 означает без ограничения.
func NewClassificationService(repo port.UserRepository, dispatcher *InferenceDispatcher, annotator port.BoxAnnotator, timeout time.Duration) *ClassificationService {
	return &ClassificationService{
		repo:       repo,
		dispatcher: dispatcher,
		annotator:  annotator,
		timeout:    timeout,
	}
}

// Models возвращает доступные модели
func (s *ClassificationService) Models() []entity.ModelChoice {
	return s.dispatcher.Models()
}

// Predict распознаёт изображение без привязки к сессии.
func (s *ClassificationService) Predict(ctx context.Context, data []byte, model entity.ModelChoice) ([]entity.PredictionRow, error) {
	img, err := entity.DecodeImage(data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.dispatcher.Run(ctx, img, model)
}

// AcceptPhoto заменяет фото в сессии и запускает распознавание активной моделью.
// Если файл пустой или не декодируется, сессия не меняется.
func (s *ClassificationService) AcceptPhoto(ctx context.Context, userID, chatID int64, data []byte) (*RunOutput, error) {
	img, err := entity.DecodeImage(data)
	if err != nil {
		if errors.Is(err, entity.ErrNoImage) {
			log.Printf("No file was uploaded.")
		} else {
			log.Printf("Error decoding photo from user %d: %v", userID, err)
		}
		return nil, err
	}

	w, h := img.Size()
	log.Printf("Received image from user %d: %s %dx%d, %d bytes", userID, img.Format, w, h, len(data))

	var (
		seq   uint64
		model entity.ModelChoice
	)
	if _, err := s.repo.Update(ctx, userID, chatID, func(u *entity.User) error {
		u.Photo = img
		model = u.Model
		seq = u.BeginRun()
		return nil
	}); err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}

	return s.run(ctx, userID, chatID, seq, img, model)
}

// SelectModel переключает модель. Если в сессии уже есть фото, распознавание запускается заново.
func (s *ClassificationService) SelectModel(ctx context.Context, userID, chatID int64, model entity.ModelChoice) (*RunOutput, error) {
	if !s.dispatcher.Supports(model) {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownModel, model)
	}

	var (
		seq uint64
		img *entity.SourceImage
	)
	user, err := s.repo.Update(ctx, userID, chatID, func(u *entity.User) error {
		u.Model = model
		img = u.Photo
		if !img.Empty() {
			seq = u.BeginRun()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("select model: %w", err)
	}

	if img.Empty() {
		return &RunOutput{Model: model, Rows: user.Rows, User: user}, nil
	}

	return s.run(ctx, userID, chatID, seq, img, model)
}

// Rows возвращает последнюю сохранённую таблицу и активную модель
func (s *ClassificationService) Rows(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

// Forget удаляет сессию пользователя вместе с фото и таблицей
func (s *ClassificationService) Forget(ctx context.Context, userID int64) error {
	return s.repo.Delete(ctx, userID)
}

func (s *ClassificationService) run(ctx context.Context, userID, chatID int64, seq uint64, img *entity.SourceImage, model entity.ModelChoice) (*RunOutput, error) {
	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, runErr := s.dispatcher.Run(runCtx, img, model)

	committed := false
	user, err := s.repo.Update(ctx, userID, chatID, func(u *entity.User) error {
		if runErr != nil {
			u.AbortRun(seq)
			return nil
		}
		committed = u.CommitRun(seq, rows)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store rows: %w", err)
	}

	if runErr != nil {
		log.Printf("Inference error for user %d (run %d): %v", userID, seq, runErr)
		return nil, runErr
	}

	out := &RunOutput{Model: model, Rows: rows, Ran: true, User: user}
	if !committed {
		metrics.SupersededRuns.Inc()
		log.Printf("Discarding run %d for user %d: superseded by run %d", seq, userID, user.RunSeq)
		out.Superseded = true
		return out, nil
	}

	if s.annotator != nil && hasBoxes(rows) {
		annotated, err := s.annotator.Annotate(img, rows)
		if err != nil {
			log.Printf("Error annotating image: %v", err)
		} else {
			out.Annotated = annotated
		}
	}

	return out, nil
}

func (s *ClassificationService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func hasBoxes(rows []entity.PredictionRow) bool {
	for _, r := range rows {
		if r.Box != nil {
			return true
		}
	}
	return false
}
