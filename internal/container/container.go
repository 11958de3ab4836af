package container

import (
	"fmt"
	"io"
	"log"

	"photo-classifier/config"
	app "photo-classifier/internal/application"
	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
	"photo-classifier/internal/infrastructure/storage"
	"photo-classifier/internal/infrastructure/vision"
)

type Container struct {
	UserService           *app.UserService
	ClassificationService *app.ClassificationService
	Dispatcher            *app.InferenceDispatcher

	closers []io.Closer
}

// New собирает сервисы приложения поверх готовых портов
func New(userRepo port.UserRepository, backends map[entity.ModelChoice]port.InferenceBackend, annotator port.BoxAnnotator, cfg *config.Config) *Container {
	dispatcher := app.NewInferenceDispatcher(backends)
	userService := app.NewUserService(userRepo)

	classification := app.NewClassificationService(userRepo, dispatcher, annotator, cfg.InferenceTimeout)

	return &Container{
		UserService:           userService,
		ClassificationService: classification,
		Dispatcher:            dispatcher,
	}
}

// Build читает models.yaml и регистрирует ленивые бэкенды для каждой описанной модели.
func Build(cfg *config.Config) (*Container, error) {
	manifest, err := config.LoadManifest(cfg.ModelsConfig)
	if err != nil {
		return nil, err
	}

	backends := make(map[entity.ModelChoice]port.InferenceBackend)
	var closers []io.Closer

	if spec, ok := manifest.Spec(entity.ModelMobileNetV2); ok {
		log.Printf("Registering %s (version %d, alpha %.2f, engine %s)", entity.ModelMobileNetV2.Title(), spec.Version, spec.Alpha, cfg.Engine)
		classifier := vision.NewLazyClassifier(entity.ModelMobileNetV2, classifierLoader(cfg, spec))
		backends[entity.ModelMobileNetV2] = app.NewClassifierBackend(classifier)
		closers = append(closers, classifier)
	}

	if spec, ok := manifest.Spec(entity.ModelCocoSSD); ok {
		log.Printf("Registering %s (base %s)", entity.ModelCocoSSD.Title(), spec.Base)
		detector := vision.NewLazyDetector(entity.ModelCocoSSD, func() (port.ObjectDetector, error) {
			d, err := vision.NewGoCVDetector(spec)
			if err != nil {
				return nil, err
			}
			return d, nil
		})
		backends[entity.ModelCocoSSD] = app.NewDetectorBackend(detector)
		closers = append(closers, detector)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no models configured in %s", cfg.ModelsConfig)
	}
	if _, ok := backends[cfg.DefaultModel]; !ok {
		return nil, fmt.Errorf("default model %s is not configured", cfg.DefaultModel)
	}

	repo := storage.NewMemoryUserRepository().WithDefaultModel(cfg.DefaultModel)
	c := New(repo, backends, vision.NewAnnotator(), cfg)
	c.closers = closers
	return c, nil
}

// Close выгружает загруженные модели
func (c *Container) Close() {
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			log.Printf("Error closing model: %v", err)
		}
	}
}

func classifierLoader(cfg *config.Config, spec config.ModelSpec) func() (port.ImageClassifier, error) {
	if cfg.Engine == config.EngineONNX {
		return func() (port.ImageClassifier, error) {
			c, err := vision.NewONNXClassifier(spec, cfg.ORTLibraryPath)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	return func() (port.ImageClassifier, error) {
		c, err := vision.NewGoCVClassifier(spec)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
