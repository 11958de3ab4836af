package port

import (
	"context"

	"photo-classifier/internal/domain/entity"
)

// UserRepository интерфейс хранилища пользовательских сессий
type UserRepository interface {
	// Get возвращает копию пользователя по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Delete удаляет сессию пользователя; отсутствие записи не ошибка
	Delete(ctx context.Context, userID int64) error

	// Update атомарно применяет fn к пользователю и возвращает копию результата.
	// Если fn вернула ошибку, изменения не сохраняются.
	Update(ctx context.Context, userID, chatID int64, fn func(*entity.User) error) (*entity.User, error)
}
