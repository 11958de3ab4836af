package storage

import (
	"context"
	"sync"

	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище сессий.
// Наружу отдаются только копии, поэтому параллельные прогоны не гоняются за одним указателем.
type MemoryUserRepository struct {
	mu           sync.RWMutex
	users        map[int64]*entity.User
	defaultModel entity.ModelChoice
}

// NewMemoryUserRepository создаёт новое in-memory хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:        make(map[int64]*entity.User),
		defaultModel: entity.DefaultModel,
	}
}

// WithDefaultModel задаёт модель для новых пользователей
func (r *MemoryUserRepository) WithDefaultModel(model entity.ModelChoice) *MemoryUserRepository {
	if model.Valid() {
		r.defaultModel = model
	}
	return r
}

// Get возвращает пользователя по ID, создаёт нового если не найден
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.RLock()
	user, exists := r.users[userID]
	r.mu.RUnlock()

	if exists {
		return user.Clone(), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(userID, chatID).Clone(), nil
}

// Delete удаляет пользователя из хранилища
func (r *MemoryUserRepository) Delete(ctx context.Context, userID int64) error {
	r.mu.Lock()
	delete(r.users, userID)
	r.mu.Unlock()

	return nil
}

// Len возвращает число хранимых сессий
func (r *MemoryUserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Update применяет fn под блокировкой
func (r *MemoryUserRepository) Update(ctx context.Context, userID, chatID int64, fn func(*entity.User) error) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.getOrCreateLocked(userID, chatID)
	draft := current.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	r.users[userID] = draft

	return draft.Clone(), nil
}

func (r *MemoryUserRepository) getOrCreateLocked(userID, chatID int64) *entity.User {
	if user, exists := r.users[userID]; exists {
		return user
	}
	user := entity.NewUser(userID, chatID)
	user.Model = r.defaultModel
	r.users[userID] = user
	return user
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
