package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
	"photo-classifier/internal/infrastructure/storage"
)

func TestUserService_Cancel(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Equal(t, uint64(0), user.RunSeq)

	got, err := svc.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, got.State)
}

func TestUserService_CancelDiscardsPendingRun(t *testing.T) {
	backend := newGatedBackend()
	repo := storage.NewMemoryUserRepository()
	classification := NewClassificationService(repo, NewInferenceDispatcher(map[entity.ModelChoice]port.InferenceBackend{
		entity.ModelMobileNetV2: backend,
	}), nil, 0)
	users := NewUserService(repo)
	ctx := context.Background()

	photo := pngBytes(t, 8, 8)
	done := make(chan *RunOutput, 1)
	go func() {
		out, err := classification.AcceptPhoto(ctx, 1, 10, photo)
		if err != nil {
			t.Error(err)
		}
		done <- out
	}()
	<-backend.started

	user, err := users.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	close(backend.release)
	out := <-done
	require.NotNil(t, out)
	require.True(t, out.Superseded)

	got, err := users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Nil(t, got.Rows)
	require.Equal(t, entity.StateMainMenu, got.State)
	require.NotNil(t, got.Photo)
}
