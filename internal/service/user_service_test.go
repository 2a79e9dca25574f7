package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskhub/internal/cache"
	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
)

func newTestCache(t *testing.T) *cache.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestUserService_GetUserIsCached(t *testing.T) {
	id := uuid.New()
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Name: "Ada"}, nil).Once()

	svc := NewUserService(repo, newTestCache(t))

	first, err := svc.GetUser(context.Background(), id)
	require.NoError(t, err)
	second, err := svc.GetUser(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "Ada", first.Name)
	assert.Equal(t, "Ada", second.Name)
	repo.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestUserService_GetUserWithoutCache(t *testing.T) {
	id := uuid.New()
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	_, err := NewUserService(repo, nil).GetUser(context.Background(), id)
	assert.Equal(t, apperrors.ErrUserNotFound, err)
}

func TestUserService_UpdateProfileInvalidatesCache(t *testing.T) {
	id := uuid.New()
	store := newMemStore()
	store.users[id] = model.User{ID: id, Name: "Ada", Bio: "math"}
	svc := NewUserService(memUsers{store}, newTestCache(t))

	_, err := svc.GetUser(context.Background(), id)
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(context.Background(), id, model.ProfilePatch{Name: "Ada L.", Bio: ""})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, "math", updated.Bio)

	fresh, err := svc.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", fresh.Name)
}
