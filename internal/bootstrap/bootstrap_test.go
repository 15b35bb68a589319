package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/costpilot-dev/costpilot/internal/types"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeProfiles implements store.ProfileStore with upsert-by-email
// semantics matching both real adapters.
type fakeProfiles struct {
	nextID  uint
	byEmail map[string]models.User
	creates int
	failGet bool
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byEmail: make(map[string]models.User)}
}

func (f *fakeProfiles) GetUser(ctx context.Context, id uint) (models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (f *fakeProfiles) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	if f.failGet {
		return models.User{}, errors.New("backend unavailable")
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return models.User{}, store.ErrNotFound
}

func (f *fakeProfiles) ListUsers(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

func (f *fakeProfiles) ListUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	return nil, nil
}

func (f *fakeProfiles) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	f.creates++
	if existing, ok := f.byEmail[user.Email]; ok {
		return existing, nil
	}
	f.nextID++
	user.ID = f.nextID
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeProfiles) UpdateUser(ctx context.Context, id uint, fields map[string]interface{}) error {
	return nil
}

func (f *fakeProfiles) DeleteUser(ctx context.Context, id uint) error {
	return nil
}

func TestEnsureProfileSynthesizesDefaults(t *testing.T) {
	profiles := newFakeProfiles()
	b := New(profiles)

	user := b.EnsureProfile(context.Background(), Principal{Email: "Nila@Example.com"})

	require.NotZero(t, user.ID)
	require.Equal(t, "nila@example.com", user.Email)
	require.Equal(t, "Nila", user.Name, "name derives from the email local part")
	require.Equal(t, "project_manager", user.Role)
	require.Equal(t, types.StatusActive, user.Status)
}

func TestEnsureProfilePersistsExactlyOnce(t *testing.T) {
	profiles := newFakeProfiles()
	b := New(profiles)

	principal := Principal{Email: "pm@example.com", Name: "PM"}

	first := b.EnsureProfile(context.Background(), principal)
	second := b.EnsureProfile(context.Background(), principal)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, profiles.creates, "reload must not insert a duplicate profile")
}

func TestEnsureProfileSanitizesStoredRecord(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.byEmail["odd@example.com"] = models.User{
		Model:  gorm.Model{ID: 4},
		Name:   "Odd",
		Email:  "odd@example.com",
		Role:   "superhero",
		Status: "banana",
	}
	b := New(profiles)

	user := b.EnsureProfile(context.Background(), Principal{Email: "odd@example.com"})

	require.Equal(t, "project_manager", user.Role, "unknown role coerces to project manager")
	require.Equal(t, types.StatusActive, user.Status)
}

func TestEnsureProfileDegradesOnBackendFailure(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.failGet = true
	b := New(profiles)

	user := b.EnsureProfile(context.Background(), Principal{ID: 9, Email: "x@example.com", Role: "finance"})

	require.Equal(t, "x@example.com", user.Email, "degraded identity still usable")
	require.Equal(t, "finance", user.Role)
	require.Zero(t, profiles.creates, "no blind insert while the backend is failing")
}

func TestHealthCheckIsRateLimited(t *testing.T) {
	profiles := newFakeProfiles()
	b := New(profiles)

	fired := 0
	b.HealthCheck = func(ctx context.Context, user models.User) { fired++ }

	principal := Principal{Email: "hc@example.com"}

	b.EnsureProfile(context.Background(), principal)
	b.EnsureProfile(context.Background(), principal)
	require.Equal(t, 1, fired, "second sign-in inside the window must not re-fire")

	// Age the last run past the window.
	user, err := profiles.GetUserByEmail(context.Background(), "hc@example.com")
	require.NoError(t, err)
	b.mu.Lock()
	b.lastCheck[user.ID] = time.Now().Add(-b.window - time.Minute)
	b.mu.Unlock()

	b.EnsureProfile(context.Background(), principal)
	require.Equal(t, 2, fired)
}

func TestNameFromEmail(t *testing.T) {
	require.Equal(t, "dev", nameFromEmail("dev@example.com"))
	require.Equal(t, "no-at-sign", nameFromEmail("no-at-sign"))
}
