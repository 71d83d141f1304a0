package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
	"github.com/diagnosis/supperclub/services/auth/internal/oauth"
)

func TestMain(m *testing.M) {
	logger.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// ---------- Mocks ----------

type mockUserRepo struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]*domain.User
	err     error
	creates int
	updates int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, users: make(map[int64]*domain.User)}
}

func (m *mockUserRepo) add(u *domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) Create(_ context.Context, nu *domain.NewUser) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == nu.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	m.creates++
	now := time.Now()
	return m.add(&domain.User{
		Email:                nu.Email,
		PasswordHash:         nu.PasswordHash,
		Name:                 nu.Name,
		Phone:                nu.Phone,
		Image:                nu.Image,
		Role:                 nu.Role,
		RoleSelectionPending: nu.RoleSelectionPending,
		EmailVerifiedAt:      nu.EmailVerifiedAt,
		CreatedAt:            now,
		UpdatedAt:            now,
	}), nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) SelectRole(_ context.Context, id int64, role access.Role) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	m.updates++
	u.Role = role
	u.RoleSelectionPending = false
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) SelectRoleByEmail(ctx context.Context, email string, role access.Role) (*domain.User, error) {
	u, err := m.FindByEmail(ctx, email)
	if err != nil || u == nil {
		return u, err
	}
	return m.SelectRole(ctx, u.ID, role)
}

type published struct {
	subject string
	data    interface{}
}

type mockPublisher struct {
	events []published
}

func (m *mockPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	m.events = append(m.events, published{subject: subject, data: data})
	return nil
}

func (m *mockPublisher) subjects() []string {
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.subject)
	}
	return out
}

type mockRateLimiter struct {
	counts map[string]int
}

func (m *mockRateLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[key]++
	return m.counts[key] <= limit, nil
}

func (m *mockRateLimiter) CleanupExpired(context.Context) (int64, error) { return 0, nil }

type mockStateRepo struct {
	states map[string]string
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{states: map[string]string{}}
}

func (m *mockStateRepo) Save(_ context.Context, state, returnTo string, _ time.Duration) error {
	m.states[state] = returnTo
	return nil
}

func (m *mockStateRepo) Consume(_ context.Context, state string) (string, bool, error) {
	v, ok := m.states[state]
	delete(m.states, state)
	return v, ok, nil
}

type fakeProvider struct {
	profile *oauth.Profile
	err     error
}

func (f *fakeProvider) Name() string { return "google" }

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (f *fakeProvider) Exchange(context.Context, string) (*oauth.Profile, error) {
	return f.profile, f.err
}
