package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/cache"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// In-memory repositories backing the service tests. They hold the same
// shapes the postgres repositories persist, without the SQL.

type memUserRepo struct {
	seq  int64
	rows map[int64]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{rows: make(map[int64]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) (int64, error) {
	r.seq++
	u.ID = r.seq
	r.rows[u.ID] = *u
	return u.ID, nil
}

func (r *memUserRepo) Find(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.rows {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) ExistsByUsernameOrIP(_ context.Context, username, ip string) (bool, error) {
	for _, u := range r.rows {
		if u.Username == username || u.RegistrationIP == ip {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) All(_ context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, len(r.rows))
	for _, u := range r.rows {
		users = append(users, u)
	}
	return users, nil
}

func (r *memUserRepo) UpdateRole(_ context.Context, id int64, role string) error {
	u, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Role = role
	r.rows[id] = u
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	r.rows[id] = u
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type memSessionRepo struct {
	rows map[string]domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{rows: make(map[string]domain.Session)}
}

func (r *memSessionRepo) Insert(_ context.Context, s domain.Session) error {
	r.rows[s.Token] = s
	return nil
}

func (r *memSessionRepo) Find(_ context.Context, token string) (*domain.Session, error) {
	s, ok := r.rows[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (r *memSessionRepo) Delete(_ context.Context, token string) error {
	delete(r.rows, token)
	return nil
}

type memPermissionRepo struct {
	seq         int64
	rows        map[int64]domain.Permission
	assignments map[int64][]int64
}

func newMemPermissionRepo() *memPermissionRepo {
	return &memPermissionRepo{
		rows:        make(map[int64]domain.Permission),
		assignments: make(map[int64][]int64),
	}
}

func (r *memPermissionRepo) Create(_ context.Context, name, content string) (int64, error) {
	r.seq++
	r.rows[r.seq] = domain.Permission{ID: r.seq, Name: name, Content: domain.ParseContent(content)}
	return r.seq, nil
}

func (r *memPermissionRepo) Update(_ context.Context, id int64, name, content string) error {
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	r.rows[id] = domain.Permission{ID: id, Name: name, Content: domain.ParseContent(content)}
	return nil
}

func (r *memPermissionRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	for userID, ids := range r.assignments {
		kept := ids[:0]
		for _, pid := range ids {
			if pid != id {
				kept = append(kept, pid)
			}
		}
		r.assignments[userID] = kept
	}
	return nil
}

func (r *memPermissionRepo) All(_ context.Context) ([]domain.Permission, error) {
	perms := make([]domain.Permission, 0, len(r.rows))
	for _, p := range r.rows {
		perms = append(perms, p)
	}
	return perms, nil
}

func (r *memPermissionRepo) AllAssignments(_ context.Context) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(r.assignments))
	for userID, ids := range r.assignments {
		out[userID] = append([]int64(nil), ids...)
	}
	return out, nil
}

func (r *memPermissionRepo) Assign(_ context.Context, userID, permissionID int64) error {
	for _, pid := range r.assignments[userID] {
		if pid == permissionID {
			return domain.ErrAlreadyAssigned
		}
	}
	r.assignments[userID] = append(r.assignments[userID], permissionID)
	return nil
}

func (r *memPermissionRepo) Unassign(_ context.Context, userID, permissionID int64) error {
	ids := r.assignments[userID]
	kept := ids[:0]
	for _, pid := range ids {
		if pid != permissionID {
			kept = append(kept, pid)
		}
	}
	r.assignments[userID] = kept
	return nil
}

type recoveryRow struct {
	code string
	used bool
}

type memTwoFARepo struct {
	secrets  map[int64]string
	recovery map[int64][]recoveryRow
}

func newMemTwoFARepo() *memTwoFARepo {
	return &memTwoFARepo{
		secrets:  make(map[int64]string),
		recovery: make(map[int64][]recoveryRow),
	}
}

func (r *memTwoFARepo) Secret(_ context.Context, userID int64) (string, error) {
	secret, ok := r.secrets[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return secret, nil
}

func (r *memTwoFARepo) CreateSecret(_ context.Context, userID int64, secret string) error {
	r.secrets[userID] = secret
	return nil
}

func (r *memTwoFARepo) CreateRecoveryCodes(_ context.Context, userID int64, codes []string) error {
	for _, code := range codes {
		r.recovery[userID] = append(r.recovery[userID], recoveryRow{code: code})
	}
	return nil
}

func (r *memTwoFARepo) ConsumeRecoveryCode(_ context.Context, userID int64, code string) (bool, error) {
	rows := r.recovery[userID]
	for i := range rows {
		if rows[i].code == code && !rows[i].used {
			rows[i].used = true
			return true, nil
		}
	}
	return false, nil
}

func (r *memTwoFARepo) DeleteAll(_ context.Context, userID int64) error {
	delete(r.secrets, userID)
	delete(r.recovery, userID)
	return nil
}

func (r *memTwoFARepo) RegisteredUserIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(r.secrets))
	for id := range r.secrets {
		ids = append(ids, id)
	}
	return ids, nil
}

// recordingBus counts publishes per topic. Subscribe is a no-op; the tests
// drive cache refreshes through the services directly.
type recordingBus struct {
	mu        sync.Mutex
	published []ports.Topic
}

func (b *recordingBus) Publish(_ context.Context, topic ports.Topic) error {
	b.mu.Lock()
	b.published = append(b.published, topic)
	b.mu.Unlock()
	return nil
}

func (b *recordingBus) Subscribe(context.Context, func(ports.Topic)) {}

func (b *recordingBus) count(topic ports.Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.published {
		if t == topic {
			n++
		}
	}
	return n
}

// recordingAuditor collects committed messages synchronously.
type recordingAuditor struct {
	mu      sync.Mutex
	entries []string
}

func (a *recordingAuditor) Commit(userID int64, message string) {
	a.mu.Lock()
	a.entries = append(a.entries, fmt.Sprintf("%d: %s", userID, message))
	a.mu.Unlock()
}

func (a *recordingAuditor) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// stubTwoFA lets account tests script the verification outcome.
type stubTwoFA struct {
	verifyFn func(ctx context.Context, userID int64, code string, failOpen bool) (bool, error)
}

func (s *stubTwoFA) Register(context.Context, int64, string) (*domain.TwoFAEnrollment, error) {
	return nil, domain.ErrTwoFARegistered
}

func (s *stubTwoFA) Verify(ctx context.Context, userID int64, code string, failOpen bool) (bool, error) {
	return s.verifyFn(ctx, userID, code, failOpen)
}

func (s *stubTwoFA) Disable(context.Context, int64, string) error { return nil }

func (s *stubTwoFA) IsRegistered(int64) bool { return false }

func newTestCaches(users ports.UserRepository, perms ports.PermissionRepository, twoFA ports.TwoFARepository) *cache.Set {
	log := zerolog.Nop()
	set := cache.NewSet(
		cache.NewUsers(users, time.Hour, log),
		cache.NewPermissions(perms, time.Hour, log),
		cache.NewUserPermissions(perms, time.Hour, log),
		cache.NewTwoFARegistered(twoFA, time.Hour, log),
		log,
	)
	refreshTestCaches(set)
	return set
}

func refreshTestCaches(set *cache.Set) {
	ctx := context.Background()
	_ = set.Users.Refresh(ctx)
	_ = set.Permissions.Refresh(ctx)
	_ = set.UserPermissions.Refresh(ctx)
	_ = set.TwoFA.Refresh(ctx)
}
