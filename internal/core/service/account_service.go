package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/api/metrics"
	"github.com/azisaba/azisaba-commander-api/internal/cache"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
	"github.com/azisaba/azisaba-commander-api/internal/session"
)

// waitTwoFATTL bounds the window between a successful password check and
// the 2FA challenge answer.
const waitTwoFATTL = 10 * time.Minute

// AccountService implements ports.AccountService over the durable user
// store, the hybrid session store and the process-local caches.
type AccountService struct {
	repo     ports.UserRepository
	sessions *session.Store
	vault    *Vault
	twoFA    ports.TwoFAService
	caches   *cache.Set
	bus      ports.InvalidationBus
	audit    ports.Auditor
	log      zerolog.Logger

	minPasswordLength int
	sessionTTL        time.Duration
	reviewTTL         time.Duration
}

var _ ports.AccountService = (*AccountService)(nil)

func NewAccountService(
	repo ports.UserRepository,
	sessions *session.Store,
	vault *Vault,
	twoFA ports.TwoFAService,
	caches *cache.Set,
	bus ports.InvalidationBus,
	audit ports.Auditor,
	minPasswordLength int,
	sessionTTL, reviewTTL time.Duration,
	log zerolog.Logger,
) *AccountService {
	if minPasswordLength <= 0 {
		minPasswordLength = 7
	}
	return &AccountService{
		repo:              repo,
		sessions:          sessions,
		vault:             vault,
		twoFA:             twoFA,
		caches:            caches,
		bus:               bus,
		audit:             audit,
		minPasswordLength: minPasswordLength,
		sessionTTL:        sessionTTL,
		reviewTTL:         reviewTTL,
		log:               log,
	}
}

// Register creates an under-review account and issues its restricted
// session. Duplicate username or registration IP is a conflict.
func (s *AccountService) Register(ctx context.Context, username, password, ip string) (*domain.Session, error) {
	if username == "" || len(password) < s.minPasswordLength {
		return nil, domain.ErrInvalidCredentials
	}
	exists, err := s.repo.ExistsByUsernameOrIP(ctx, username, ip)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserExists
	}

	hash, err := s.vault.Hash(password)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, &domain.User{
		Username:       username,
		PasswordHash:   hash,
		Role:           domain.RoleUnderReview,
		RegistrationIP: ip,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, ports.TopicUsers)

	sess, err := s.sessions.Issue(ctx, id, ip, domain.StatusUnderReview, s.reviewTTL)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("username", username).Int64("user_id", id).Msg("new account awaiting review")
	return sess, nil
}

// Approve consumes a review token: the account becomes a normal user and
// the UNDER_REVIEW session rotates into an AUTHORIZED one. The review
// token is the capability; the requester's IP must still match the
// session's bound IP.
func (s *AccountService) Approve(ctx context.Context, token, ip string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, token, false)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	if sess.Status != domain.StatusUnderReview || sess.IP != ip {
		return nil, domain.ErrForbidden
	}
	user, err := s.repo.Find(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleUnderReview {
		return nil, domain.ErrUserExists
	}

	if err := s.repo.UpdateRole(ctx, user.ID, domain.RoleUser); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ports.TopicUsers)

	approved, err := s.sessions.Rotate(ctx, *sess, domain.StatusAuthorized, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	s.audit.Commit(user.ID, fmt.Sprintf("account %q approved", user.Username))
	return approved, nil
}

// Login verifies credentials. Any credential failure collapses into the
// same generic error so responses cannot be used to enumerate accounts.
func (s *AccountService) Login(ctx context.Context, username, password, ip string) (*domain.Session, error) {
	if username == "" || len(password) < s.minPasswordLength {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("failed").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Role == domain.RoleUnderReview {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return nil, domain.ErrAccountUnderReview
	}
	if !s.vault.Compare(password, user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if s.caches.TwoFA.Registered(user.ID) {
		sess, err := s.sessions.Issue(ctx, user.ID, ip, domain.StatusWait2FA, waitTwoFATTL)
		if err != nil {
			return nil, err
		}
		metrics.LoginsTotal.WithLabelValues("wait_2fa").Inc()
		return sess, nil
	}

	sess, err := s.sessions.Issue(ctx, user.ID, ip, domain.StatusAuthorized, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues("authorized").Inc()
	return sess, nil
}

// CompleteTwoFA exchanges a WAIT_2FA session and a valid code for an
// AUTHORIZED session. The challenge fails closed: a missing secret at this
// point means the state machine was bypassed.
func (s *AccountService) CompleteTwoFA(ctx context.Context, token, ip, code string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, token, true)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if sess.Status != domain.StatusWait2FA || sess.Expired(time.Now()) || sess.IP != ip {
		return nil, domain.ErrUnauthenticated
	}

	ok, err := s.twoFA.Verify(ctx, sess.UserID, code, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrTwoFACodeInvalid
	}
	return s.sessions.Rotate(ctx, *sess, domain.StatusAuthorized, s.sessionTTL)
}

// Logout destroys the session in both layers. Unknown tokens are a no-op.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// ChangePassword requires the current password before accepting a new one.
func (s *AccountService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if len(next) < s.minPasswordLength {
		return domain.ErrInvalidInput
	}
	user, err := s.repo.Find(ctx, userID)
	if err != nil {
		return err
	}
	if !s.vault.Compare(current, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	hash, err := s.vault.Hash(next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.audit.Commit(userID, "changed own password")
	return nil
}

// User reads one account from the local cache.
func (s *AccountService) User(id int64) (domain.User, bool) {
	return s.caches.Users.Get(id)
}

// AllUsers reads every account from the local cache, ordered by id.
func (s *AccountService) AllUsers() []domain.User {
	snapshot := s.caches.Users.All()
	users := make([]domain.User, 0, len(snapshot))
	for _, u := range snapshot {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// IsAdmin is the role predicate consulted by the gate and business routes.
func (s *AccountService) IsAdmin(id int64) bool {
	return s.caches.Users.IsAdmin(id)
}

// SetRole mutates a user's role tag.
func (s *AccountService) SetRole(ctx context.Context, actorID, id int64, role string) error {
	if !domain.ValidRole(role) {
		return domain.ErrInvalidInput
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return err
	}
	s.invalidate(ctx, ports.TopicUsers)
	s.audit.Commit(actorID, fmt.Sprintf("set user %d role to %s", id, role))
	return nil
}

// DeleteUser removes an account with all dependent records, then refreshes
// every cache the cascade touched.
func (s *AccountService) DeleteUser(ctx context.Context, actorID, id int64) error {
	if !s.caches.Users.Contains(id) {
		return domain.ErrUserNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, ports.TopicUsers)
	s.invalidate(ctx, ports.TopicUserPermissions)
	s.invalidate(ctx, ports.TopicTwoFA)
	s.audit.Commit(actorID, fmt.Sprintf("deleted user %d", id))
	return nil
}

// invalidate refreshes the local cache for the topic and then notifies
// peers. The publish is fire-and-forget; the durable write already
// happened and must not be rolled back by a bus failure.
func (s *AccountService) invalidate(ctx context.Context, topic ports.Topic) {
	switch topic {
	case ports.TopicUsers:
		_ = s.caches.Users.Refresh(ctx)
	case ports.TopicUserPermissions:
		_ = s.caches.UserPermissions.Refresh(ctx)
	case ports.TopicTwoFA:
		_ = s.caches.TwoFA.Refresh(ctx)
	}
	_ = s.bus.Publish(ctx, topic)
}
