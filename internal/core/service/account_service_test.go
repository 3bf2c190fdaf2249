package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/azisaba/azisaba-commander-api/internal/cache"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/session"
)

type accountFixture struct {
	svc      *AccountService
	users    *memUserRepo
	sessions *memSessionRepo
	twoFA    *memTwoFARepo
	caches   *cache.Set
	bus      *recordingBus
	audit    *recordingAuditor
}

func newAccountFixture(t *testing.T, verify *stubTwoFA) *accountFixture {
	t.Helper()
	users := newMemUserRepo()
	sessionRepo := newMemSessionRepo()
	perms := newMemPermissionRepo()
	twoFA := newMemTwoFARepo()
	caches := newTestCaches(users, perms, twoFA)
	bus := &recordingBus{}
	audit := &recordingAuditor{}
	if verify == nil {
		verify = &stubTwoFA{verifyFn: func(context.Context, int64, string, bool) (bool, error) {
			t.Fatalf("unexpected 2FA verification")
			return false, nil
		}}
	}
	svc := NewAccountService(
		users,
		session.NewStore(sessionRepo, zerolog.Nop()),
		NewVaultWithCost(bcrypt.MinCost),
		verify,
		caches,
		bus,
		audit,
		7,
		7*24*time.Hour, time.Hour,
		zerolog.Nop(),
	)
	return &accountFixture{svc: svc, users: users, sessions: sessionRepo, twoFA: twoFA, caches: caches, bus: bus, audit: audit}
}

func TestAccountService_Register(t *testing.T) {
	f := newAccountFixture(t, nil)

	sess, err := f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.Status != domain.StatusUnderReview {
		t.Fatalf("registration session must be UNDER_REVIEW, got %s", sess.Status)
	}
	if sess.IP != "10.0.0.1" {
		t.Fatalf("session must bind the registration IP, got %q", sess.IP)
	}

	user, err := f.users.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if user.Role != domain.RoleUnderReview {
		t.Fatalf("new account must start under review, got %s", user.Role)
	}
	if user.PasswordHash == "password1" {
		t.Fatalf("password stored in plaintext")
	}
	if f.bus.count("USERS") != 1 {
		t.Fatalf("registration must publish a USERS invalidation")
	}
}

func TestAccountService_Register_Duplicate(t *testing.T) {
	f := newAccountFixture(t, nil)
	if _, err := f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := f.svc.Register(context.Background(), "alice", "password2", "10.9.9.9"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("duplicate username must conflict, got %v", err)
	}
	if _, err := f.svc.Register(context.Background(), "bob", "password2", "10.0.0.1"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("duplicate IP must conflict, got %v", err)
	}
}

func TestAccountService_Register_ShortPassword(t *testing.T) {
	f := newAccountFixture(t, nil)
	if _, err := f.svc.Register(context.Background(), "alice", "short", "10.0.0.1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("under-length password must be rejected, got %v", err)
	}
}

func TestAccountService_Approve(t *testing.T) {
	f := newAccountFixture(t, nil)
	review, err := f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	approved, err := f.svc.Approve(context.Background(), review.Token, "10.0.0.1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.StatusAuthorized {
		t.Fatalf("approval must rotate into AUTHORIZED, got %s", approved.Status)
	}
	if approved.Token == review.Token {
		t.Fatalf("approval must mint a fresh token")
	}
	if _, ok := f.sessions.rows[review.Token]; ok {
		t.Fatalf("review token must be destroyed")
	}

	user, _ := f.users.FindByUsername(context.Background(), "alice")
	if user.Role != domain.RoleUser {
		t.Fatalf("approved account must hold the user role, got %s", user.Role)
	}
	if f.audit.len() == 0 {
		t.Fatalf("approval must be audited")
	}
}

func TestAccountService_Approve_WrongIP(t *testing.T) {
	f := newAccountFixture(t, nil)
	review, _ := f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")

	if _, err := f.svc.Approve(context.Background(), review.Token, "10.9.9.9"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("IP mismatch must be forbidden, got %v", err)
	}
	if _, err := f.svc.Approve(context.Background(), "no-such-token", "10.0.0.1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("unknown token must be forbidden, got %v", err)
	}
}

func TestAccountService_Approve_AlreadyApproved(t *testing.T) {
	f := newAccountFixture(t, nil)
	review, _ := f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")
	user, _ := f.users.FindByUsername(context.Background(), "alice")
	_ = f.users.UpdateRole(context.Background(), user.ID, domain.RoleUser)

	if _, err := f.svc.Approve(context.Background(), review.Token, "10.0.0.1"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("re-approval must conflict, got %v", err)
	}
}

func TestAccountService_Login_GenericFailure(t *testing.T) {
	f := newAccountFixture(t, nil)
	_, _ = f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")
	review, _ := f.users.FindByUsername(context.Background(), "alice")
	_ = f.users.UpdateRole(context.Background(), review.ID, domain.RoleUser)

	// Unknown username and wrong password must be indistinguishable.
	_, unknownErr := f.svc.Login(context.Background(), "nobody", "password1", "10.0.0.1")
	_, wrongErr := f.svc.Login(context.Background(), "alice", "wrongpass", "10.0.0.1")
	if !errors.Is(unknownErr, domain.ErrInvalidCredentials) || !errors.Is(wrongErr, domain.ErrInvalidCredentials) {
		t.Fatalf("credential failures must collapse into one error: %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("error messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestAccountService_Login_UnderReview(t *testing.T) {
	f := newAccountFixture(t, nil)
	_, _ = f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")

	if _, err := f.svc.Login(context.Background(), "alice", "password1", "10.0.0.1"); !errors.Is(err, domain.ErrAccountUnderReview) {
		t.Fatalf("unapproved account must not log in, got %v", err)
	}
}

func TestAccountService_Login_DirectAuthorization(t *testing.T) {
	f := newAccountFixture(t, nil)
	_, _ = f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")
	user, _ := f.users.FindByUsername(context.Background(), "alice")
	_ = f.users.UpdateRole(context.Background(), user.ID, domain.RoleUser)

	sess, err := f.svc.Login(context.Background(), "alice", "password1", "10.1.1.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Status != domain.StatusAuthorized {
		t.Fatalf("login without 2FA must authorize directly, got %s", sess.Status)
	}
	if sess.IP != "10.1.1.1" {
		t.Fatalf("session must bind the login IP, got %q", sess.IP)
	}
}

func TestAccountService_Login_TwoFAChallenge(t *testing.T) {
	verify := &stubTwoFA{verifyFn: func(_ context.Context, _ int64, code string, failOpen bool) (bool, error) {
		if failOpen {
			t.Fatalf("challenge completion must fail closed")
		}
		return code == "123456", nil
	}}
	f := newAccountFixture(t, verify)
	_, _ = f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")
	user, _ := f.users.FindByUsername(context.Background(), "alice")
	_ = f.users.UpdateRole(context.Background(), user.ID, domain.RoleUser)

	// Registering a secret puts the user in the 2FA cache.
	_ = f.twoFA.CreateSecret(context.Background(), user.ID, "SECRET")
	refreshTestCaches(f.caches)

	waiting, err := f.svc.Login(context.Background(), "alice", "password1", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if waiting.Status != domain.StatusWait2FA {
		t.Fatalf("2FA user must get a WAIT_2FA session, got %s", waiting.Status)
	}

	if _, err := f.svc.CompleteTwoFA(context.Background(), waiting.Token, "10.0.0.1", "000000"); !errors.Is(err, domain.ErrTwoFACodeInvalid) {
		t.Fatalf("bad code must be rejected, got %v", err)
	}
	if _, err := f.svc.CompleteTwoFA(context.Background(), waiting.Token, "10.9.9.9", "123456"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("challenge from another IP must be rejected, got %v", err)
	}

	authorized, err := f.svc.CompleteTwoFA(context.Background(), waiting.Token, "10.0.0.1", "123456")
	if err != nil {
		t.Fatalf("complete 2fa: %v", err)
	}
	if authorized.Status != domain.StatusAuthorized || authorized.Token == waiting.Token {
		t.Fatalf("challenge must rotate into a fresh AUTHORIZED session: %+v", authorized)
	}
	if _, ok := f.sessions.rows[waiting.Token]; ok {
		t.Fatalf("WAIT_2FA token must be destroyed")
	}
}

func TestAccountService_Logout(t *testing.T) {
	f := newAccountFixture(t, nil)
	review, _ := f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")

	if err := f.svc.Logout(context.Background(), review.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := f.sessions.rows[review.Token]; ok {
		t.Fatalf("logout must destroy the durable row")
	}
	if err := f.svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("empty-token logout must be a no-op, got %v", err)
	}
}

func TestAccountService_ChangePassword(t *testing.T) {
	f := newAccountFixture(t, nil)
	_, _ = f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")
	user, _ := f.users.FindByUsername(context.Background(), "alice")
	_ = f.users.UpdateRole(context.Background(), user.ID, domain.RoleUser)

	if err := f.svc.ChangePassword(context.Background(), user.ID, "wrongpass", "password2"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong current password must be rejected, got %v", err)
	}
	if err := f.svc.ChangePassword(context.Background(), user.ID, "password1", "short"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("under-length new password must be rejected, got %v", err)
	}
	if err := f.svc.ChangePassword(context.Background(), user.ID, "password1", "password2"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "alice", "password2", "10.0.0.1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "alice", "password1", "10.0.0.1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
}

func TestAccountService_SetRoleAndIsAdmin(t *testing.T) {
	f := newAccountFixture(t, nil)
	_, _ = f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")
	user, _ := f.users.FindByUsername(context.Background(), "alice")

	if err := f.svc.SetRole(context.Background(), 99, user.ID, "root"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown role must be rejected, got %v", err)
	}
	if f.svc.IsAdmin(user.ID) {
		t.Fatalf("fresh account must not be admin")
	}
	if err := f.svc.SetRole(context.Background(), 99, user.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	// The mutating process sees its own write immediately.
	if !f.svc.IsAdmin(user.ID) {
		t.Fatalf("role change must be visible through the cache at once")
	}
}

func TestAccountService_DeleteUser(t *testing.T) {
	f := newAccountFixture(t, nil)
	_, _ = f.svc.Register(context.Background(), "alice", "password1", "10.0.0.1")
	user, _ := f.users.FindByUsername(context.Background(), "alice")

	if err := f.svc.DeleteUser(context.Background(), 99, 12345); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("unknown user must 404, got %v", err)
	}
	if err := f.svc.DeleteUser(context.Background(), 99, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := f.svc.User(user.ID); ok {
		t.Fatalf("deleted user must vanish from the cache")
	}
	if f.bus.count("USERS") < 2 || f.bus.count("USER_PERMISSIONS") < 1 || f.bus.count("2FA") < 1 {
		t.Fatalf("deletion must invalidate every cascade-touched cache: %+v", f.bus.published)
	}
}
