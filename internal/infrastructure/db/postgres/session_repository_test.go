package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, *SessionRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewSessionRepository(db)
}

func TestSessionRepository_Insert(t *testing.T) {
	mock, repo := newMock(t)

	expires := time.Now().Add(time.Hour)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions (token, expires_at, user_id, ip, status)`)).
		WithArgs("tok", expires, int64(7), "10.0.0.1", "AUTHORIZED").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), domain.Session{
		Token:     "tok",
		ExpiresAt: expires,
		UserID:    7,
		IP:        "10.0.0.1",
		Status:    domain.StatusAuthorized,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionRepository_Find(t *testing.T) {
	mock, repo := newMock(t)

	expires := time.Now().Add(time.Hour)
	rows := sqlmock.NewRows([]string{"token", "expires_at", "user_id", "ip", "status"}).
		AddRow("tok", expires, int64(7), "10.0.0.1", "WAIT_2FA")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT token, expires_at, user_id, ip, status FROM sessions WHERE token = $1`)).
		WithArgs("tok").
		WillReturnRows(rows)

	sess, err := repo.Find(context.Background(), "tok")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if sess.UserID != 7 || sess.Status != domain.StatusWait2FA || sess.IP != "10.0.0.1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionRepository_Find_NotFound(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT token, expires_at, user_id, ip, status FROM sessions WHERE token = $1`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"token", "expires_at", "user_id", "ip", "status"}))

	if _, err := repo.Find(context.Background(), "ghost"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepository_Delete(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE token = $1`)).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
