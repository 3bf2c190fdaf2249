package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
)

func newTwoFAMock(t *testing.T) (sqlmock.Sqlmock, *TwoFARepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewTwoFARepository(db)
}

func TestTwoFARepository_Secret(t *testing.T) {
	mock, repo := newTwoFAMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT secret FROM users_2fa WHERE user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"secret"}).AddRow("SECRETVALUE"))

	secret, err := repo.Secret(context.Background(), 7)
	if err != nil || secret != "SECRETVALUE" {
		t.Fatalf("secret: %q %v", secret, err)
	}
}

func TestTwoFARepository_Secret_NotFound(t *testing.T) {
	mock, repo := newTwoFAMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT secret FROM users_2fa WHERE user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"secret"}))

	if _, err := repo.Secret(context.Background(), 7); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTwoFARepository_CreateRecoveryCodes_Transactional(t *testing.T) {
	mock, repo := newTwoFAMock(t)

	mock.ExpectBegin()
	for _, code := range []string{"aaaaaaaaaa", "bbbbbbbbbb"} {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users_2fa_recovery (user_id, code, used) VALUES ($1, $2, false)`)).
			WithArgs(int64(7), code).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if err := repo.CreateRecoveryCodes(context.Background(), 7, []string{"aaaaaaaaaa", "bbbbbbbbbb"}); err != nil {
		t.Fatalf("create recovery codes: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTwoFARepository_CreateRecoveryCodes_RollsBackOnFailure(t *testing.T) {
	mock, repo := newTwoFAMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users_2fa_recovery`)).
		WithArgs(int64(7), "aaaaaaaaaa").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := repo.CreateRecoveryCodes(context.Background(), 7, []string{"aaaaaaaaaa"}); err == nil {
		t.Fatalf("expected the insert failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTwoFARepository_ConsumeRecoveryCode(t *testing.T) {
	mock, repo := newTwoFAMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users_2fa_recovery SET used = true`)).
		WithArgs(int64(7), "aaaaaaaaaa").
		WillReturnResult(sqlmock.NewResult(0, 1))

	consumed, err := repo.ConsumeRecoveryCode(context.Background(), 7, "aaaaaaaaaa")
	if err != nil || !consumed {
		t.Fatalf("consume: %v %v", consumed, err)
	}
}

func TestTwoFARepository_ConsumeRecoveryCode_AlreadyUsed(t *testing.T) {
	mock, repo := newTwoFAMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users_2fa_recovery SET used = true`)).
		WithArgs(int64(7), "aaaaaaaaaa").
		WillReturnResult(sqlmock.NewResult(0, 0))

	consumed, err := repo.ConsumeRecoveryCode(context.Background(), 7, "aaaaaaaaaa")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed {
		t.Fatalf("a used code must not be consumed again")
	}
}

func TestTwoFARepository_DeleteAll_Transactional(t *testing.T) {
	mock, repo := newTwoFAMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users_2fa WHERE user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users_2fa_recovery WHERE user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	if err := repo.DeleteAll(context.Background(), 7); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTwoFARepository_RegisteredUserIDs(t *testing.T) {
	mock, repo := newTwoFAMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM users_2fa ORDER BY user_id`)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(1)).AddRow(int64(4)))

	ids, err := repo.RegisteredUserIDs(context.Background())
	if err != nil {
		t.Fatalf("registered user ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 4 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
