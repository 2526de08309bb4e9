package auth

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionRoundTrip(t *testing.T) {
	mgr, err := NewSessionManager("unit-test-secret", time.Hour, testLogger())
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}

	user := &models.User{ID: "user-1", Username: "admin", Role: models.RoleAdmin}
	token, err := mgr.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.Username != "admin" || claims.Role != models.RoleAdmin {
		t.Errorf("claims = %+v, want username/role preserved", claims)
	}
}

func TestSessionVerifyRejections(t *testing.T) {
	mgr, err := NewSessionManager("unit-test-secret", time.Hour, testLogger())
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	other, err := NewSessionManager("different-secret", time.Hour, testLogger())
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	expiring, err := NewSessionManager("unit-test-secret", -time.Minute, testLogger())
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}

	user := &models.User{ID: "user-1", Username: "admin", Role: models.RoleAdmin}
	foreign, err := other.Issue(user)
	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}
	expired, err := expiring.Issue(user)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", foreign},
		{"expired", expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mgr.Verify(tt.token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("err = %v, want unauthorized", err)
			}
		})
	}
}

func TestNewSessionManagerEmptySecret(t *testing.T) {
	if _, err := NewSessionManager("", time.Hour, testLogger()); err == nil {
		t.Fatal("empty secret accepted")
	}
}
