package service

import (
	"context"
	"errors"
	"testing"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
)

func TestBootstrapCreatesAdminOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.users.Bootstrap(ctx, "root", "swordfish-1"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	resp, err := env.users.Login(ctx, &LoginRequest{Username: "root", Password: "swordfish-1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.Role != models.RoleAdmin {
		t.Errorf("bootstrap user role = %q, want admin", resp.User.Role)
	}

	// A second bootstrap with different credentials is a no-op
	if err := env.users.Bootstrap(ctx, "other", "different-pw"); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if _, err := env.users.Login(ctx, &LoginRequest{Username: "other", Password: "different-pw"}); err == nil {
		t.Error("second bootstrap should not have created an account")
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.users.CreateUser(ctx, adminActor(), &CreateUserRequest{
		Username: "casey", Password: "correct-horse", Role: models.RoleEditor,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	resp, err := env.users.Login(ctx, &LoginRequest{Username: "casey", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login returned no token")
	}

	claims, err := env.sessions.Verify(resp.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if claims.Username != "casey" || claims.Role != models.RoleEditor {
		t.Errorf("claims = %q/%q", claims.Username, claims.Role)
	}

	// Wrong password and unknown user look identical to the caller
	_, errWrong := env.users.Login(ctx, &LoginRequest{Username: "casey", Password: "bad"})
	_, errUnknown := env.users.Login(ctx, &LoginRequest{Username: "ghost", Password: "bad"})
	if !errors.Is(errWrong, domain.ErrUnauthorized) || !errors.Is(errUnknown, domain.ErrUnauthorized) {
		t.Errorf("credential failures should be unauthorized: %v / %v", errWrong, errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Error("wrong-password and unknown-user messages must not differ")
	}
}

func TestUserAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	editor := editorActor()

	if _, err := env.users.CreateUser(ctx, editor, &CreateUserRequest{
		Username: "x", Password: "longenough", Role: models.RoleViewer,
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-admin create should be forbidden, got %v", err)
	}
	if _, err := env.users.ListUsers(ctx, editor); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-admin list should be forbidden, got %v", err)
	}
	if err := env.users.DeleteUser(ctx, editor, "someone"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-admin delete should be forbidden, got %v", err)
	}
}

func TestUserLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := adminActor()

	if _, err := env.users.CreateUser(ctx, admin, &CreateUserRequest{
		Username: "casey", Password: "initial-pw", Role: models.RoleViewer,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Duplicate usernames conflict
	if _, err := env.users.CreateUser(ctx, admin, &CreateUserRequest{
		Username: "casey", Password: "whatever1", Role: models.RoleViewer,
	}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate username should conflict, got %v", err)
	}

	// Short passwords are rejected
	if _, err := env.users.CreateUser(ctx, admin, &CreateUserRequest{
		Username: "shorty", Password: "short", Role: models.RoleViewer,
	}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("short password should fail validation, got %v", err)
	}

	// Role change takes effect at next login
	role := models.RoleEditor
	updated, err := env.users.UpdateUser(ctx, admin, "casey", &UpdateUserRequest{Role: &role})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Role != models.RoleEditor {
		t.Errorf("role = %q, want editor", updated.Role)
	}

	// Password change invalidates the old one
	pw := "rotated-pw-1"
	if _, err := env.users.UpdateUser(ctx, admin, "casey", &UpdateUserRequest{Password: &pw}); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, err := env.users.Login(ctx, &LoginRequest{Username: "casey", Password: "initial-pw"}); err == nil {
		t.Error("old password should no longer work")
	}
	if _, err := env.users.Login(ctx, &LoginRequest{Username: "casey", Password: pw}); err != nil {
		t.Errorf("new password should work: %v", err)
	}

	// Admins cannot delete themselves
	if err := env.users.DeleteUser(ctx, admin, admin.Username); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("self-delete should fail validation, got %v", err)
	}

	if err := env.users.DeleteUser(ctx, admin, "casey"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := env.users.Login(ctx, &LoginRequest{Username: "casey", Password: pw}); err == nil {
		t.Error("deleted user should not be able to log in")
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := adminActor()

	settings, err := env.settings.Get(ctx, admin)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.DefaultVisibility == "" || settings.MaxUploadBytes <= 0 {
		t.Errorf("defaults not populated: %+v", settings)
	}

	vis := models.VisibilityPrivate
	updated, err := env.settings.Update(ctx, admin, &UpdateSettingsRequest{DefaultVisibility: &vis})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.DefaultVisibility != models.VisibilityPrivate {
		t.Errorf("default_visibility = %q", updated.DefaultVisibility)
	}

	// New documents pick up the changed default
	doc, err := env.docs.CreateDocument(ctx, admin, &CreateDocumentRequest{Title: "Doc", Content: "body"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if doc.Visibility != models.VisibilityPrivate {
		t.Errorf("document visibility = %q, want the instance default", doc.Visibility)
	}

	// Non-admins cannot read or write settings
	if _, err := env.settings.Get(ctx, editorActor()); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-admin settings read should be forbidden, got %v", err)
	}

	// Invalid values are rejected
	bad := models.Visibility("everyone")
	if _, err := env.settings.Update(ctx, admin, &UpdateSettingsRequest{DefaultVisibility: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("invalid visibility should fail validation, got %v", err)
	}
}
