package account_test

import (
	"context"
	"errors"
	"testing"

	account "github.com/elliehq/ellie/internal/service/account"
)

func TestRegisterAndVerify(t *testing.T) {
	svc := account.NewService()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "visitor@example.com", "longenough")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if user.Email != "visitor@example.com" || !user.IsActive {
		t.Fatalf("unexpected user: %+v", user)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	verified, err := svc.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken err: %v", err)
	}
	if verified.ID != user.ID {
		t.Fatalf("verified wrong user: %+v", verified)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := account.NewService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "not-an-email", "longenough"); !errors.Is(err, account.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "a@b.com", "short"); !errors.Is(err, account.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, _, err := svc.Register(ctx, "a@b.com", "longenough"); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if _, _, err := svc.Register(ctx, "a@b.com", "longenough"); !errors.Is(err, account.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := account.NewService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "a@b.com", "longenough")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}

	user, token, err := svc.Authenticate(ctx, "a@b.com", "longenough")
	if err != nil {
		t.Fatalf("Authenticate err: %v", err)
	}
	if user.Email != "a@b.com" || token == "" {
		t.Fatalf("unexpected result: %+v %q", user, token)
	}

	// Unknown email and bad password fold into the same error.
	if _, _, err := svc.Authenticate(ctx, "a@b.com", "wrongpass"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, "nobody@b.com", "longenough"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRevokeToken(t *testing.T) {
	svc := account.NewService()
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "a@b.com", "longenough")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}

	svc.RevokeToken(ctx, token)
	if _, err := svc.VerifyToken(ctx, token); !errors.Is(err, account.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after revoke, got %v", err)
	}

	// Revoking again must not panic or error.
	svc.RevokeToken(ctx, token)
}
