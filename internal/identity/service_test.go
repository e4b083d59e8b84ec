package identity

import (
	"context"
	"testing"

	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
)

func TestRegisterProvisionsWallet(t *testing.T) {
	repo := NewMemoryRepository()
	store := ledger.NewInMemory()
	svc := NewService(repo, store)

	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{
		Credentials: Credentials{Phone: "+254700000000", PIN: "1234", DeviceID: "device-1"},
		Role:        RoleBuyer,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != RoleBuyer {
		t.Fatalf("expected buyer role, got %s", user.Role)
	}

	w, err := store.WalletByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("expected wallet provisioned at registration: %v", err)
	}
	if w.Balance != 0 {
		t.Fatalf("expected fresh wallet with zero balance, got %d", w.Balance)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Phone: user.Phone, PIN: "1234", DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected same user back")
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	_, err := svc.Register(context.Background(), RegisterInput{
		Credentials: Credentials{Phone: "123", PIN: "1234"},
		Role:        "admin",
	})
	if err == nil {
		t.Fatal("expected role validation error")
	}
}

func TestAuthenticateDeviceMismatch(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Credentials: Credentials{Phone: "123", PIN: "1234", DeviceID: "device-1"},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Phone: "123", PIN: "1234", DeviceID: "device-2"}); err == nil {
		t.Fatal("expected device mismatch error")
	}
}
