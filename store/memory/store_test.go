package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/authcore"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	err := s.Create(context.Background(), &authcore.Identity{
		ID:           "id-1",
		Email:        "a@x.com",
		PasswordHash: "h",
		RefreshToken: "r1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return s
}

func TestCreateDuplicate(t *testing.T) {
	s := seeded(t)
	err := s.Create(context.Background(), &authcore.Identity{Email: "a@x.com"})
	if !errors.Is(err, authcore.ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}
}

func TestFindReturnsCopy(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	ident, err := s.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	ident.RefreshToken = "mutated"

	again, err := s.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if again.RefreshToken != "r1" {
		t.Fatalf("caller mutation leaked into store: %q", again.RefreshToken)
	}
}

func TestPersistWritesOnlyMutableFields(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	err := s.Persist(ctx, &authcore.Identity{Email: "a@x.com", PasswordHash: "other", Confirmed: true, RefreshToken: "r2"})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	ident, _ := s.FindByEmail(ctx, "a@x.com")
	if !ident.Confirmed || ident.RefreshToken != "r2" || ident.PasswordHash != "h" {
		t.Fatalf("unexpected identity after persist: %+v", ident)
	}
}

func TestSwapRefreshTokenSingleWinner(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	const workers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := s.SwapRefreshToken(ctx, "a@x.com", "r1", "next")
			if err != nil {
				t.Errorf("swap: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestMarkConfirmedKeepsRefreshToken(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	changed, err := s.MarkConfirmed(ctx, "a@x.com")
	if err != nil || !changed {
		t.Fatalf("first confirm: changed=%v err=%v", changed, err)
	}
	changed, err = s.MarkConfirmed(ctx, "a@x.com")
	if err != nil || changed {
		t.Fatalf("second confirm: changed=%v err=%v", changed, err)
	}
	ident, _ := s.FindByEmail(ctx, "a@x.com")
	if !ident.Confirmed || ident.RefreshToken != "r1" {
		t.Fatalf("unexpected identity after confirm: %+v", ident)
	}

	if err := s.Persist(ctx, &authcore.Identity{Email: "a@x.com", Confirmed: false, RefreshToken: "r2"}); err != nil {
		t.Fatalf("persist: %v", err)
	}
	ident, _ = s.FindByEmail(ctx, "a@x.com")
	if !ident.Confirmed || ident.RefreshToken != "r2" {
		t.Fatalf("persist must not unconfirm: %+v", ident)
	}
}

func TestMissingIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.FindByEmail(ctx, "none"); !errors.Is(err, authcore.ErrIdentityNotFound) {
		t.Fatalf("find: expected ErrIdentityNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "none"); !errors.Is(err, authcore.ErrIdentityNotFound) {
		t.Fatalf("delete: expected ErrIdentityNotFound, got %v", err)
	}
	if _, err := s.SwapRefreshToken(ctx, "none", "", "x"); !errors.Is(err, authcore.ErrIdentityNotFound) {
		t.Fatalf("swap: expected ErrIdentityNotFound, got %v", err)
	}
	if _, err := s.MarkConfirmed(ctx, "none"); !errors.Is(err, authcore.ErrIdentityNotFound) {
		t.Fatalf("confirm: expected ErrIdentityNotFound, got %v", err)
	}
	if err := s.UpdatePasswordHash(ctx, "none", "x"); !errors.Is(err, authcore.ErrIdentityNotFound) {
		t.Fatalf("update: expected ErrIdentityNotFound, got %v", err)
	}
}
