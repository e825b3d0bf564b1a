package session

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Manav0411/askbase-go/api"
	"github.com/Manav0411/askbase-go/cache"
)

var testKey = []byte("test-signing-key")

func init() {
	// TestRequire_LazyExpiry mints a credential expiring 50ms out; the jwt
	// library truncates exp to whole seconds by default, which would stamp
	// it as already expired.
	jwt.TimePrecision = time.Millisecond
}

func mintToken(t *testing.T, id int, role, email string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.Itoa(id),
		"role":  role,
		"email": email,
		"exp":   float64(expiresAt.UnixNano()) / float64(time.Second),
	})
	signed, err := token.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newGuard(cfg Config) (*Guard, *MemoryStore, *cache.Store) {
	store := NewMemoryStore()
	cacheStore := cache.NewStore()
	return NewGuard(store, cacheStore, cfg, nil), store, cacheStore
}

func TestEstablish_Success(t *testing.T) {
	g, store, cacheStore := newGuard(Config{VerifyKey: testKey})

	// Residue from a prior principal must not survive.
	cacheStore.Put("documents:all", "previous principal's data")

	token := mintToken(t, 7, "engineer", "eng@corp.test", time.Now().Add(30*time.Minute))
	s, err := g.Establish(context.Background(), token)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}

	want := api.Principal{ID: 7, Email: "eng@corp.test", Role: api.RoleEngineer}
	if s.Principal != want {
		t.Errorf("principal = %+v, want %+v", s.Principal, want)
	}
	if g.State() != StateAuthenticated {
		t.Errorf("state = %v, want authenticated", g.State())
	}
	if cacheStore.Len() != 0 {
		t.Error("cache not cleared on establish")
	}

	credential, principal, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if credential != token || len(principal) == 0 {
		t.Error("credential/principal pair not persisted as a unit")
	}
}

func TestEstablish_Failures(t *testing.T) {
	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			"garbage credential",
			func(t *testing.T) string { return "not-a-jwt" },
			ErrInvalidCredential,
		},
		{
			"expired credential",
			func(t *testing.T) string {
				return mintToken(t, 7, "engineer", "", time.Now().Add(-time.Minute))
			},
			ErrCredentialExpired,
		},
		{
			"unknown role",
			func(t *testing.T) string {
				return mintToken(t, 7, "superuser", "", time.Now().Add(time.Hour))
			},
			ErrInvalidCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, store, _ := newGuard(Config{VerifyKey: testKey})
			_, err := g.Establish(context.Background(), tt.token(t))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Establish = %v, want %v", err, tt.wantErr)
			}
			if g.State() != StateAnonymous {
				t.Errorf("state = %v, want anonymous", g.State())
			}
			if _, _, ok, _ := store.Load(); ok {
				t.Error("failed establish persisted state")
			}
		})
	}
}

func TestEstablish_BadSignatureRejectedWhenVerifying(t *testing.T) {
	g, _, _ := newGuard(Config{VerifyKey: []byte("a different key")})
	token := mintToken(t, 7, "engineer", "", time.Now().Add(time.Hour))
	if _, err := g.Establish(context.Background(), token); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Establish = %v, want ErrInvalidCredential", err)
	}
}

func TestRestoreOnBoot_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	cacheStore := cache.NewStore()
	token := mintToken(t, 7, "hr", "hr@corp.test", time.Now().Add(30*time.Minute))

	first := NewGuard(store, cacheStore, Config{VerifyKey: testKey}, nil)
	established, err := first.Establish(context.Background(), token)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}

	// Simulated reload: a fresh guard over the same persisted store.
	rebooted := NewGuard(store, cache.NewStore(), Config{VerifyKey: testKey}, nil)
	restored, ok, err := rebooted.RestoreOnBoot(context.Background())
	if err != nil || !ok {
		t.Fatalf("RestoreOnBoot = %v, %v", ok, err)
	}

	if restored.Principal != established.Principal {
		t.Errorf("restored principal = %+v, want identical %+v",
			restored.Principal, established.Principal)
	}
	if rebooted.State() != StateAuthenticated {
		t.Errorf("state = %v, want authenticated", rebooted.State())
	}
}

func TestRestoreOnBoot_ExpiredClearsPersistedState(t *testing.T) {
	store := NewMemoryStore()
	token := mintToken(t, 7, "hr", "", time.Now().Add(-time.Minute))
	store.Save(token, []byte(`{"id":7,"email":"","role":"hr"}`))

	g := NewGuard(store, cache.NewStore(), Config{VerifyKey: testKey}, nil)
	_, ok, err := g.RestoreOnBoot(context.Background())
	if err != nil {
		t.Fatalf("RestoreOnBoot: %v", err)
	}
	if ok {
		t.Fatal("expired session restored")
	}
	if g.State() != StateAnonymous {
		t.Errorf("state = %v, want anonymous", g.State())
	}
	if _, _, present, _ := store.Load(); present {
		t.Error("expired persisted state not cleared")
	}
}

func TestRestoreOnBoot_Empty(t *testing.T) {
	g, _, _ := newGuard(Config{VerifyKey: testKey})
	_, ok, err := g.RestoreOnBoot(context.Background())
	if err != nil || ok {
		t.Errorf("RestoreOnBoot on empty store = %v, %v, want false, nil", ok, err)
	}
}

func TestTeardown(t *testing.T) {
	var reasons []Reason
	g, store, cacheStore := newGuard(Config{
		VerifyKey:  testKey,
		OnTeardown: func(r Reason) { reasons = append(reasons, r) },
	})

	token := mintToken(t, 7, "admin", "", time.Now().Add(time.Hour))
	if _, err := g.Establish(context.Background(), token); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	cacheStore.Put("documents:all", "data")

	if err := g.Teardown(context.Background(), LoggedOut); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	if g.State() != StateAnonymous {
		t.Errorf("state = %v, want anonymous", g.State())
	}
	if cacheStore.Len() != 0 {
		t.Error("cache survived teardown")
	}
	if _, _, ok, _ := store.Load(); ok {
		t.Error("persisted state survived teardown")
	}
	if len(reasons) != 1 || reasons[0] != LoggedOut {
		t.Errorf("OnTeardown reasons = %v, want [logged_out]", reasons)
	}

	// Idempotent, and no duplicate callback while Anonymous.
	if err := g.Teardown(context.Background(), ServerRejected); err != nil {
		t.Fatalf("second Teardown: %v", err)
	}
	if len(reasons) != 1 {
		t.Errorf("OnTeardown fired while anonymous: %v", reasons)
	}
}

func TestRequire(t *testing.T) {
	g, _, _ := newGuard(Config{VerifyKey: testKey})
	ctx := context.Background()

	if _, err := g.Require(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Require while anonymous = %v, want ErrNotAuthenticated", err)
	}

	token := mintToken(t, 7, "engineer", "", time.Now().Add(time.Hour))
	if _, err := g.Establish(ctx, token); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if _, err := g.Require(ctx); err != nil {
		t.Errorf("Require = %v, want nil", err)
	}
}

func TestRequire_LazyExpiry(t *testing.T) {
	var reasons []Reason
	g, store, cacheStore := newGuard(Config{
		VerifyKey:  testKey,
		OnTeardown: func(r Reason) { reasons = append(reasons, r) },
	})
	ctx := context.Background()

	token := mintToken(t, 7, "engineer", "", time.Now().Add(50*time.Millisecond))
	if _, err := g.Establish(ctx, token); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	cacheStore.Put("documents:all", "data")

	time.Sleep(60 * time.Millisecond)

	if _, err := g.Require(ctx); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Require after expiry = %v, want ErrSessionExpired", err)
	}

	// Expiry is equivalent to logout for all downstream effects.
	if g.State() != StateAnonymous {
		t.Errorf("state = %v, want anonymous", g.State())
	}
	if cacheStore.Len() != 0 {
		t.Error("cache survived expiry")
	}
	if _, _, ok, _ := store.Load(); ok {
		t.Error("persisted state survived expiry")
	}
	if len(reasons) != 1 || reasons[0] != Expired {
		t.Errorf("OnTeardown reasons = %v, want [expired]", reasons)
	}
}
