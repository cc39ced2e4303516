package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestLoadRefusesShortSecret(t *testing.T) {
	for _, secret := range []string{"", "short", strings.Repeat("x", MinSecretLen-1)} {
		t.Setenv("JWT_SECRET", secret)

		if _, err := Load(); err == nil {
			t.Fatalf("Load accepted %d-byte secret", len(secret))
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", MinSecretLen))

	// blank these out so an ambient environment cannot mask the defaults
	for _, key := range []string{"PORT", "BCRYPT_COST", "DB_MIN_CONNS", "DB_MAX_CONNS", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Fatalf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.DBMinConns != 5 || cfg.DBMaxConns != 15 {
		t.Fatalf("pool = %d/%d, want 5/15", cfg.DBMinConns, cfg.DBMaxConns)
	}
	if !strings.Contains(cfg.DBURL, "postgres://") {
		t.Fatalf("DBURL = %q", cfg.DBURL)
	}
}

func TestLoadDatabaseURLOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", MinSecretLen))
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app?sslmode=require")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBURL != "postgres://u:p@db:5432/app?sslmode=require" {
		t.Fatalf("DBURL = %q", cfg.DBURL)
	}
}

func TestLoadOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", MinSecretLen))
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"https://app.example.com", "https://staging.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("origins = %v, want %v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("origins = %v, want %v", cfg.AllowedOrigins, want)
		}
	}
}

func TestWithTimeoutHonorsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())

	ctx, cancel2 := WithTimeout(parent, time.Minute)
	defer cancel2()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("child context ignored parent cancellation")
	}
}
