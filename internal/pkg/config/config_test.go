package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("expected port 5000, got %q", cfg.Port)
	}
	if cfg.Auth.JWTTTL != 7*24*time.Hour {
		t.Errorf("expected 7 day token ttl, got %s", cfg.Auth.JWTTTL)
	}
	if cfg.Auth.JWTIssuer != "task-tracker" || cfg.Auth.BcryptCost != 10 {
		t.Errorf("unexpected auth config %+v", cfg.Auth)
	}
	if cfg.Store.Driver != DriverMongo || cfg.Mongo.Database != "task_tracker" {
		t.Errorf("unexpected store config %+v %+v", cfg.Store, cfg.Mongo)
	}
	if cfg.Redis.Addr != "" || cfg.Redis.IdempotencyTTL != 24*time.Hour {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
	if !cfg.IsDevelopment() {
		t.Errorf("expected development by default")
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":          "s3cret",
		"JWT_TTL":             "15m",
		"STORE_DRIVER":        "SQLite",
		"SQLITE_PATH":         ":memory:",
		"REDIS_ADDR":          "localhost:6379",
		"ENV":                 "production",
		"SEED_ADMIN_USERNAME": "root",
		"SEED_ADMIN_PASSWORD": "rootpass",
		"SEED_DEMO_DATA":      "true",
	}))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if cfg.Auth.JWTTTL != 15*time.Minute {
		t.Errorf("expected 15m, got %s", cfg.Auth.JWTTTL)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.SQL.Path != ":memory:" {
		t.Errorf("unexpected store %+v %+v", cfg.Store, cfg.SQL)
	}
	if cfg.IsDevelopment() {
		t.Errorf("production must not be development")
	}
	if !cfg.Seed.DemoData || cfg.Seed.AdminUsername != "root" {
		t.Errorf("unexpected seed config %+v", cfg.Seed)
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"zero ttl", map[string]string{"JWT_SECRET": "s", "JWT_TTL": "0s"}, "JWT_TTL"},
		{"bad driver", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "postgres"}, "STORE_DRIVER"},
		{"half seed", map[string]string{"JWT_SECRET": "s", "SEED_ADMIN_USERNAME": "root"}, "SEED_ADMIN"},
		{"unparsable ttl", map[string]string{"JWT_SECRET": "s", "JWT_TTL": "7d"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(tc.env))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
