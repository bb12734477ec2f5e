package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadConfigMergesOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  user: todo
redis:
  addr: localhost:6379
`)
	writeFile(t, dir, "staging.yaml", `
db:
  host: db.staging
`)

	cfg, err := LoadConfig("staging", dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	var out struct {
		DB    DBConfig    `yaml:"db"`
		Redis RedisConfig `yaml:"redis"`
	}
	if err := Decode(cfg, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.DB.Host != "db.staging" || out.DB.Port != 5432 || out.DB.User != "todo" {
		t.Fatalf("db = %+v, want overlay host with base port/user", out.DB)
	}
	if out.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis addr = %q", out.Redis.Addr)
	}
}

func TestLoadConfigMissingOverlayIsOptional(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \":9000\"\n")

	cfg, err := LoadConfig("nope", dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	var out struct {
		Server ServerConfig `yaml:"server"`
	}
	if err := Decode(cfg, &out); err != nil || out.Server.Port != ":9000" {
		t.Fatalf("server = %+v, err %v", out.Server, err)
	}
}

func TestLoadConfigMissingBase(t *testing.T) {
	if _, err := LoadConfig("local", t.TempDir()); err == nil {
		t.Fatal("expected error without base.yaml")
	}
}

func TestLoadConfigPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  password: ${TODO_TEST_DB_PASSWORD}
jwt:
  secret: ${TODO_TEST_JWT_SECRET}
mq:
  url: ${TODO_TEST_UNSET_PLACEHOLDER}
`)
	writeFile(t, dir, "secrets.env", `
# comment
TODO_TEST_DB_PASSWORD="from-secrets"
`)
	t.Setenv("TODO_TEST_DB_PASSWORD", "from-env")
	t.Setenv("TODO_TEST_JWT_SECRET", "jwt-from-env")

	cfg, err := LoadConfig("", dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	var out struct {
		DB  DBConfig  `yaml:"db"`
		JWT JWTConfig `yaml:"jwt"`
		MQ  MQConfig  `yaml:"mq"`
	}
	if err := Decode(cfg, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if out.DB.Password != "from-secrets" {
		t.Fatalf("password = %q, secrets.env should win over the process env", out.DB.Password)
	}
	if out.JWT.Secret != "jwt-from-env" {
		t.Fatalf("jwt secret = %q", out.JWT.Secret)
	}
	if out.MQ.URL != "${TODO_TEST_UNSET_PLACEHOLDER}" {
		t.Fatalf("unset placeholder = %q, want kept as-is", out.MQ.URL)
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("OTEL_ENABLED", "true")

	db := DBConfig{Port: 5432}
	OverrideDBFromEnv(&db)
	if !db.IsSQLite() || db.Port != 5432 {
		t.Fatalf("db = %+v", db)
	}

	var r RedisConfig
	OverrideRedisFromEnv(&r)
	if r.DB != 3 {
		t.Fatalf("redis db = %d, want 3", r.DB)
	}

	var o OtelConfig
	OverrideOtelFromEnv(&o)
	if !o.Enabled {
		t.Fatal("otel should be enabled")
	}
}
