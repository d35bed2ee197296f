package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "call_logs_provider_call_id_key"})

	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation")
	}
	if !IsUniqueViolation(err, "call_logs_provider_call_id_key") {
		t.Fatalf("expected constraint match")
	}
	if IsUniqueViolation(err, "users_email_key") {
		t.Fatalf("expected constraint mismatch")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("x"), "") {
		t.Fatalf("plain error is not a unique violation")
	}
}

func TestPoolDefaults(t *testing.T) {
	p := PostgresPoolConfig{MaxOpenConns: 8}.withDefaults()
	if p.MaxIdleConns != 8 {
		t.Fatalf("expected idle conns to follow open conns, got %d", p.MaxIdleConns)
	}
	if p.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout %v", p.PingTimeout)
	}
}

func TestHealthCheck_NilDB(t *testing.T) {
	if err := HealthCheck(context.Background(), nil, time.Second); err == nil {
		t.Fatalf("expected error for nil db")
	}
}

func TestMigrationFiles_SortedSQLOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql": {Data: []byte("SELECT 2;")},
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"README.md": {Data: []byte("skip")},
	}
	names, err := migrationFiles(fsys)
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) != 2 || names[0] != "001_a.sql" {
		t.Fatalf("unexpected migration order: %v", names)
	}
}
