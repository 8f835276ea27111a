package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("UPLOAD_LOCK_BACKEND", " Redis ")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_USERNAME", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_DATABASE", "campaigns")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.DefaultCredential != "EMAIL_DEFAULT" {
		t.Fatalf("expected default credential EMAIL_DEFAULT, got %q", s.DefaultCredential)
	}
	if s.Upload.ChunkSize != 500 || s.Upload.LockTTL != 10*time.Minute {
		t.Fatalf("unexpected upload defaults: %+v", s.Upload)
	}
	if s.Protected.HashCost != 6 {
		t.Fatalf("expected protected hash cost 6, got %d", s.Protected.HashCost)
	}
	if s.Upload.LockBackend != "redis" {
		t.Fatalf("expected normalised lock backend, got %q", s.Upload.LockBackend)
	}
	if s.SMTP.Port != 2525 {
		t.Fatalf("expected SMTP port 2525, got %d", s.SMTP.Port)
	}
	if got := s.DB.DSN(); got != "app:secret@tcp(db:3306)/campaigns?charset=utf8mb4&parseTime=True&loc=Local" {
		t.Fatalf("unexpected DSN %q", got)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("UPLOAD_CHUNK_SIZE", "many")

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error for UPLOAD_CHUNK_SIZE")
	}
}
