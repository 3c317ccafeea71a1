package blob

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		BucketName:      "talentdir-test",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		Endpoint:        "https://account.r2.cloudflarestorage.com",
		URLExpiry:       10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestNewService_RequiredFields(t *testing.T) {
	valid := ServiceConfig{
		BucketName:      "b",
		AccessKeyID:     "k",
		SecretAccessKey: "s",
		Endpoint:        "https://example.com",
	}

	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
	}{
		{"missing bucket", func(c *ServiceConfig) { c.BucketName = "" }},
		{"missing access key", func(c *ServiceConfig) { c.AccessKeyID = "" }},
		{"missing secret", func(c *ServiceConfig) { c.SecretAccessKey = "" }},
		{"missing endpoint", func(c *ServiceConfig) { c.Endpoint = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := NewService(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}

	svc, err := NewService(valid)
	if err != nil {
		t.Fatalf("valid config failed: %v", err)
	}
	if svc.urlExpiry != 15*time.Minute {
		t.Errorf("default expiry = %v, want 15m", svc.urlExpiry)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "profile-pictures/p1/abc.jpg", false},
		{"nested valid key", "profile-pictures/p1/2026/abc.png", false},
		{"wrong prefix", "posts/p1/abc.jpg", true},
		{"prefix only", "profile-pictures/", true},
		{"path traversal", "profile-pictures/../secrets.txt", true},
		{"empty segment", "profile-pictures/p1//abc.jpg", true},
		{"query characters", "profile-pictures/p1/abc.jpg?x=1", true},
		{"spaces", "profile-pictures/p 1/abc.jpg", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestProfilePictureKey(t *testing.T) {
	key, err := ProfilePictureKey("profile-123", "image/png")
	if err != nil {
		t.Fatalf("ProfilePictureKey failed: %v", err)
	}
	if !strings.HasPrefix(key, "profile-pictures/profile-123/") || !strings.HasSuffix(key, ".png") {
		t.Errorf("unexpected key %q", key)
	}
	if err := ValidateKey(key); err != nil {
		t.Errorf("generated key should validate: %v", err)
	}

	other, _ := ProfilePictureKey("profile-123", "image/png")
	if other == key {
		t.Error("keys should be unique")
	}

	if _, err := ProfilePictureKey("p1", "image/gif"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := ProfilePictureKey("///", "image/jpeg"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestPresignGet(t *testing.T) {
	svc := newTestService(t)
	fixed := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.timeNow = func() time.Time { return fixed }

	got, err := svc.PresignGet(context.Background(), "profile-pictures/p1/avatar.jpg")
	if err != nil {
		t.Fatalf("PresignGet failed: %v", err)
	}
	if !strings.Contains(got.URL, "/talentdir-test/profile-pictures/p1/avatar.jpg") {
		t.Errorf("URL should use path-style addressing, got %s", got.URL)
	}
	if !strings.Contains(got.URL, "X-Amz-Signature=") {
		t.Errorf("URL should be signed, got %s", got.URL)
	}
	if !got.ExpiresAt.Equal(fixed.Add(10 * time.Minute)) {
		t.Errorf("ExpiresAt = %v", got.ExpiresAt)
	}

	if _, err := svc.PresignGet(context.Background(), "../etc/passwd"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}
