package signing

import (
	"regexp"
	"testing"
	"time"
)

func TestCanonicalString_FieldOrder(t *testing.T) {
	t.Parallel()

	got := CanonicalString("get", "/api/users?page=1&limit=10", "2024-01-15T10:30:00Z")
	want := "GET\n/api/users?page=1&limit=10\n2024-01-15T10:30:00Z\n"
	if got != want {
		t.Errorf("CanonicalString() = %q, want %q", got, want)
	}
}

func TestCanonicalString_LeadingSlash(t *testing.T) {
	t.Parallel()

	got := CanonicalString("GET", "api/users", "2024-01-15T10:30:00Z")
	want := "GET\n/api/users\n2024-01-15T10:30:00Z\n"
	if got != want {
		t.Errorf("CanonicalString() = %q, want %q", got, want)
	}
}

func TestSign_KnownVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		secret    string
		method    string
		path      string
		timestamp string
		want      string
	}{
		{
			name:      "query preserved verbatim",
			secret:    "test-secret",
			method:    "GET",
			path:      "/api/users?page=1&limit=10",
			timestamp: "2024-01-15T10:30:00Z",
			want:      "56d5214bca3dc29e0ca1afb8fb5b0ac0f2a27f31e8e3cfdf71d1f40c1658a049",
		},
		{
			name:      "method upper-cased",
			secret:    "s3cr3t",
			method:    "post",
			path:      "/api/users",
			timestamp: "2024-01-01T00:00:00Z",
			want:      "314a68ccc7b356b8579e0ed246163bd349b167e8530f7cec14390e340bfa7aed",
		},
		{
			name:      "root path",
			secret:    "test-secret",
			method:    "GET",
			path:      "/",
			timestamp: "2024-01-15T10:30:00Z",
			want:      "0ca436d0be37d063cbae44b480db548fb354c264fbe9fe3c3c7feca14e22f9be",
		},
		{
			name:      "delete",
			secret:    "shhh",
			method:    "DELETE",
			path:      "/items/42",
			timestamp: "2025-06-01T12:00:00Z",
			want:      "5c06e7f063ebfb22d6a87e66f19fcd7d4fc0f36ccf31fb96391c2fd5d5cdd0b7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Sign(tt.secret, tt.method, tt.path, tt.timestamp)
			if got != tt.want {
				t.Errorf("Sign() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSign_DeterministicHexShape(t *testing.T) {
	t.Parallel()

	hexRe := regexp.MustCompile(`^[a-f0-9]{64}$`)

	first := Sign("key", "PUT", "/v1/things?x=1", "2024-03-01T08:00:00Z")
	if !hexRe.MatchString(first) {
		t.Fatalf("Sign() = %q, want 64 lowercase hex chars", first)
	}
	for i := 0; i < 10; i++ {
		if got := Sign("key", "PUT", "/v1/things?x=1", "2024-03-01T08:00:00Z"); got != first {
			t.Fatalf("Sign() not deterministic: %q != %q", got, first)
		}
	}
}

func TestProfile_HeaderNames(t *testing.T) {
	t.Parallel()

	custom := Profile{Scheme: HeaderSchemeCustom}
	if got := custom.SignatureHeader(); got != "x-hmac-signature" {
		t.Errorf("custom SignatureHeader() = %q", got)
	}
	if got := custom.TimestampHeader(); got != "x-hmac-timestamp" {
		t.Errorf("custom TimestampHeader() = %q", got)
	}

	legacy := Profile{Scheme: HeaderSchemeLegacy}
	if got := legacy.SignatureHeader(); got != "X-Signature" {
		t.Errorf("legacy SignatureHeader() = %q", got)
	}
	if got := legacy.TimestampHeader(); got != "X-Timestamp" {
		t.Errorf("legacy TimestampHeader() = %q", got)
	}
}

func TestProfile_ResolveTimestamp_Server(t *testing.T) {
	t.Parallel()

	p := Profile{Timestamps: TimestampServer}
	now := time.Date(2024, 5, 20, 14, 30, 45, 0, time.UTC)

	// Server-stamped: caller value ignored even when present.
	got, err := p.ResolveTimestamp("2000-01-01T00:00:00Z", now)
	if err != nil {
		t.Fatalf("ResolveTimestamp() error: %v", err)
	}
	if got != "2024-05-20T14:30:45Z" {
		t.Errorf("ResolveTimestamp() = %q, want %q", got, "2024-05-20T14:30:45Z")
	}
}

func TestProfile_ResolveTimestamp_Caller(t *testing.T) {
	t.Parallel()

	p := Profile{Timestamps: TimestampCaller}

	got, err := p.ResolveTimestamp("2024-01-15T10:30:00Z", time.Now())
	if err != nil {
		t.Fatalf("ResolveTimestamp() error: %v", err)
	}
	if got != "2024-01-15T10:30:00Z" {
		t.Errorf("ResolveTimestamp() = %q, want caller value", got)
	}

	if _, err := p.ResolveTimestamp("", time.Now()); err != ErrMissingTimestamp {
		t.Errorf("ResolveTimestamp(\"\") error = %v, want ErrMissingTimestamp", err)
	}
}
