package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestCheckImage(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		wantType string
		wantExt  string
		wantErr  error
	}{
		{name: "png", body: pngHeader, wantType: "image/png", wantExt: ".png"},
		{name: "gif", body: []byte("GIF89a......"), wantType: "image/gif", wantExt: ".gif"},
		{name: "text", body: []byte("hello world"), wantErr: ErrUnsupportedType},
		{name: "empty", body: nil, wantErr: ErrUnsupportedType},
		{name: "too large", body: append(pngHeader, bytes.Repeat([]byte{0}, MaxImageSize)...), wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, ext, err := CheckImage(tt.body)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if ct != tt.wantType || ext != tt.wantExt {
				t.Errorf("got (%q, %q), want (%q, %q)", ct, ext, tt.wantType, tt.wantExt)
			}
		})
	}
}

func TestImageKey(t *testing.T) {
	a := ImageKey("avatars", 12, ".png")
	b := ImageKey("avatars", 12, ".png")
	if !strings.HasPrefix(a, "avatars/12/") || !strings.HasSuffix(a, ".png") {
		t.Errorf("ImageKey() = %q", a)
	}
	if a == b {
		t.Error("keys should be unique")
	}
}

func TestKeyFromURL(t *testing.T) {
	base := "https://cdn.example.com/"
	key, ok := keyFromURL(base, "https://cdn.example.com/avatars/1/a.png")
	if !ok || key != "avatars/1/a.png" {
		t.Errorf("keyFromURL() = %q, %v", key, ok)
	}
	if _, ok := keyFromURL(base, "https://elsewhere.com/a.png"); ok {
		t.Error("foreign URL should not match")
	}
	if _, ok := keyFromURL(base, "https://cdn.example.com/"); ok {
		t.Error("bare base should not match")
	}
}

func TestDisabled(t *testing.T) {
	var s Store = Disabled{}
	if _, err := s.Put(context.Background(), "k", pngHeader, "image/png"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Put() error = %v, want ErrDisabled", err)
	}
	if err := s.Delete(context.Background(), "https://x/y"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestSupabaseStoreBaseURL(t *testing.T) {
	s := NewSupabaseStore("https://abc.supabase.co/", "key", "uploads")
	want := "https://abc.supabase.co/storage/v1/object/public/uploads"
	if s.baseURL != want {
		t.Errorf("baseURL = %q, want %q", s.baseURL, want)
	}
}
