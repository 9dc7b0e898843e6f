package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	supabase "github.com/supabase-community/storage-go"
)

type SupabaseStore struct {
	client  *supabase.Client
	bucket  string
	baseURL string
}

func NewSupabaseStore(projectURL, serviceKey, bucket string) *SupabaseStore {
	projectURL = strings.TrimSuffix(projectURL, "/")
	return &SupabaseStore{
		client:  supabase.NewClient(projectURL+"/storage/v1", serviceKey, nil),
		bucket:  bucket,
		baseURL: projectURL + "/storage/v1/object/public/" + bucket,
	}
}

func (s *SupabaseStore) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	upsert := false
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(body), supabase.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.client.GetPublicUrl(s.bucket, key).SignedURL, nil
}

func (s *SupabaseStore) Delete(_ context.Context, url string) error {
	key, ok := keyFromURL(s.baseURL, url)
	if !ok {
		return nil
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
