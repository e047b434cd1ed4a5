// Copyright 2025 Find Partner, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Google Cloud Storage pieces: the media object store the upload and import
// surfaces write through, and the notification payload GCS publishes to
// Pub/Sub when an object lands in the media bucket.
package cloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// MediaStore reads and writes conversation recordings in the media bucket.
type MediaStore struct {
	client *storage.Client
	bucket string
}

// NewMediaStore wraps a storage client for the configured media bucket.
func NewMediaStore(client *storage.Client, bucket string) *MediaStore {
	return &MediaStore{client: client, bucket: bucket}
}

// Bucket returns the backing bucket name.
func (m *MediaStore) Bucket() string { return m.bucket }

// Upload streams content into the bucket and returns the gs:// URI of the
// new object.
func (m *MediaStore) Upload(ctx context.Context, objectName, mimeType string, r io.Reader) (string, error) {
	w := m.client.Bucket(m.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", objectName, err)
	}
	return fmt.Sprintf("gs://%s/%s", m.bucket, objectName), nil
}

// SignedURL mints a V4 read URL for a stored object so the dashboard can
// play recordings without a service account of its own.
func (m *MediaStore) SignedURL(objectName string, ttl time.Duration) (string, error) {
	return m.client.Bucket(m.bucket).SignedURL(objectName, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
}

// ObjectNameFromURI extracts the object name from a gs://bucket/name URI.
func ObjectNameFromURI(uri string) (string, error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	if trimmed == uri {
		return "", fmt.Errorf("not a gs:// uri: %s", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("no object name in uri: %s", uri)
	}
	return parts[1], nil
}

// GetGCSObjectName returns the chain context key under which intake commands
// store the notification's object reference.
func GetGCSObjectName() string {
	return "__GCS__OBJ__"
}

// GCSPubSubNotification maps the JSON payload GCS publishes to Pub/Sub when
// an object is created in a monitored bucket. Only the fields the intake
// workflow reads are kept from the full notification schema.
type GCSPubSubNotification struct {
	Kind        string                 `json:"kind"`
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Bucket      string                 `json:"bucket"`
	ContentType string                 `json:"contentType"`
	TimeCreated string                 `json:"timeCreated"`
	Size        string                 `json:"size"`
	MediaLink   string                 `json:"mediaLink"`
	MetaData    map[string]interface{} `json:"metadata"`
}

// GCSObject is the lightweight object reference passed between intake
// commands.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
	OwnerID  string // From the uploader-supplied "owner" object metadata.
}
