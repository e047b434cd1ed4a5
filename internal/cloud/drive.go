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

// Google Drive importer. The dashboard lets members hand over recordings
// that already live in Drive; the importer streams the file content into the
// media bucket instead of making the browser re-upload it.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
)

// DriveFile is the subset of Drive file metadata the import flow needs.
type DriveFile struct {
	ID       string
	Name     string
	MimeType string
}

// DriveImporter reads shared files from Google Drive.
type DriveImporter struct {
	service *drive.Service
}

// NewDriveImporter builds a read-only Drive client from application default
// credentials.
func NewDriveImporter(ctx context.Context) (*DriveImporter, error) {
	ts, err := google.DefaultTokenSource(ctx, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve drive credentials: %w", err)
	}
	return NewDriveImporterWithTokenSource(ctx, ts)
}

// NewDriveImporterWithTokenSource builds the importer around an explicit
// token source, used when acting on a member's delegated OAuth grant.
func NewDriveImporterWithTokenSource(ctx context.Context, ts oauth2.TokenSource) (*DriveImporter, error) {
	service, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveImporter{service: service}, nil
}

// GetFile fetches a file's metadata. An unknown or unshared file id is a
// not_found failure.
func (d *DriveImporter) GetFile(ctx context.Context, fileID string) (*DriveFile, error) {
	f, err := d.service.Files.Get(fileID).Fields("id", "name", "mimeType").Context(ctx).Do()
	if err != nil {
		if isDriveNotFound(err) {
			return nil, model.Failuref(model.FailureNotFound, "drive file %s not found", fileID)
		}
		return nil, model.NewFailure(model.FailureTransient, fmt.Errorf("failed to read drive metadata: %w", err))
	}
	return &DriveFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType}, nil
}

// Download opens the file content for streaming. The caller owns the
// returned body.
func (d *DriveImporter) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := d.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		if isDriveNotFound(err) {
			return nil, model.Failuref(model.FailureNotFound, "drive file %s not found", fileID)
		}
		return nil, model.NewFailure(model.FailureTransient, fmt.Errorf("failed to download drive file: %w", err))
	}
	return resp.Body, nil
}

func isDriveNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
