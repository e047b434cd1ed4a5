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

// Package services contains the business logic behind the HTTP surface.
// This file defines the MediaService: direct uploads, Google Drive imports,
// listing, and signed playback URLs for stored recordings.
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"golang.org/x/oauth2"

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
)

// PlaybackURLTTL is how long a signed playback link stays valid. Long enough
// to watch a recording, short enough that shared links go stale.
const PlaybackURLTTL = 4 * time.Hour

// MediaService handles recording ingestion and retrieval.
type MediaService struct {
	Media         repo.MediaRepository
	Store         *cloud.MediaStore
	DriveImporter *cloud.DriveImporter
}

// sniffKind verifies that content really is audio or video by reading its
// magic bytes, not trusting the declared MIME type. Returns the detected
// type and a reader that replays the sniffed header.
func sniffKind(content io.Reader) (types.Type, io.Reader, error) {
	header := make([]byte, 261)
	n, err := io.ReadFull(content, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return types.Unknown, nil, fmt.Errorf("failed to read upload header: %w", err)
	}
	header = header[:n]

	kind, err := filetype.Match(header)
	if err != nil {
		return types.Unknown, nil, fmt.Errorf("failed to sniff upload type: %w", err)
	}
	if !strings.HasPrefix(kind.MIME.Value, "audio/") && !strings.HasPrefix(kind.MIME.Value, "video/") {
		return types.Unknown, nil, model.Failuref(model.FailureSchemaMismatch,
			"unsupported upload type %q: only audio and video recordings are accepted", kind.MIME.Value)
	}
	return kind, io.MultiReader(bytes.NewReader(header), content), nil
}

// Upload stores a recording in the media bucket and registers it as a media
// record owned by ownerID.
func (s *MediaService) Upload(ctx context.Context, ownerID, fileName string, content io.Reader) (*model.MediaRecord, error) {
	kind, replay, err := sniffKind(content)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("uploads/%s/%s%s", ownerID, uuid.NewString(), path.Ext(fileName))
	storageURL, err := s.Store.Upload(ctx, objectName, kind.MIME.Value, replay)
	if err != nil {
		return nil, model.NewFailure(model.FailureTransient, err)
	}

	record := &model.MediaRecord{
		Kind:       model.KindForMimeType(kind.MIME.Value),
		FileName:   fileName,
		StorageURL: storageURL,
		MimeType:   kind.MIME.Value,
		OwnerID:    ownerID,
	}
	if err := s.Media.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ImportFromDrive copies a shared Drive file into the media bucket and
// registers it. A non-empty accessToken imports on the member's own OAuth
// grant instead of the service account. Importing the same Drive file twice
// returns the existing record unchanged.
func (s *MediaService) ImportFromDrive(ctx context.Context, ownerID, driveFileID, accessToken string) (*model.MediaRecord, error) {
	if existing, err := s.Media.GetByDriveFileID(ctx, driveFileID); err == nil {
		return existing, nil
	} else if model.KindOf(err) != model.FailureNotFound {
		return nil, err
	}

	importer := s.DriveImporter
	if accessToken != "" {
		var err error
		importer, err = cloud.NewDriveImporterWithTokenSource(ctx,
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
		if err != nil {
			return nil, err
		}
	}

	file, err := importer.GetFile(ctx, driveFileID)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(file.MimeType, "audio/") && !strings.HasPrefix(file.MimeType, "video/") {
		return nil, model.Failuref(model.FailureSchemaMismatch,
			"drive file %s is %q, not an audio or video recording", driveFileID, file.MimeType)
	}

	body, err := importer.Download(ctx, driveFileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	objectName := fmt.Sprintf("drive-imports/%s/%s%s", ownerID, uuid.NewString(), path.Ext(file.Name))
	storageURL, err := s.Store.Upload(ctx, objectName, file.MimeType, body)
	if err != nil {
		return nil, model.NewFailure(model.FailureTransient, err)
	}

	record := &model.MediaRecord{
		Kind:              model.KindForMimeType(file.MimeType),
		FileName:          file.Name,
		StorageURL:        storageURL,
		MimeType:          file.MimeType,
		OwnerID:           ownerID,
		GoogleDriveFileID: &file.ID,
	}
	if err := s.Media.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// List returns the owner's media records, newest first.
func (s *MediaService) List(ctx context.Context, ownerID string) ([]model.MediaRecord, error) {
	return s.Media.ListByOwner(ctx, ownerID)
}

// PlaybackURL mints a time-limited signed URL for a stored recording.
func (s *MediaService) PlaybackURL(ctx context.Context, mediaID string) (string, error) {
	record, err := s.Media.Get(ctx, mediaID)
	if err != nil {
		return "", err
	}
	objectName, err := cloud.ObjectNameFromURI(record.StorageURL)
	if err != nil {
		return "", err
	}
	return s.Store.SignedURL(objectName, PlaybackURLTTL)
}
