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

package commands

import (
	"fmt"
	"log/slog"

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
)

// MediaRegister turns a GCS object reference into a media record row. The
// intake path is how recordings uploaded straight to the bucket (bypassing
// the API) still become visible to batch discovery. An object without an
// owner in its metadata cannot be attributed and is rejected.
type MediaRegister struct {
	cor.BaseCommand
	media repo.MediaRepository
}

// NewMediaRegister is the constructor for the MediaRegister command.
func NewMediaRegister(name string, media repo.MediaRepository) *MediaRegister {
	return &MediaRegister{BaseCommand: *cor.NewBaseCommand(name), media: media}
}

// Execute creates the media record. Output is the new *model.MediaRecord.
func (c *MediaRegister) Execute(context cor.Context) {
	obj, ok := context.Get(c.GetInputParam()).(*cloud.GCSObject)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no gcs object input"))
		return
	}
	if obj.OwnerID == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("object %s has no owner metadata", obj.Name))
		return
	}

	record := &model.MediaRecord{
		Kind:       model.KindForMimeType(obj.MIMEType),
		FileName:   obj.Name,
		StorageURL: fmt.Sprintf("gs://%s/%s", obj.Bucket, obj.Name),
		MimeType:   obj.MIMEType,
		OwnerID:    obj.OwnerID,
	}
	if err := c.media.Create(context.GetContext(), record); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to create media record: %w", err))
		return
	}

	slog.Info("registered media record", "mediaId", record.ID, "object", obj.Name, "owner", obj.OwnerID)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(CtxMediaRecord, record)
	context.Add(c.GetOutputParam(), record)
}
