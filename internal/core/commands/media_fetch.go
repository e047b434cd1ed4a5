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

	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
)

// MediaFetch resolves the media record id at the head of the chain into the
// full record. A missing id fails the item with not_found and stops the
// chain before anything is claimed.
type MediaFetch struct {
	cor.BaseCommand
	media repo.MediaRepository
}

// NewMediaFetch is the constructor for the MediaFetch command.
func NewMediaFetch(name string, media repo.MediaRepository) *MediaFetch {
	return &MediaFetch{BaseCommand: *cor.NewBaseCommand(name), media: media}
}

// Execute loads the record and publishes it under both the well-known media
// key and the default output for the next command.
func (c *MediaFetch) Execute(context cor.Context) {
	mediaID, ok := context.Get(c.GetInputParam()).(string)
	if !ok || mediaID == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("missing media record id input"))
		return
	}

	record, err := c.media.Get(context.GetContext(), mediaID)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(CtxMediaRecord, record)
	context.Add(c.GetOutputParam(), record)
}
