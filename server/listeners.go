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

// Background Pub/Sub listener setup. Recordings written straight to the
// media bucket arrive as GCS notifications and are registered as media
// records for the next batch discovery.
package main

import (
	"context"

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	"github.com/findpartner/gcp-go-analysis/internal/core/workflow"
)

// MediaUploadsListener is the logical config key for the media bucket's
// notification subscription.
const MediaUploadsListener = "MediaUploads"

// SetupListeners attaches the intake workflow to the media uploads
// subscription and starts it.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	intake := workflow.NewMediaIntakeWorkflow(cloudClients.Store.Media())
	cloudClients.PubSubListeners[MediaUploadsListener].SetCommand(intake)
	cloudClients.PubSubListeners[MediaUploadsListener].Listen(ctx)
}
