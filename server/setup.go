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

// Application state wiring: configuration loading, cloud clients, services,
// the analysis pipeline, and the background listeners.
package main

import (
	"context"
	"log"
	"os"

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	"github.com/findpartner/gcp-go-analysis/internal/core/services"
	"github.com/findpartner/gcp-go-analysis/internal/core/workflow"
)

// StateManager holds the shared dependencies for the application so handlers
// and listeners draw from one wired instance instead of globals scattered
// around.
type StateManager struct {
	config          *cloud.Config
	cloud           *cloud.ServiceClients
	mediaService    *services.MediaService
	analysisService *services.AnalysisService
	pipeline        *workflow.AnalysisPipeline
}

var state = &StateManager{}

// SetupOS points the configuration loader at the configs directory and the
// local runtime overrides.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig loads the application configuration once and caches it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// AgentModelName and StructuringModelName are the logical config keys for
// the two AI models the pipeline runs on.
const (
	AgentModelName       = "conversation-analyst"
	StructuringModelName = "evaluation-structurer"
)

// InitState creates the cloud clients, the services, and the analysis
// pipeline, then starts the background listeners.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.mediaService = &services.MediaService{
		Media:         cloudClients.Store.Media(),
		Store:         cloudClients.MediaStore,
		DriveImporter: cloudClients.DriveImporter,
	}

	state.analysisService = &services.AnalysisService{
		Media:    cloudClients.Store.Media(),
		Analyses: cloudClients.Store.Analyses(),
	}

	state.pipeline = workflow.NewAnalysisPipeline(
		config,
		cloudClients.Store,
		cloudClients.AgentModels[AgentModelName],
		cloudClients.StructuringModels[StructuringModelName],
	)

	SetupListeners(config, cloudClients, ctx)
}
