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

// This file wires up every external dependency at startup and bundles the
// clients into a single ServiceClients container that is passed through the
// application. Construction fails fast: a client that cannot be created is a
// setup failure and the process should not come up half-connected.
package cloud

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
)

// EnvOpenAIAPIKey names the environment variable holding the OpenAI key.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// ServiceClients is the dependency container for every external service the
// application talks to: GCS, Pub/Sub, Vertex AI, OpenAI, Google Drive, and
// Postgres. One instance is created at startup and shared.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	OpenAIClient    *openai.Client
	DriveImporter   *DriveImporter
	MediaStore      *MediaStore
	Store           repo.Store
	PubSubListeners map[string]*PubSubListener
	// AgentModels are the configured narrative models keyed by their logical
	// config name, each wrapped with rate limiting and retries.
	AgentModels map[string]*QuotaAwareGenerativeAIModel
	// StructuringModels are the configured OpenAI structurers keyed by their
	// logical config name.
	StructuringModels map[string]*OpenAIStructurer
}

// Close releases the client connections. The genai client holds no closable
// resources in the current SDK.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
}

// NewCloudServiceClients creates and configures every external client from
// the loaded configuration.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, model.NewFailure(model.FailureSetup, fmt.Errorf("failed to create storage client: %w", err))
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, model.NewFailure(model.FailureSetup, fmt.Errorf("failed to create pubsub client: %w", err))
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, model.NewFailure(model.FailureSetup, fmt.Errorf("failed to create genai client: %w", err))
	}

	apiKey := os.Getenv(EnvOpenAIAPIKey)
	if apiKey == "" {
		return nil, model.Failuref(model.FailureSetup, "%s is not set", EnvOpenAIAPIKey)
	}
	oc := openai.NewClient(apiKey)

	di, err := NewDriveImporter(ctx)
	if err != nil {
		return nil, model.NewFailure(model.FailureSetup, err)
	}

	store, err := repo.Open(config.Database.DSN())
	if err != nil {
		return nil, err
	}

	// Listeners are created without commands; the workflows attach them once
	// the chains are assembled.
	subscriptions := make(map[string]*PubSubListener)
	for subKey, values := range config.TopicSubscriptions {
		listener, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, model.NewFailure(model.FailureSetup, err)
		}
		subscriptions[subKey] = listener
	}

	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.AgentModels {
		genCfg := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
		}
		agentModels[amKey] = NewQuotaAwareModel(genCfg, values.Model, gc.Models, values.RateLimit, config.Pipeline)
	}

	structuringModels := make(map[string]*OpenAIStructurer)
	for smKey, values := range config.StructuringModels {
		structuringModels[smKey] = NewOpenAIStructurer(oc, values, &config.Evaluation, config.Pipeline)
	}

	return &ServiceClients{
		StorageClient:     sc,
		PubsubClient:      pc,
		GenAIClient:       gc,
		OpenAIClient:      oc,
		DriveImporter:     di,
		MediaStore:        NewMediaStore(sc, config.Storage.MediaBucket),
		Store:             store,
		PubSubListeners:   subscriptions,
		AgentModels:       agentModels,
		StructuringModels: structuringModels,
	}, nil
}
