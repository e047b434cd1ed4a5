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

// Package cloud holds the application configuration structures, the external
// service clients, and the model wrappers that talk to the AI providers.
// Configuration is loaded from TOML files: a base .env.toml plus an
// environment-specific override such as .env.test.toml.
package cloud

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/findpartner/gcp-go-analysis/internal/core/schema"
)

// DefaultSafetySettings turns off content blocking for every harm category.
// Conversation recordings are trusted first-party input; a blocked narrative
// would surface as an empty response and fail the pipeline for no reason.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Database holds the Postgres connection settings.
type Database struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"ssl_mode"`
}

// DSN renders the settings as a GORM/pgx connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// Storage names the GCS buckets used by the application.
type Storage struct {
	MediaBucket string `toml:"media_bucket"` // Uploaded conversation recordings.
}

// Pipeline tunes the analysis pipeline: how many unanalyzed records one batch
// discovers, the per-item deadline, and the retry policy for AI calls.
type Pipeline struct {
	BatchSize            int `toml:"batch_size"`
	ItemTimeoutInSeconds int `toml:"item_timeout_in_seconds"`
	MaxRetries           int `toml:"max_retries"`
	RetryBaseDelayInMs   int `toml:"retry_base_delay_in_ms"`
}

// PromptTemplates holds the text/template sources for prompts sent to the
// narrative model. Templates are executed against the evaluation rubric so
// the prompt always lists the configured categories.
type PromptTemplates struct {
	Narrative string `toml:"narrative"`
}

// VertexAiLLMModel configures one Vertex AI generative model.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"` // Requests per second.
}

// OpenAIModel configures one OpenAI chat model used for structuring. The API
// key comes from the OPENAI_API_KEY environment variable, never from config.
type OpenAIModel struct {
	Model              string  `toml:"model"`
	Temperature        float32 `toml:"temperature"`
	SystemInstructions string  `toml:"system_instructions"`
}

// TopicSubscription configures a single Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Config is the root configuration object, loaded from TOML files.
type Config struct {
	Application struct {
		Name            string `toml:"name"`
		GoogleProjectId string `toml:"google_project_id"`
		GoogleLocation  string `toml:"location"`
		ThreadPoolSize  int    `toml:"thread_pool_size"` // Worker pool size for batch processing.
		Port            int    `toml:"port"`
	} `toml:"application"`
	Database           Database                     `toml:"database"`
	Storage            Storage                      `toml:"storage"`
	Pipeline           Pipeline                     `toml:"pipeline"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
	StructuringModels  map[string]OpenAIModel       `toml:"structuring_models"`
	Evaluation         schema.Definition            `toml:"evaluation"`
}

// NewConfig creates a Config with its maps initialized so the TOML decoder
// can populate them.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
		StructuringModels:  make(map[string]OpenAIModel),
	}
}
