package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Jenny-Gump/content-generator/internal/domain"
)

const (
	configPathEnv      = "CONTENT_GENERATOR_CONFIG"
	firecrawlKeyEnv    = "FIRECRAWL_API_KEY"
	deepseekKeyEnv     = "DEEPSEEK_API_KEY"
	openRouterKeyEnv   = "OPENROUTER_API_KEY"
	databaseDSNEnv     = "DATABASE_DSN"
	wordpressPassEnv   = "WORDPRESS_APP_PASSWORD"
	wordpressUserEnv   = "WORDPRESS_USERNAME"
	wordpressAPIURLEnv = "WORDPRESS_API_URL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig    `yaml:"logging"`
	Output    OutputConfig     `yaml:"output"`
	Firecrawl FirecrawlConfig  `yaml:"firecrawl"`
	Filter    FilterConfig     `yaml:"filter"`
	Scoring   ScoringConfig    `yaml:"scoring"`
	Providers []ProviderConfig `yaml:"providers"`
	// DefaultProvider receives models no provider explicitly claims.
	DefaultProvider string          `yaml:"defaultProvider"`
	Stages          StagesConfig    `yaml:"stages"`
	Retry           RetryConfig     `yaml:"retry"`
	WordPress       WordPressConfig `yaml:"wordpress"`
	Database        DatabaseConfig  `yaml:"database"`
	Batch           BatchConfig     `yaml:"batch"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// OutputConfig names the root directory for per-topic artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// FirecrawlConfig describes the search/scrape collaborator.
type FirecrawlConfig struct {
	BaseURL           string `yaml:"baseUrl"`
	APIKey            string `yaml:"-"`
	SearchLimit       int    `yaml:"searchLimit"`
	ScrapeConcurrency int    `yaml:"scrapeConcurrency"`
	MinContentLength  int    `yaml:"minContentLength"`
}

// FilterConfig is the URL blocklist applied before scraping.
type FilterConfig struct {
	BlockedDomains  []string `yaml:"blockedDomains"`
	BlockedPatterns []string `yaml:"blockedPatterns"`
}

// ScoringConfig drives source scoring and selection.
type ScoringConfig struct {
	TrustTable map[string]float64 `yaml:"trustTable"`
	// DefaultTrust applies to domains absent from the trust table.
	DefaultTrust float64               `yaml:"defaultTrust"`
	Weights      domain.ScoringWeights `yaml:"weights"`
	TopN         int                   `yaml:"topN"`
	// RelevanceSaturation is the k in count/(count+k); larger k means more
	// keyword hits are needed to approach 1.0.
	RelevanceSaturation float64 `yaml:"relevanceSaturation"`
	// DepthMin..DepthSaturation is the linear ramp of the depth score;
	// DepthMin normally matches the minimum-content-length gate.
	DepthMin        int `yaml:"depthMin"`
	DepthSaturation int `yaml:"depthSaturation"`
}

// ProviderConfig describes one LLM backend.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"baseUrl"`
	// APIKeyEnv names the environment variable holding the credential; the
	// key itself never appears in YAML or logs.
	APIKeyEnv string   `yaml:"apiKeyEnv"`
	Models    []string `yaml:"models"`
	// SlashModels routes any "vendor/model" namespaced identifier here.
	SlashModels bool `yaml:"slashModels"`
}

// StageModels names the primary and optional fallback model for one stage.
type StageModels struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback"`
}

// StagesConfig maps each LLM stage to its models.
type StagesConfig struct {
	ExtractPrompts  StageModels `yaml:"extractPrompts"`
	GenerateArticle StageModels `yaml:"generateArticle"`
	EditorialReview StageModels `yaml:"editorialReview"`
	// ExtractConcurrency bounds parallel per-source extraction calls.
	ExtractConcurrency int `yaml:"extractConcurrency"`
}

// RetryConfig shapes the invoker state machine.
type RetryConfig struct {
	MaxAttempts    int   `yaml:"maxAttempts"`
	BackoffSeconds []int `yaml:"backoffSeconds"`
	AttemptTimeout int   `yaml:"attemptTimeoutSeconds"`
}

// Backoff returns the delay after the given 1-based failed attempt; the
// schedule is clamped to its last entry.
func (r RetryConfig) Backoff(attempt int) time.Duration {
	if len(r.BackoffSeconds) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.BackoffSeconds) {
		idx = len(r.BackoffSeconds) - 1
	}
	return time.Duration(r.BackoffSeconds[idx]) * time.Second
}

// AttemptTimeoutDuration converts the configured seconds to a duration.
func (r RetryConfig) AttemptTimeoutDuration() time.Duration {
	return time.Duration(r.AttemptTimeout) * time.Second
}

// WordPressConfig wires the CMS publisher.
type WordPressConfig struct {
	APIURL      string `yaml:"apiUrl"`
	Username    string `yaml:"username"`
	AppPassword string `yaml:"-"`
	Category    string `yaml:"category"`
	Status      string `yaml:"status"`
}

// DatabaseConfig describes the optional Postgres run history.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// BatchConfig controls the sequential topic loop.
type BatchConfig struct {
	RetryAttempts     int    `yaml:"retryAttempts"`
	RetryDelaySeconds int    `yaml:"retryDelaySeconds"`
	StateDir          string `yaml:"stateDir"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(firecrawlKeyEnv); v != "" {
		c.Firecrawl.APIKey = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(wordpressPassEnv); v != "" {
		c.WordPress.AppPassword = v
	}
	if v := os.Getenv(wordpressUserEnv); v != "" {
		c.WordPress.Username = v
	}
	if v := os.Getenv(wordpressAPIURLEnv); v != "" {
		c.WordPress.APIURL = v
	}
}

// Validate performs the fail-fast checks that must abort the run before any
// network call is made.
func (c Config) Validate() error {
	w := c.Scoring.Weights
	if w.Trust < 0 || w.Relevance < 0 || w.Depth < 0 {
		return domain.NewConfigurationError("scoring weights must be non-negative, got %v/%v/%v",
			w.Trust, w.Relevance, w.Depth)
	}
	if c.Scoring.TopN <= 0 {
		return domain.NewConfigurationError("scoring topN must be positive, got %d", c.Scoring.TopN)
	}
	if c.Retry.MaxAttempts <= 0 {
		return domain.NewConfigurationError("retry maxAttempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	if len(c.Providers) == 0 {
		return domain.NewConfigurationError("at least one provider must be configured")
	}
	names := map[string]bool{}
	for _, p := range c.Providers {
		if p.Name == "" {
			return domain.NewConfigurationError("provider with empty name")
		}
		if p.APIKeyEnv == "" {
			return domain.NewConfigurationError("provider %s has no apiKeyEnv", p.Name)
		}
		names[p.Name] = true
	}
	if c.DefaultProvider != "" && !names[c.DefaultProvider] {
		return domain.NewConfigurationError("default provider %s is not configured", c.DefaultProvider)
	}
	if c.Stages.ExtractPrompts.Primary == "" ||
		c.Stages.GenerateArticle.Primary == "" ||
		c.Stages.EditorialReview.Primary == "" {
		return domain.NewConfigurationError("every stage needs a primary model")
	}
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Output.Dir != "" {
		base.Output = override.Output
	}

	if override.Firecrawl.BaseURL != "" {
		base.Firecrawl.BaseURL = override.Firecrawl.BaseURL
	}
	if override.Firecrawl.SearchLimit > 0 {
		base.Firecrawl.SearchLimit = override.Firecrawl.SearchLimit
	}
	if override.Firecrawl.ScrapeConcurrency > 0 {
		base.Firecrawl.ScrapeConcurrency = override.Firecrawl.ScrapeConcurrency
	}
	if override.Firecrawl.MinContentLength > 0 {
		base.Firecrawl.MinContentLength = override.Firecrawl.MinContentLength
	}

	if len(override.Filter.BlockedDomains) > 0 {
		base.Filter.BlockedDomains = override.Filter.BlockedDomains
	}
	if len(override.Filter.BlockedPatterns) > 0 {
		base.Filter.BlockedPatterns = override.Filter.BlockedPatterns
	}

	if len(override.Scoring.TrustTable) > 0 {
		base.Scoring.TrustTable = override.Scoring.TrustTable
	}
	if override.Scoring.DefaultTrust > 0 {
		base.Scoring.DefaultTrust = override.Scoring.DefaultTrust
	}
	if override.Scoring.Weights != (domain.ScoringWeights{}) {
		base.Scoring.Weights = override.Scoring.Weights
	}
	if override.Scoring.TopN > 0 {
		base.Scoring.TopN = override.Scoring.TopN
	}
	if override.Scoring.RelevanceSaturation > 0 {
		base.Scoring.RelevanceSaturation = override.Scoring.RelevanceSaturation
	}
	if override.Scoring.DepthMin > 0 {
		base.Scoring.DepthMin = override.Scoring.DepthMin
	}
	if override.Scoring.DepthSaturation > 0 {
		base.Scoring.DepthSaturation = override.Scoring.DepthSaturation
	}

	if len(override.Providers) > 0 {
		base.Providers = override.Providers
	}
	if override.DefaultProvider != "" {
		base.DefaultProvider = override.DefaultProvider
	}

	if override.Stages.ExtractPrompts.Primary != "" {
		base.Stages.ExtractPrompts = override.Stages.ExtractPrompts
	}
	if override.Stages.GenerateArticle.Primary != "" {
		base.Stages.GenerateArticle = override.Stages.GenerateArticle
	}
	if override.Stages.EditorialReview.Primary != "" {
		base.Stages.EditorialReview = override.Stages.EditorialReview
	}
	if override.Stages.ExtractConcurrency > 0 {
		base.Stages.ExtractConcurrency = override.Stages.ExtractConcurrency
	}

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if len(override.Retry.BackoffSeconds) > 0 {
		base.Retry.BackoffSeconds = override.Retry.BackoffSeconds
	}
	if override.Retry.AttemptTimeout > 0 {
		base.Retry.AttemptTimeout = override.Retry.AttemptTimeout
	}

	if override.WordPress.APIURL != "" {
		base.WordPress.APIURL = override.WordPress.APIURL
	}
	if override.WordPress.Username != "" {
		base.WordPress.Username = override.WordPress.Username
	}
	if override.WordPress.Category != "" {
		base.WordPress.Category = override.WordPress.Category
	}
	if override.WordPress.Status != "" {
		base.WordPress.Status = override.WordPress.Status
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Batch.RetryAttempts > 0 {
		base.Batch.RetryAttempts = override.Batch.RetryAttempts
	}
	if override.Batch.RetryDelaySeconds > 0 {
		base.Batch.RetryDelaySeconds = override.Batch.RetryDelaySeconds
	}
	if override.Batch.StateDir != "" {
		base.Batch.StateDir = override.Batch.StateDir
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Output:  OutputConfig{Dir: "output"},
		Firecrawl: FirecrawlConfig{
			BaseURL:           "https://api.firecrawl.dev/v2",
			SearchLimit:       20,
			ScrapeConcurrency: 5,
			MinContentLength:  10000,
		},
		Scoring: ScoringConfig{
			TrustTable:          map[string]float64{},
			DefaultTrust:        1.0,
			Weights:             domain.ScoringWeights{Trust: 0.5, Relevance: 0.3, Depth: 0.2},
			TopN:                5,
			RelevanceSaturation: 10,
			DepthMin:            10000,
			DepthSaturation:     40000,
		},
		Providers: []ProviderConfig{
			{
				Name:      "deepseek",
				BaseURL:   "https://api.deepseek.com",
				APIKeyEnv: deepseekKeyEnv,
				Models:    []string{"deepseek-chat", "deepseek-reasoner"},
			},
			{
				Name:        "openrouter",
				APIKeyEnv:   openRouterKeyEnv,
				SlashModels: true,
			},
		},
		DefaultProvider: "deepseek",
		Stages: StagesConfig{
			ExtractPrompts:     StageModels{Primary: "deepseek-reasoner", Fallback: "deepseek/deepseek-chat-v3-0324"},
			GenerateArticle:    StageModels{Primary: "deepseek-reasoner", Fallback: "deepseek/deepseek-chat-v3-0324"},
			EditorialReview:    StageModels{Primary: "deepseek-chat"},
			ExtractConcurrency: 3,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BackoffSeconds: []int{2, 5, 10},
			AttemptTimeout: 300,
		},
		WordPress: WordPressConfig{
			Category: "prompts",
			Status:   "draft",
		},
		Batch: BatchConfig{
			RetryAttempts:     2,
			RetryDelaySeconds: 60,
			StateDir:          "batch_state",
		},
	}
}
