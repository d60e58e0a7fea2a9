// Package config loads settings.toml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"promptbuddies/browser"
	"promptbuddies/provider"
)

type TargetConfig struct {
	URL      string `toml:"url"`
	Login    string `toml:"login"`
	Password string `toml:"password"`
	OTP      string `toml:"otp"`
	// SeedText stands in for the target's greeting when writing the
	// opening utterance.
	SeedText string `toml:"seed_text"`
}

// JudgeConfig overrides the generation backend for the strategy selector.
// Empty fields are inherited from [llm].
type JudgeConfig struct {
	Provider    string  `toml:"provider"`
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
}

type LLMConfig struct {
	Provider      string      `toml:"provider"`
	BaseURL       string      `toml:"base_url"`
	APIKey        string      `toml:"api_key"`
	Model         string      `toml:"model"`
	Temperature   float64     `toml:"temperature"`
	MaxTokens     int64       `toml:"max_tokens"`
	Window        int         `toml:"window"`
	MaxToolRounds int         `toml:"max_tool_rounds"`
	Judge         JudgeConfig `toml:"judge"`
}

type PersonasConfig struct {
	// Catalog is a directory with system_prompts.json and examples.json.
	// Empty uses the built-in catalog.
	Catalog     string `toml:"catalog"`
	Cooperative string `toml:"cooperative"`
	Adversarial string `toml:"adversarial"`
	AddExamples bool   `toml:"add_examples"`
}

type ToolsConfig struct {
	Enabled         bool   `toml:"enabled"`
	TransactionsCSV string `toml:"transactions_csv"`
	SkipRows        int    `toml:"skip_rows"`
	// Command runs an external MCP tool server instead of the built-in
	// backend.
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type BrowserConfig struct {
	Headless            bool              `toml:"headless"`
	DebuggerURL         string            `toml:"debugger_url"`
	Bin                 string            `toml:"bin"`
	PollIntervalMs      int               `toml:"poll_interval_ms"`
	NavigationTimeoutMs int               `toml:"navigation_timeout_ms"`
	Selectors           browser.Selectors `toml:"selectors"`
}

type SessionConfig struct {
	DataDir               string `toml:"data_dir"`
	MaxRestarts           int    `toml:"max_restarts"`
	RestartDelayMs        int    `toml:"restart_delay_ms"`
	MaxGenerationFailures int    `toml:"max_generation_failures"`
}

type LogConfig struct {
	Debug bool   `toml:"debug"`
	Level string `toml:"level"`
	// File adds a log file sink; relative paths live under the data dir.
	File string `toml:"file"`
}

type Config struct {
	Target   TargetConfig   `toml:"target"`
	LLM      LLMConfig      `toml:"llm"`
	Personas PersonasConfig `toml:"personas"`
	Tools    ToolsConfig    `toml:"tools"`
	Browser  BrowserConfig  `toml:"browser"`
	Session  SessionConfig  `toml:"session"`
	Log      LogConfig      `toml:"log"`
}

// apiKeyEnv is consulted when no key is configured for a provider.
var apiKeyEnv = map[provider.ProviderType]string{
	provider.ProviderTypeOpenAI:     "OPENAI_API_KEY",
	provider.ProviderTypeTogether:   "TOGETHER_API_KEY",
	provider.ProviderTypeOpenRouter: "OPENROUTER_API_KEY",
	provider.ProviderTypeAnthropic:  "ANTHROPIC_API_KEY",
}

// Load reads the settings file at path, or the default location when path
// is empty. A missing file is created from the commented template and the
// defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetSettingsFilePath()
	}
	path = ExpandPath(path)
	cfg := Default()

	if !FileExists(path) {
		if err := writeTemplate(path); err != nil {
			return nil, fmt.Errorf("failed to create settings: %w", err)
		}
	} else {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown settings in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func writeTemplate(path string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	// 0600: the file may end up holding credentials
	return os.WriteFile(path, []byte(GenerateTemplate()), 0600)
}

func (c *Config) applyEnvOverrides() {
	set := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	set(&c.Target.URL, "PB_TARGET_URL")
	set(&c.Target.Login, "PB_LOGIN")
	set(&c.Target.Password, "PB_PASSWORD")
	set(&c.LLM.APIKey, "PB_LLM_API_KEY")
	set(&c.LLM.Model, "PB_LLM_MODEL")
	set(&c.Session.DataDir, "PB_DATA_DIR")
	if CheckDebug() {
		c.Log.Debug = true
	}
}

// CheckDebug reports whether PB_DEBUG asks for debug logging.
func CheckDebug() bool {
	v, err := strconv.ParseBool(os.Getenv("PB_DEBUG"))
	return err == nil && v
}

// Validate reports the first setting a run cannot do without.
func (c *Config) Validate() error {
	switch {
	case c.Target.URL == "":
		return errors.New("target.url is required")
	case c.Target.Login == "":
		return errors.New("target.login is required (or set PB_LOGIN)")
	case c.Target.Password == "":
		return errors.New("target.password is required (or set PB_PASSWORD)")
	case c.Personas.Cooperative == "":
		return errors.New("personas.cooperative is required")
	case c.Personas.Adversarial == "":
		return errors.New("personas.adversarial is required")
	case c.Browser.PollIntervalMs <= 0:
		return errors.New("browser.poll_interval_ms must be positive")
	}
	if err := checkProvider("llm", c.GenerationProvider()); err != nil {
		return err
	}
	return checkProvider("llm.judge", c.JudgeProvider())
}

func checkProvider(section string, p provider.Config) error {
	switch p.Type {
	case provider.ProviderTypeOllama:
	case provider.ProviderTypeOpenAI, provider.ProviderTypeTogether,
		provider.ProviderTypeOpenRouter, provider.ProviderTypeAnthropic:
		if p.APIKey == "" {
			return fmt.Errorf("%s: api key for %s is required (or set PB_LLM_API_KEY)", section, p.Type)
		}
	default:
		return fmt.Errorf("%s: unknown provider %q", section, p.Type)
	}
	if p.Model == "" {
		return fmt.Errorf("%s.model is required", section)
	}
	return nil
}

// GenerationProvider is the backend configuration for persona generators.
func (c *Config) GenerationProvider() provider.Config {
	kind := provider.MapProviderIDToType(c.LLM.Provider)
	return provider.Config{
		Type:        kind,
		BaseURL:     c.LLM.BaseURL,
		Model:       c.LLM.Model,
		APIKey:      keyOrEnv(c.LLM.APIKey, kind),
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	}
}

// JudgeProvider is the backend configuration for the strategy selector.
// Switching the judge to another provider does not carry over the base URL
// or key of the generation backend.
func (c *Config) JudgeProvider() provider.Config {
	j := c.LLM.Judge
	gen := c.GenerationProvider()
	if j.Provider == "" || provider.MapProviderIDToType(j.Provider) == gen.Type {
		gen.Temperature = j.Temperature
		if j.BaseURL != "" {
			gen.BaseURL = j.BaseURL
		}
		if j.APIKey != "" {
			gen.APIKey = j.APIKey
		}
		if j.Model != "" {
			gen.Model = j.Model
		}
		return gen
	}

	kind := provider.MapProviderIDToType(j.Provider)
	m := j.Model
	if m == "" {
		m = gen.Model
	}
	return provider.Config{
		Type:        kind,
		BaseURL:     j.BaseURL,
		Model:       m,
		APIKey:      keyOrEnv(j.APIKey, kind),
		Temperature: j.Temperature,
	}
}

func keyOrEnv(key string, kind provider.ProviderType) string {
	if key != "" {
		return key
	}
	if name, ok := apiKeyEnv[kind]; ok {
		return os.Getenv(name)
	}
	return ""
}

// DataDir is the expanded session data directory.
func (c *Config) DataDir() string {
	if c.Session.DataDir == "" {
		return GetDefaultDataDir()
	}
	return ExpandPath(c.Session.DataDir)
}

// TranscriptDir holds the JSONL conversation logs.
func (c *Config) TranscriptDir() string {
	return filepath.Join(c.DataDir(), "logs")
}

// TransactionsPath is the expanded dataset path, empty when unset.
func (c *Config) TransactionsPath() string {
	return ExpandPath(c.Tools.TransactionsCSV)
}

// CatalogDir is the expanded persona catalog directory, empty for the
// built-in catalog.
func (c *Config) CatalogDir() string {
	return ExpandPath(c.Personas.Catalog)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Browser.PollIntervalMs) * time.Millisecond
}

func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Browser.NavigationTimeoutMs) * time.Millisecond
}

func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.Session.RestartDelayMs) * time.Millisecond
}
