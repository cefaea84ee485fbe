package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBackendURL = "https://workunit.app/mcp"
	DefaultTokenURL   = "https://workunit.app/oauth/token"
	LocalBackendURL   = "http://localhost:9000/mcp"
	LocalTokenURL     = "http://localhost:3000/oauth/token"
)

type Config struct {
	Inference Inference `yaml:"inference"`
	Backend   Backend   `yaml:"backend"`
	Run       Run       `yaml:"run"`
	Results   Results   `yaml:"results"`
	Metrics   Metrics   `yaml:"metrics"`
}

type Inference struct {
	// Host is the LM Studio host:port.
	Host          string `yaml:"host"`
	APIKey        string `yaml:"api_key"`
	ContextLength int    `yaml:"context_length"`
	MaxTokens     int    `yaml:"max_tokens"`
}

type Backend struct {
	URL          string     `yaml:"url"`
	TokenURL     string     `yaml:"token_url"`
	ClientID     string     `yaml:"client_id"`
	Token        string     `yaml:"token"`
	RefreshToken string     `yaml:"refresh_token"`
	CallTimeoutS int        `yaml:"call_timeout_s"`
	Container    *Container `yaml:"container"`
}

// Container configures a local backend container recreated per model.
type Container struct {
	Image         string            `yaml:"image"`
	Name          string            `yaml:"name"`
	Command       []string          `yaml:"command"`
	Env           map[string]string `yaml:"env"`
	Addr          string            `yaml:"addr"`
	ReadyTimeoutS int               `yaml:"ready_timeout_s"`
}

type Run struct {
	TasksDir        string `yaml:"tasks_dir"`
	ModelsFile      string `yaml:"models_file"`
	TaskTimeoutS    int    `yaml:"task_timeout_s"`
	RepairArguments bool   `yaml:"repair_arguments"`
	Levels          []int  `yaml:"levels"`
	// Vars fill {{key}} placeholders in task prompts.
	Vars map[string]string `yaml:"vars"`
}

type Results struct {
	Dir string `yaml:"dir"`
	// RepoDir is the git work tree results are committed into.
	RepoDir string `yaml:"repo_dir"`
	Git     bool   `yaml:"git"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{Results: Results{Git: true}}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := &Config{Results: Results{Git: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func applyDefaults(cfg *Config) {
	if cfg.Inference.Host == "" {
		cfg.Inference.Host = "localhost:1234"
	}
	if cfg.Inference.APIKey == "" {
		cfg.Inference.APIKey = "lm-studio"
	}
	if cfg.Inference.ContextLength == 0 {
		cfg.Inference.ContextLength = 8192
	}
	if cfg.Inference.MaxTokens == 0 {
		cfg.Inference.MaxTokens = 4096
	}
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = DefaultBackendURL
	}
	if cfg.Backend.TokenURL == "" {
		cfg.Backend.TokenURL = DefaultTokenURL
	}
	if cfg.Backend.CallTimeoutS == 0 {
		cfg.Backend.CallTimeoutS = 60
	}
	if c := cfg.Backend.Container; c != nil && c.ReadyTimeoutS == 0 {
		c.ReadyTimeoutS = 60
	}
	if cfg.Run.TasksDir == "" {
		cfg.Run.TasksDir = "tasks"
	}
	if cfg.Run.ModelsFile == "" {
		cfg.Run.ModelsFile = "models.txt"
	}
	if cfg.Run.TaskTimeoutS == 0 {
		cfg.Run.TaskTimeoutS = 300
	}
	if len(cfg.Run.Levels) == 0 {
		cfg.Run.Levels = []int{0, 1, 2}
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	if cfg.Results.RepoDir == "" {
		cfg.Results.RepoDir = "."
	}
}

func validate(cfg *Config) error {
	if cfg.Run.TaskTimeoutS < 1 {
		return fmt.Errorf("run.task_timeout_s must be at least 1")
	}
	if cfg.Backend.CallTimeoutS < 1 {
		return fmt.Errorf("backend.call_timeout_s must be at least 1")
	}
	if cfg.Backend.CallTimeoutS > cfg.Run.TaskTimeoutS {
		return fmt.Errorf("backend.call_timeout_s (%d) exceeds run.task_timeout_s (%d)",
			cfg.Backend.CallTimeoutS, cfg.Run.TaskTimeoutS)
	}
	for _, l := range cfg.Run.Levels {
		if l < 0 || l > 2 {
			return fmt.Errorf("run.levels: unknown level %d", l)
		}
	}
	if c := cfg.Backend.Container; c != nil && c.Image == "" {
		return fmt.Errorf("backend.container.image is required")
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. getenv is usually
// os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	str("LMSTUDIO_HOST", &cfg.Inference.Host)
	str("MCP_URL", &cfg.Backend.URL)
	str("OAUTH_TOKEN_URL", &cfg.Backend.TokenURL)
	str("WORKUNIT_OAUTH_CLIENT_ID", &cfg.Backend.ClientID)
	str("WORKUNIT_TOKEN", &cfg.Backend.Token)
	str("WORKUNIT_REFRESH_TOKEN", &cfg.Backend.RefreshToken)
	if err := num("MCP_CALL_TIMEOUT", &cfg.Backend.CallTimeoutS); err != nil {
		return err
	}
	if err := num("TASK_TIMEOUT_S", &cfg.Run.TaskTimeoutS); err != nil {
		return err
	}
	return validate(cfg)
}

// UseLocal points the backend at the local development stack.
func UseLocal(cfg *Config) {
	cfg.Backend.URL = LocalBackendURL
	cfg.Backend.TokenURL = LocalTokenURL
}

func (b Backend) CallTimeout() time.Duration { return time.Duration(b.CallTimeoutS) * time.Second }

func (r Run) TaskTimeout() time.Duration { return time.Duration(r.TaskTimeoutS) * time.Second }
