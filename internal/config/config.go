package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/iamwavecut/swearbot/internal/errors"
)

const envPrefix = "SB_"

type (
	Config struct {
		DiscordToken    string   `env:"DISCORD_TOKEN,required"`
		EnabledHandlers []string `env:"HANDLERS,default=reactor,moderator"`
		LogLevel        int      `env:"LOG_LEVEL,default=4"`
		DotPath         string   `env:"DOT_PATH,default=~/.swearbot"`
		MaxConcurrency  int      `env:"MAX_CONCURRENCY,default=64"`
		MetricsAddr     string   `env:"METRICS_ADDR,default=:2112"`
		Classifier      Classifier
		Moderation      Moderation
		Reactor         Reactor
	}

	Classifier struct {
		Enabled    bool          `env:"CLASSIFIER_ENABLED,default=true"`
		APIKey     string        `env:"GOOGLE_API_KEY"`
		Endpoint   string        `env:"CLASSIFIER_URL,default=https://commentanalyzer.googleapis.com/"`
		Timeout    time.Duration `env:"CLASSIFIER_TIMEOUT,default=5s"`
		Threshold  float64       `env:"CLASSIFIER_THRESHOLD,default=0.7"`
		Languages  []string      `env:"CLASSIFIER_LANGUAGES"`
		DoNotStore bool          `env:"CLASSIFIER_DO_NOT_STORE,default=false"`
	}

	Moderation struct {
		GuildID         uint64        `env:"MODERATION_GUILD_ID,default=0"`
		UsersFile       string        `env:"USERS_FILE,default=users"`
		PatternsFile    string        `env:"PATTERNS_FILE,default=patterns"`
		Strikes         int           `env:"STRIKES,default=3"`
		WarningEmoji    string        `env:"WARNING_EMOJI,default=‼"`
		WarningMessage  string        `env:"WARNING_MESSAGE,default=Stop swearing. You need a {{ .minutes }}-minute timeout."`
		TimeoutDuration time.Duration `env:"TIMEOUT_DURATION,default=5m"`
	}

	Reactor struct {
		GuildID  uint64 `env:"REACTOR_GUILD_ID,default=316738004335067139"`
		Emoji    string `env:"REACTOR_EMOJI,default=antisga:1171493411270967447"`
		GifsFile string `env:"GIFS_FILE,default=gifs"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// Load reads the configuration once per process: an optional .env file,
// then SB_ prefixed environment variables.
func Load() (Config, error) {
	once.Do(func() {
		cfg, err := load(envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func load(lookuper envconfig.Lookuper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
		return nil, fmt.Errorf("%w: process env config: %w", apperrors.ErrStartupConfig, err)
	}

	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("%w: expand dot path: %w", apperrors.ErrStartupConfig, err)
	}
	cfg.DotPath = dotPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the constraints envconfig tags cannot express.
func (c *Config) Validate() error {
	switch {
	case c.DiscordToken == "":
		return fmt.Errorf("%w: discord token is required", apperrors.ErrStartupConfig)
	case c.Classifier.Enabled && c.Classifier.APIKey == "":
		return fmt.Errorf("%w: %sGOOGLE_API_KEY is required while the classifier is enabled", apperrors.ErrStartupConfig, envPrefix)
	case c.Classifier.Threshold <= 0 || c.Classifier.Threshold > 1:
		return fmt.Errorf("%w: classifier threshold %v is outside (0, 1]", apperrors.ErrStartupConfig, c.Classifier.Threshold)
	case c.Classifier.Timeout <= 0:
		return fmt.Errorf("%w: classifier timeout must be positive", apperrors.ErrStartupConfig)
	case c.Moderation.Strikes < 1 || c.Moderation.Strikes > 255:
		return fmt.Errorf("%w: strikes must be within [1, 255], got %d", apperrors.ErrStartupConfig, c.Moderation.Strikes)
	case c.Moderation.TimeoutDuration <= 0:
		return fmt.Errorf("%w: timeout duration must be positive", apperrors.ErrStartupConfig)
	case c.Moderation.WarningEmoji == "":
		return fmt.Errorf("%w: warning emoji is required", apperrors.ErrStartupConfig)
	}
	return nil
}
