package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Console flag and key names.
const (
	KeyServer      = "server"
	KeyCampaign    = "campaign"
	KeyOrientation = "orientation"
	KeyResolution  = "resolution"
	KeyOffline     = "offline"
	KeySeed        = "seed"
	KeyDragDelay   = "drag-delay"
	KeyLogLevel    = "log-level"
)

// Console is the operator console configuration.
type Console struct {
	ServerURL   string
	CampaignID  int64
	Orientation string
	Resolution  string
	Offline     bool
	SeedFile    string
	DragDelay   time.Duration
	LogLevel    slog.Level
	ConfigFile  string
}

// ConsoleFlags registers the console's persistent flags.
func ConsoleFlags(flags *pflag.FlagSet) {
	flags.String(KeyServer, "http://localhost:8080", "content server base URL")
	flags.Int64(KeyCampaign, 1, "campaign to sequence")
	flags.String(KeyOrientation, "HORIZONTAL", "screen orientation (HORIZONTAL or VERTICAL)")
	flags.String(KeyResolution, "1920x1080", "screen resolution")
	flags.Bool(KeyOffline, false, "use an in-memory gateway instead of the server")
	flags.String(KeySeed, "", "seed file loaded into the in-memory gateway when offline")
	flags.Duration(KeyDragDelay, 3*time.Second, "delay before drag and drop is attached")
	flags.String(KeyLogLevel, "info", "log level (debug, info, warn, error)")
}

// LoadConsole resolves the console configuration from flags, STUDIO_* environment
// variables, .env and an optional .studio.yaml, in that order of precedence.
func LoadConsole(flags *pflag.FlagSet, configFile string) (*Console, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".studio")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Console{
		ServerURL:   v.GetString(KeyServer),
		CampaignID:  v.GetInt64(KeyCampaign),
		Orientation: strings.ToUpper(v.GetString(KeyOrientation)),
		Resolution:  v.GetString(KeyResolution),
		Offline:     v.GetBool(KeyOffline),
		SeedFile:    v.GetString(KeySeed),
		DragDelay:   v.GetDuration(KeyDragDelay),
		ConfigFile:  v.ConfigFileUsed(),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Console) Validate() error {
	if !c.Offline && strings.TrimSpace(c.ServerURL) == "" {
		return fmt.Errorf("server URL is required unless offline")
	}

	if c.CampaignID <= 0 {
		return fmt.Errorf("campaign must be positive")
	}

	if c.Orientation != "HORIZONTAL" && c.Orientation != "VERTICAL" {
		return fmt.Errorf("orientation must be HORIZONTAL or VERTICAL")
	}

	if !strings.Contains(strings.ToLower(c.Resolution), "x") {
		return fmt.Errorf("resolution must look like 1920x1080")
	}

	if c.DragDelay < 0 {
		return fmt.Errorf("drag delay cannot be negative")
	}

	if c.SeedFile != "" && !c.Offline {
		return fmt.Errorf("seed file requires offline mode")
	}

	return nil
}
