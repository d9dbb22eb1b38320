package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "signal-fusion"
)

type Config struct {
	Search     *SearchConfig     `mapstructure:"search"`
	Fusion     *FusionConfig     `mapstructure:"fusion"`
	AI         *AIConfig         `mapstructure:"ai"`
	Database   *DatabaseConfig   `mapstructure:"database"`
	Collectors *CollectorsConfig `mapstructure:"collectors"`
}

type SearchConfig struct {
	Industry  string `mapstructure:"industry"`
	RoleLevel string `mapstructure:"role-level"`
}

type FusionConfig struct {
	MinScore float64 `mapstructure:"min-score"`
	Limit    int     `mapstructure:"limit"`
}

type AIConfig struct {
	Provider  string           `mapstructure:"provider"`
	Gemini    *GeminiConfig    `mapstructure:"gemini"`
	Anthropic *AnthropicConfig `mapstructure:"anthropic"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type AnthropicConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxTokens    int    `mapstructure:"max-tokens"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type CollectorsConfig struct {
	Apify       *ApifyConfig       `mapstructure:"apify"`
	ListenNotes *ListenNotesConfig `mapstructure:"listen-notes"`
}

type ApifyConfig struct {
	TokenFile  string `mapstructure:"token-file"`
	MaxResults int    `mapstructure:"max-results"`
}

type ListenNotesConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	MaxResults int    `mapstructure:"max-results"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "signal-fusion is a cli for detecting executives open to opportunities and scoring them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.anthropic.api-key-file", "ANTHROPIC_API_KEY_FILE"); err != nil {
		log.Fatalf("binding ANTHROPIC_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("database.path", "SIGNAL_FUSION_DB"); err != nil {
		log.Fatalf("binding SIGNAL_FUSION_DB environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is signal-fusion.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	// Local .env files keep API key file paths out of the yaml config.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
