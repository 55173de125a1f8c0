package commands

import (
	"fmt"
	"os"

	"github.com/biodoia/goleapcouncil/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCmd rappresenta il comando config
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View, validate and generate LLM Council configuration files.`,
	Example: `  # Show current configuration
  council config show

  # Validate configuration file
  council config validate -c config.yaml

  # Generate template configuration
  council config generate -o config.yaml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults, file and environment.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate template configuration",
	Long:  `Generate a configuration file holding every option with its default value.`,
	RunE:  runConfigGenerate,
}

var configOutput string

func init() {
	configGenerateCmd.Flags().StringVarP(&configOutput, "output", "o", "", "Output file path (stdout if not specified)")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configGenerateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Le chiavi API non vanno stampate
	for i := range cfg.Providers {
		if cfg.Providers[i].APIKey != "" {
			cfg.Providers[i].APIKey = "********"
		}
	}
	cfg.Redis.Password = ""

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("# Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Println("✗ Failed to load configuration")
		return err
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println("✗ Configuration validation failed")
		return err
	}

	fmt.Println("✓ Configuration is valid")
	fmt.Println()
	fmt.Println("Configuration summary:")
	fmt.Printf("  Server:     %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Database:   %s (%s)\n", cfg.Database.Type, cfg.Database.Connection)
	fmt.Printf("  Council:    %v\n", cfg.Council.Models)
	fmt.Printf("  Chairman:   %s\n", cfg.Council.Chairman)
	fmt.Printf("  Redis:      %v\n", cfg.Redis.Enabled)
	fmt.Printf("  Prometheus: %v\n", cfg.Monitoring.Prometheus.Enabled)
	return nil
}

func runConfigGenerate(cmd *cobra.Command, args []string) error {
	output, err := generateTemplate(config.Default())
	if err != nil {
		return err
	}

	if configOutput == "" {
		fmt.Print(output)
		return nil
	}

	if err := os.WriteFile(configOutput, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Printf("✓ Configuration template generated: %s\n", configOutput)
	return nil
}

// generateTemplate serializza cfg in YAML con un'intestazione
func generateTemplate(cfg *config.Config) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# LLM Council Configuration File
#
# Every key can be overridden with an environment variable prefixed
# with COUNCIL_, e.g. COUNCIL_SERVER_PORT=9000.
# GROQ_API_KEY fills the api_key of the "groq" provider.

`
	return header + string(data), nil
}
