package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var modelsProvider string

// ModelsCmd elenca i modelli esposti da un provider
var ModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available from a provider",
	Example: `  # List models of the default provider
  council models

  # List models of a specific provider
  council models --provider openrouter`,
	RunE: runModels,
}

func init() {
	ModelsCmd.Flags().StringVarP(&modelsProvider, "provider", "p", "", "Provider name (default: first configured)")
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger("warn", true)

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	name := modelsProvider
	if name == "" {
		name = cfg.Providers[0].Name
	}
	provider, err := registry.Get(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	models, err := provider.GetModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	fmt.Println(headerStyle.Render(fmt.Sprintf("Models available from %s (%d)", name, len(models))))
	for _, m := range models {
		owner := m.OwnedBy
		if owner == "" {
			owner = "-"
		}
		fmt.Printf("  %-48s %s\n", m.ID, labelStyle.Render(owner))
	}
	return nil
}
