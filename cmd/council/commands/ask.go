package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biodoia/goleapcouncil/internal/council"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	askJSON     bool
	askModels   []string
	askChairman string
)

// AskCmd esegue una singola run del council dal terminale
var AskCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the council a single question",
	Long: `Run the three council stages for one question and print every stage.
Nothing is stored in the database.`,
	Example: `  # Ask with the configured council
  council ask "What is the CAP theorem?"

  # Override members and chairman
  council ask --models llama-3.1-8b-instant,openai/gpt-oss-20b --chairman llama-3.3-70b-versatile "Explain RAFT"

  # Machine readable output
  council ask --json "Is P equal to NP?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	AskCmd.Flags().BoolVar(&askJSON, "json", false, "Print the result as JSON")
	AskCmd.Flags().StringSliceVar(&askModels, "models", nil, "Council members (comma separated)")
	AskCmd.Flags().StringVar(&askChairman, "chairman", "", "Chairman model")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg.Monitoring.Logging.Level, true)

	councilCfg := cfg.CouncilConfig()
	if len(askModels) > 0 {
		councilCfg.Models = askModels
	}
	if askChairman != "" {
		councilCfg.Chairman = askChairman
	}

	st, err := buildStack(cfg, councilCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	query := strings.Join(args, " ")
	result := st.council.Run(context.Background(), query, nil)

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	renderResult(os.Stdout, query, result)
	if result.Failed() {
		return result.Err
	}
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Bold(true).
			MarginTop(1)
	modelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF10F0")).
			Bold(true)
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080"))
	finalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

// renderResult stampa i tre stage in forma leggibile
func renderResult(w io.Writer, query string, result *council.Result) {
	fmt.Fprintln(w, labelStyle.Render("Question: ")+query)

	if result.Failed() {
		fmt.Fprintln(w, errorStyle.Render(result.Stage3.Response))
		return
	}

	fmt.Fprintln(w, headerStyle.Render("Stage 1: Individual Responses"))
	for _, answer := range result.Stage1 {
		fmt.Fprintln(w, modelStyle.Render(answer.Model))
		fmt.Fprintln(w, answer.Response)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, headerStyle.Render("Stage 2: Peer Rankings"))
	for _, ranking := range result.Stage2 {
		labels := make([]string, 0, len(ranking.ParsedRanking))
		for _, label := range ranking.ParsedRanking {
			if model, ok := result.Metadata.LabelToModel.Model(label); ok {
				label = fmt.Sprintf("%s (%s)", label, model)
			}
			labels = append(labels, label)
		}
		fmt.Fprintf(w, "%s %s\n", modelStyle.Render(ranking.Model+":"), strings.Join(labels, " > "))
	}

	fmt.Fprintln(w, headerStyle.Render("Aggregate Rankings"))
	fmt.Fprintf(w, "%-4s %-36s %8s %8s\n", "#", "MODEL", "AVG", "VOTES")
	for i, entry := range result.Metadata.AggregateRankings {
		fmt.Fprintf(w, "%-4d %-36s %8.2f %8d\n", i+1, entry.Model, entry.AverageRank, entry.RankingsCount)
	}

	fmt.Fprintln(w, headerStyle.Render("Stage 3: Final Answer ("+result.Stage3.Model+")"))
	fmt.Fprintln(w, finalStyle.Render(result.Stage3.Response))
}
