package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zen-systems/askgate/pkg/actions"
	"github.com/zen-systems/askgate/pkg/adapter"
	"github.com/zen-systems/askgate/pkg/config"
	"github.com/zen-systems/askgate/pkg/foundry"
	"github.com/zen-systems/askgate/pkg/intent"
	"github.com/zen-systems/askgate/pkg/metrics"
	"github.com/zen-systems/askgate/pkg/orchestrate"
	"github.com/zen-systems/askgate/pkg/server"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "askgate",
		Short: "Confidence-based query routing gateway",
		Long: `Askgate routes natural-language queries: answered deterministically
	from structured data, delegated to an agent service, forwarded to a
	general-purpose LLM, or degraded to a static capability message,
	streaming the answer either way.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to routing config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var mockLLM bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			recorder := buildRecorder(cfg)

			llm, err := buildLLM(cfg, recorder, mockLLM)
			if err != nil {
				return err
			}

			orch, err := orchestrate.New(orchestrate.Options{
				Config:     cfg.RoutingConfig,
				Classifier: intent.NewClassifier(),
				Registry:   actions.DefaultRegistry(recorder),
				Delegate:   foundry.NewClient(cfg.RoutingConfig, cfg.FoundryAPIKey),
				LLM:        llm,
				Recorder:   recorder,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, orch, recorder).ListenAndServe(ctx)
		},
	}

	cmd.Flags().BoolVar(&mockLLM, "mock", false, "use the mock LLM adapter regardless of configured provider")
	return cmd
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [query]",
		Short: "Classify a query and print the extraction result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision := intent.NewClassifier().Analyze(args[0])
			out, err := json.MarshalIndent(decision, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show known intents, their plans, and the routing thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			classifier := intent.NewClassifier()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INTENT\tSTEPS\tENDPOINTS")
			for _, name := range classifier.Intents() {
				plan := classifier.PlanFor(name)
				endpoints := ""
				for i, step := range plan {
					if i > 0 {
						endpoints += ", "
					}
					endpoints += step.Endpoint
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(plan), endpoints)
			}
			fmt.Fprintln(w)

			rc := cfg.RoutingConfig
			fmt.Fprintf(w, "strategy\t%s\n", rc.Strategy)
			fmt.Fprintf(w, "deterministic threshold\t%.2f\n", rc.DeterministicThreshold)
			fmt.Fprintf(w, "llm assist threshold\t%.2f\n", rc.LLMAssistThreshold)
			fmt.Fprintf(w, "foundry delegation threshold\t%.2f\n", rc.FoundryDelegationThreshold)
			fmt.Fprintf(w, "foundry delegation\t%v\n", rc.DelegateToFoundry && rc.FoundryEndpoint != "")
			fmt.Fprintf(w, "llm target\t%s/%s\n", rc.LLM.Provider, rc.LLM.Model)
			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [routing.yaml]",
		Short: "Validate a routing config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRoutingConfig(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("Routing config is valid.")
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadWithRoutingFile(configFile)
	}
	return config.Load()
}

func buildRecorder(cfg *config.Config) *metrics.Recorder {
	sink, err := metrics.NewFileTelemetry(filepath.Join(cfg.ConfigDir, "telemetry"))
	if err != nil {
		log.Printf("[askgate] file telemetry unavailable, logging instead: %v", err)
		return metrics.NewRecorder(0, metrics.NewLogTelemetry())
	}
	return metrics.NewRecorder(0, sink)
}

// buildLLM constructs the forwarding adapter. Missing keys or an
// incomplete target are configuration errors: logged to the refusal
// channel and surfaced as a startup failure rather than silently
// degraded.
func buildLLM(cfg *config.Config, recorder *metrics.Recorder, mockLLM bool) (adapter.Adapter, error) {
	provider := cfg.RoutingConfig.LLM.Provider
	if mockLLM || provider == "mock" {
		return adapter.NewMockAdapter(), nil
	}
	llm, err := adapter.New(provider, cfg)
	if err != nil {
		recorder.Sink().LogRefusal(provider, err)
		return nil, fmt.Errorf("llm adapter: %w", err)
	}
	return llm, nil
}
