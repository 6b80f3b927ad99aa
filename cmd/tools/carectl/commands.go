package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/healthcare-site/backend/internal/config"
	"github.com/zhouzirui/healthcare-site/backend/internal/logging"
	"github.com/zhouzirui/healthcare-site/backend/internal/model/clinic"
	"github.com/zhouzirui/healthcare-site/backend/internal/service/ai"
	medsService "github.com/zhouzirui/healthcare-site/backend/internal/service/meds"
	"github.com/zhouzirui/healthcare-site/backend/internal/widget"
)

const previewLen = 200

type searcher interface {
	Search(ctx context.Context, query string) (medsService.SearchResult, error)
}

// app holds the constructors the commands need so tests can swap them.
type app struct {
	configPath string
	verbose    bool
	logger     *zap.Logger

	newProvider func(ctx context.Context, a *app) (ai.Provider, error)
	openMeds    func(ctx context.Context, a *app) (searcher, func() error, error)
}

func defaultApp() *app {
	return &app{
		configPath:  config.DefaultFile,
		newProvider: providerFromConfig,
		openMeds:    medsFromConfig,
	}
}

func (a *app) load() (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if a.logger, err = logging.New(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func providerFromConfig(ctx context.Context, a *app) (ai.Provider, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, err
	}
	var system string
	if cfg.AI.ClinicContext {
		system = ai.NewClinicPrompt(clinic.DefaultProfile(), clinic.Seed()).Build()
	}
	return ai.NewProvider(ctx, cfg.AI, system)
}

func medsFromConfig(ctx context.Context, a *app) (searcher, func() error, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Meds.Enabled {
		return nil, nil, fmt.Errorf("medication lookup disabled: set FDA_API_KEY and MEDS_ENABLED")
	}
	svc, db, err := medsService.Open(ctx, cfg.Meds, cfg.AI, a.log().Named("meds"))
	if err != nil {
		return nil, nil, err
	}
	return svc, db.Close, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "carectl",
		Short:         "Talk to the clinic assistant and search medications from the terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", a.configPath, "config file (YAML); environment variables override it")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newAskCmd(a), newMedsCmd(a))
	return root
}

func newAskCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Send one message through a chat widget and print the transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			provider, err := a.newProvider(ctx, a)
			if err != nil {
				return err
			}

			w := widget.New("carectl", provider, a.log())
			defer w.Close()

			w.ToggleOpen()
			if !w.Send(strings.Join(args, " ")) {
				return fmt.Errorf("message is empty")
			}
			if err := w.Wait(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, msg := range w.Snapshot().Transcript {
				fmt.Fprintf(out, "%s: %s\n", msg.Author, msg.Text)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up waiting for the reply after this long")
	return cmd
}

func newMedsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meds",
		Short: "Medication lookup backed by OpenFDA and the local vector cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "search <symptoms>",
		Short: "Search medications for the given symptoms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.openMeds(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			printSearch(cmd.Context(), cmd.OutOrStdout(), svc, strings.Join(args, " "))
			printDisclaimer(cmd.OutOrStdout())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "interactive",
		Short: "Prompt for symptoms until 'quit'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.openMeds(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			return interactive(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), svc)
		},
	})

	return cmd
}

func interactive(ctx context.Context, in io.Reader, out io.Writer, svc searcher) error {
	fmt.Fprintln(out, "Welcome to the Healthcare Information Assistant!")
	fmt.Fprintln(out, "Enter 'quit' to exit the program.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nPlease describe your symptoms: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, "quit") {
			return nil
		}
		if query == "" {
			continue
		}

		printSearch(ctx, out, svc, query)
		printDisclaimer(out)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func printSearch(ctx context.Context, out io.Writer, svc searcher, query string) {
	res, err := svc.Search(ctx, query)
	if err != nil {
		fmt.Fprintf(out, "\nAn error occurred: %v\n", err)
		return
	}
	if len(res.Hits) == 0 {
		fmt.Fprintln(out, "\nNo medications found for your query.")
		return
	}

	origin := "from FDA"
	if res.Source == medsService.SourceCache {
		origin = "from cache"
	}
	fmt.Fprintf(out, "\nRecommended Medications (%s):\n", origin)
	fmt.Fprintln(out, strings.Repeat("-", 50))

	for _, hit := range res.Hits {
		m := hit.Medication
		fmt.Fprintf(out, "\nMedication: %s\n", m.BrandName)
		fmt.Fprintf(out, "Generic Name: %s\n", m.GenericName)
		if res.Source != medsService.SourceFDA {
			fmt.Fprintf(out, "Similarity Score: %.2f\n", hit.Similarity)
		}
		fmt.Fprintf(out, "Indications: %s\n", preview(m.Indications))
		fmt.Fprintf(out, "Warnings: %s\n", preview(m.Warnings))
		fmt.Fprintln(out, strings.Repeat("-", 30))
	}
}

func printDisclaimer(out io.Writer) {
	fmt.Fprintln(out, "\nDisclaimer: These recommendations are for informational purposes only.")
	fmt.Fprintln(out, "Always consult with a healthcare professional before taking any medication.")
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}
