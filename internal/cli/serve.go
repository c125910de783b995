package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/covera-health/covera/internal/ingest"
	"github.com/covera-health/covera/internal/narrate"
	"github.com/covera-health/covera/internal/planner"
	"github.com/covera-health/covera/internal/server"
	"github.com/covera-health/covera/internal/snapshot"
	"github.com/covera-health/covera/internal/trace"
)

var (
	serveAddr string
	seedFile  string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve runs the ingestion and planner APIs:
- POST /v1/ingest accepts facility CSV uploads
- POST /v1/planner/ask answers coverage questions with citations
- GET /v1/trace/:id replays the reasoning behind an answer
- GET /v1/facilities/geo answers radius queries over located facilities

Example:
  covera serve
  covera serve --addr :9090 --seed facilities.csv`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&seedFile, "seed", "", "CSV file to ingest before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	logger := newLogger()

	geocoder, err := ingest.NewGazetteerGeocoder(cfg.Geocode)
	if err != nil {
		return fmt.Errorf("build geocoder: %w", err)
	}

	narrator, err := narrate.New(cfg.Narrate)
	if err != nil {
		return fmt.Errorf("build narrator: %w", err)
	}

	store := snapshot.NewStore()
	ing := ingest.NewIngestor(cfg, store, geocoder, logger)
	rec := trace.NewRecorder(cfg.Query.TraceRetention)
	pl := planner.New(cfg, store, rec, narrator, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if seedFile != "" {
		f, err := os.Open(seedFile)
		if err != nil {
			return fmt.Errorf("open seed file: %w", err)
		}
		res, err := ing.IngestCSV(ctx, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("seed ingestion: %w", err)
		}
		logger.Info("seed ingested", "file", seedFile, "facilities", res.Ingested, "row_errors", len(res.Errors))
	}

	return server.New(cfg, store, ing, pl, rec, logger).Run(ctx)
}
