package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/covera-health/covera/internal/ingest"
	"github.com/covera-health/covera/internal/interpret"
	"github.com/covera-health/covera/internal/narrate"
	"github.com/covera-health/covera/internal/planner"
	"github.com/covera-health/covera/internal/snapshot"
	"github.com/covera-health/covera/internal/trace"
)

var (
	askData      []string
	askShowTrace bool
	askRegion    string
	askDistrict  string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a coverage question over local CSV data",
	Long: `Ask ingests the given CSV files into an in-process engine and answers
one coverage question, printing the cited answer as JSON.

Example:
  covera ask "How many facilities can perform a C-section?" --data facilities.csv
  covera ask "Which facilities offer dialysis within 100 km of -3.5, 39.8?" --data facilities.csv --trace`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringSliceVar(&askData, "data", nil, "facility CSV file(s) to ingest (required)")
	askCmd.Flags().BoolVar(&askShowTrace, "trace", false, "print the reasoning trace after the answer")
	askCmd.Flags().StringVar(&askRegion, "region", "", "restrict the question to one region")
	askCmd.Flags().StringVar(&askDistrict, "district", "", "restrict the question to one district")
	_ = askCmd.MarkFlagRequired("data")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	ctx := cmd.Context()
	for _, path := range askData {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open data file: %w", err)
		}
		res, err := ing.IngestCSV(ctx, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Ingested %s: %d facilities, %d row errors\n", path, res.Ingested, len(res.Errors))
		}
		for _, rowErr := range res.Errors {
			fmt.Fprintf(os.Stderr, "row %d: %s\n", rowErr.Row, rowErr.Reason)
		}
	}

	answer, err := pl.Ask(ctx, question, interpret.Filters{Region: askRegion, District: askDistrict})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(answer); err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}

	if askShowTrace {
		if tr, ok := rec.Get(answer.TraceID); ok {
			fmt.Fprintln(os.Stderr)
			if err := enc.Encode(tr); err != nil {
				return fmt.Errorf("encode trace: %w", err)
			}
		}
	}

	return nil
}
