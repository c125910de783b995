package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/covera-health/covera/internal/model"
)

var (
	ingestServer  string
	ingestTimeout time.Duration
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Upload a facility CSV to a running server",
	Long: `Ingest uploads a facility CSV file to a running covera server and
reports the ingestion result. Rows that fail validation are listed
individually; they never abort the rest of the batch.

Example:
  covera ingest facilities.csv
  covera ingest facilities.csv --server http://coverage.example.com:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestServer, "server", "http://localhost:8080", "base URL of the covera server")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 2*time.Minute, "upload timeout")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, ingestServer+"/v1/ingest", f)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	client := &http.Client{Timeout: ingestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr model.Error
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("server rejected upload (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("server rejected upload: %s", resp.Status)
	}

	var res model.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("Ingested %d facilities from %s\n", res.Ingested, path)
	for _, rowErr := range res.Errors {
		fmt.Fprintf(os.Stderr, "row %d: %s\n", rowErr.Row, rowErr.Reason)
	}
	if len(res.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "%d rows rejected\n", len(res.Errors))
	}

	return nil
}
