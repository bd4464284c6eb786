package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/dialogue"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/records"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/transcript"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
)

var (
	dbPath  string
	jsonOut bool
)

// #region commands

var rootCmd = &cobra.Command{
	Use:          "inspect",
	Short:        "Read intake applications and transcripts from the controller database",
	SilenceUsage: true,
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List applications, most recently updated first",
	RunE:  runRecords,
}

var recordCmd = &cobra.Command{
	Use:   "record <id>",
	Short: "Show one application as it would be read back to the caller",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecord,
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <session-id>",
	Short: "Print the turns of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscript,
}

func init() {
	def := os.Getenv("INTAKE_DB")
	if def == "" {
		def = "intake.db"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", def, "path to the controller SQLite database")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON instead of text")

	recordsCmd.Flags().String("caller", "", "only applications from this caller number")
	recordsCmd.Flags().Int("limit", 20, "maximum rows")
	transcriptCmd.Flags().Bool("redact", false, "mask emails and phone numbers")

	rootCmd.AddCommand(recordsCmd, recordCmd, transcriptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func openStore() (*records.Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return records.NewStore(dbPath)
}

// #endregion commands

// #region records

func runRecords(cmd *cobra.Command, _ []string) error {
	caller, _ := cmd.Flags().GetString("caller")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	apps, err := store.List(cmd.Context(), caller, limit)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(apps)
	}
	if len(apps) == 0 {
		fmt.Fprintln(os.Stderr, "no applications found")
		return nil
	}

	fmt.Printf("%-12s  %-10s  %-12s  %-22s  %s\n", "ID", "Status", "Caller", "Name", "Updated")
	fmt.Printf("%-12s+-%-10s+-%-12s+-%-22s+-%s\n",
		"------------", "----------", "------------", "----------------------", "--------------------")
	for _, a := range apps {
		name := "—"
		if a.Slots.FullName != nil {
			name = *a.Slots.FullName
		}
		fmt.Printf("%-12s  %-10s  %-12s  %-22s  %s\n",
			shortID(a.ID), a.Status, validate.FormatPhone(a.CallerNumber), name,
			a.UpdatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	app, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("record %s: %w", args[0], err)
	}
	if jsonOut {
		return printJSON(app)
	}

	an := app.Annotations
	fmt.Printf("Record:     %s\n", app.ID)
	fmt.Printf("Session:    %s\n", app.SessionID)
	fmt.Printf("Status:     %s\n", app.Status)
	fmt.Printf("Caller:     %s\n", validate.FormatPhone(app.CallerNumber))
	fmt.Printf("Created:    %s\n", app.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Updated:    %s\n", app.UpdatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Address:    verified=%v skipped=%v %s\n", an.AddressVerified, an.AddressSkipped, an.AddressNorm)
	fmt.Printf("Eligible:   %s %s\n", an.StateEligible, an.StateEligibilityNote)
	fmt.Printf("Attorney:   verified=%v\n", an.AttorneyVerified)
	fmt.Printf("\n%s\n", dialogue.ReadBack(app.Slots))
	return nil
}

// #endregion records

// #region transcript

func runTranscript(cmd *cobra.Command, args []string) error {
	redact, _ := cmd.Flags().GetBool("redact")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	log, err := transcript.NewSQLiteLog(store.DB(), 0)
	if err != nil {
		return err
	}
	turns, err := log.List(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if redact {
		turns = transcript.Redact(turns)
	}
	if jsonOut {
		return printJSON(turns)
	}
	if len(turns) == 0 {
		fmt.Fprintln(os.Stderr, "no turns found")
		return nil
	}
	for _, t := range turns {
		flags := ""
		if t.Meta != nil {
			var parts []string
			if t.Meta.Completed {
				parts = append(parts, "completed")
			}
			if t.Meta.Handoff {
				parts = append(parts, "handoff")
			}
			if len(t.Meta.Citations) > 0 {
				parts = append(parts, fmt.Sprintf("cites=%v", t.Meta.Citations))
			}
			if len(parts) > 0 {
				flags = " [" + strings.Join(parts, " ") + "]"
			}
		}
		fmt.Printf("%s  %-14s  %-9s  %s%s\n", t.At.Format("15:04:05"), t.Stage, t.Role, t.Text, flags)
	}
	return nil
}

// #endregion transcript

// #region helpers

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion helpers
