package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/farsight-labs/warden/pkg/config"
	"github.com/farsight-labs/warden/pkg/ledger"
	"github.com/farsight-labs/warden/pkg/store"
)

// runVerifyCmd implements `warden verify`.
//
// Loads the persisted ledger and walks the hash chain link by link.
//
// Exit codes:
//
//	0 = chain intact
//	1 = chain broken
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dbPath     string
		jsonOutput bool
	)

	cmd.StringVar(&dbPath, "db", "", "Path to ledger database (default: WARDEN_LEDGER_DB)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		dbPath = cfg.LedgerDBPath
	}

	s, err := store.Open(dbPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot open ledger store: %v\n", err)
		return 2
	}
	defer func() { _ = s.Close() }()

	entries, err := s.ListEntries(context.Background())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot read ledger: %v\n", err)
		return 2
	}

	verifyErr := ledger.VerifyEntries(entries)

	if jsonOutput {
		result := map[string]any{
			"entries":  len(entries),
			"verified": verifyErr == nil,
		}
		if verifyErr != nil {
			result["violation"] = verifyErr.Error()
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(out))
	} else if verifyErr != nil {
		_, _ = fmt.Fprintf(stdout, "FAIL: %v\n", verifyErr)
	} else {
		_, _ = fmt.Fprintf(stdout, "OK: %d entries, chain intact\n", len(entries))
	}

	if verifyErr != nil {
		return 1
	}
	return 0
}
