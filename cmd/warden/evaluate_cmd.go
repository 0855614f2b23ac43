package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/farsight-labs/warden/pkg/audit"
	"github.com/farsight-labs/warden/pkg/config"
	"github.com/farsight-labs/warden/pkg/contracts"
	"github.com/farsight-labs/warden/pkg/gate"
	"github.com/farsight-labs/warden/pkg/ledger"
	"github.com/farsight-labs/warden/pkg/observability"
	"github.com/farsight-labs/warden/pkg/pipeline"
	"github.com/farsight-labs/warden/pkg/policy"
	"github.com/farsight-labs/warden/pkg/store"
)

// runEvaluateCmd implements `warden evaluate`.
//
// Reads a proposal JSON document, runs it through the full pipeline,
// persists the resulting ledger entry, and prints the evaluation.
//
// Exit codes:
//
//	0 = READY
//	1 = decision parked or blocked (AWAITING_HUMAN, BLOCKED)
//	2 = runtime error
func runEvaluateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		proposalPath string
		packPath     string
	)

	cmd.StringVar(&proposalPath, "proposal", "", "Path to proposal JSON, or - for stdin (REQUIRED)")
	cmd.StringVar(&packPath, "pack", "", "Path to YAML policy pack (default: built-in pack)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if proposalPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --proposal is required")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if packPath == "" {
		packPath = cfg.PolicyPackPath
	}

	raw, err := readInput(proposalPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot read proposal: %v\n", err)
		return 2
	}
	var proposal pipeline.Proposal
	if err := json.Unmarshal(raw, &proposal); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: proposal is not valid JSON: %v\n", err)
		return 2
	}

	pack, err := loadPack(packPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	engine, err := policy.NewEngine(pack)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    "warden",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     1.0,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	st, err := store.Open(cfg.LedgerDBPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot open ledger store: %v\n", err)
		return 2
	}
	defer func() { _ = st.Close() }()

	persisted, err := st.LoadVerified(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: persisted ledger failed verification: %v\n", err)
		return 2
	}
	led, err := ledger.Restore(persisted)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	p := pipeline.New(engine, led).
		WithAudit(audit.NewLoggerWithWriter(stderr)).
		WithTracer(obs.Tracer())
	if cfg.ApprovalKey != "" {
		p.WithApprovals(gate.NewApprovalVerifier([]byte(cfg.ApprovalKey)))
	}

	eval, err := p.Evaluate(ctx, proposal)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	for _, e := range led.Entries()[len(persisted):] {
		if err := st.AppendEntry(ctx, e); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot persist ledger entry %d: %v\n", e.Sequence, err)
			return 2
		}
	}

	out, _ := json.MarshalIndent(eval, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(out))

	if eval.Readiness == contracts.ReadinessReady {
		return 0
	}
	return 1
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func loadPack(path string) (*policy.Pack, error) {
	if path == "" {
		return policy.DefaultPack(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read policy pack: %w", err)
	}
	return policy.LoadPack(raw)
}
