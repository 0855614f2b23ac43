package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/farsight-labs/warden/pkg/config"
	"github.com/farsight-labs/warden/pkg/gate"
)

// runApproveCmd implements `warden approve`.
//
// Issues a signed approval token bound to one plan. The token is what a
// critical-risk plan must present at evaluation time; it is useless for
// any other plan id.
//
// Exit codes:
//
//	0 = token issued
//	2 = runtime error
func runApproveCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("approve", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		planID     string
		approverID string
		ttl        time.Duration
	)

	cmd.StringVar(&planID, "plan", "", "Plan id the token is bound to (REQUIRED)")
	cmd.StringVar(&approverID, "approver", "", "Approving human's id (REQUIRED)")
	cmd.DurationVar(&ttl, "ttl", 15*time.Minute, "Token validity window")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if planID == "" || approverID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --plan and --approver are required")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if cfg.ApprovalKey == "" {
		_, _ = fmt.Fprintln(stderr, "Error: WARDEN_APPROVAL_KEY is not set")
		return 2
	}

	token, err := gate.NewApprovalVerifier([]byte(cfg.ApprovalKey)).Issue(planID, approverID, ttl)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot issue token: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintln(stdout, token)
	return 0
}
