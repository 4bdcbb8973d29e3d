package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify cached archives against their declared pins",
		Long: `Verify every workspace declaration against the artifact cache and the
lockfile, entirely offline.

Cached archives are re-hashed, so a corrupted cache cannot hide behind
its filename. Dependencies that have never been fetched or that declare
no exact pin are reported as warnings, not failures.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Verify all pins
  starpin verify

  # Verify as part of a CI step
  starpin verify --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd)
		},
	}

	return cmd
}

func runVerify(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	if _, err := eng.Discover(engine.DiscoveryOptions{}); err != nil {
		return fmt.Errorf("failed to discover workspace: %w", err)
	}

	result, err := eng.Verify()
	if err != nil {
		return err
	}

	verifyOutput := buildVerifyOutput(result)

	effectiveMode := r.EffectiveMode()
	switch effectiveMode {
	case output.ModeJSON:
		if err := r.JSON(verifyOutput); err != nil {
			return err
		}
	case output.ModeMarkdown:
		verifyMarkdown(r, verifyOutput)
	default:
		verifyText(r, verifyOutput)
	}

	if failed := result.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d pins failed verification", len(failed), len(result.Checks))
	}
	return nil
}

func buildVerifyOutput(result *engine.VerifyResult) output.VerifyOutput {
	out := output.VerifyOutput{
		Summary: output.VerifySummary{
			Total:       len(result.Checks),
			LockPresent: result.LockPresent,
		},
	}

	for _, v := range result.Checks {
		out.Checks = append(out.Checks, output.VerifyCheck{
			Name:     v.Name,
			Kind:     string(v.Kind),
			Status:   string(v.Status),
			Declared: v.Declared,
			Locked:   v.Locked,
			Actual:   v.Actual,
			Detail:   v.Detail,
		})
		if v.Status == engine.VerifyOK {
			out.Summary.OK++
		}
	}
	out.Summary.Failed = len(result.Failed())

	return out
}

func verifyText(r *output.Renderer, out output.VerifyOutput) {
	for _, check := range out.Checks {
		switch engine.VerifyStatus(check.Status) {
		case engine.VerifyOK:
			r.StatusLine(check.Name, "success", "")
		case engine.VerifyMismatch, engine.VerifyDrift:
			r.StatusLine(check.Name, "error", check.Detail)
		default:
			r.StatusLine(check.Name, "warning", check.Detail)
		}
	}

	r.Println("")
	if out.Summary.Failed == 0 {
		r.Success(fmt.Sprintf("All %d pins verified", out.Summary.Total))
	} else {
		r.Error(fmt.Sprintf("%d of %d pins failed verification", out.Summary.Failed, out.Summary.Total))
	}
	if !out.Summary.LockPresent {
		r.Muted("No lockfile present (run 'starpin lock' to record resolved pins)")
	}
}

func verifyMarkdown(r *output.Renderer, out output.VerifyOutput) {
	r.Println(output.FormatHeader(1, "Verification Results"))
	r.Println("")
	r.Println(output.FormatKeyValue("Pins", fmt.Sprintf("%d", out.Summary.Total)))
	r.Println(output.FormatKeyValue("OK", fmt.Sprintf("%d", out.Summary.OK)))
	r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d", out.Summary.Failed)))
	r.Println(output.FormatKeyValue("Lockfile", fmt.Sprintf("%t", out.Summary.LockPresent)))
	r.Println("")

	for _, check := range out.Checks {
		status := "success"
		switch engine.VerifyStatus(check.Status) {
		case engine.VerifyMismatch, engine.VerifyDrift:
			status = "error"
		case engine.VerifyMissing, engine.VerifyUnpinned:
			status = "warning"
		}
		r.StatusLine(check.Name, status, check.Detail)
	}
}
