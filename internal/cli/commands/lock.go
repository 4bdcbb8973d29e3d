package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
	"github.com/starpoint-labs/starpin/internal/lockfile"
)

// NewLockCommand creates the lock command.
func NewLockCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Write or check the dependency lockfile",
		Long: `Regenerate starpin.lock from the effective workspace declarations.

The lockfile records each dependency's resolved pin so CI can detect
when a declaration moved without a matching lockfile update. Use
--check to fail on drift without writing anything.`,
		Example: `  # Write the lockfile
  starpin lock

  # Fail if the lockfile is out of date (CI)
  starpin lock --check

  # Show what would change
  starpin lock diff`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if check {
				return runLockCheck(cmd)
			}
			return runLockWrite(cmd)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Fail when the lockfile is out of date, write nothing")

	cmd.AddCommand(newLockDiffCommand())

	return cmd
}

func newLockDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show how declarations moved relative to the lockfile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLockDiff(cmd)
		},
	}
}

func runLockWrite(cmd *cobra.Command) error {
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

	outcome, err := eng.WriteLock()
	if err != nil {
		return fmt.Errorf("failed to write lockfile: %w", err)
	}

	lockOutput := output.LockOutput{
		Path:         outcome.Path,
		Dependencies: len(outcome.Lock.Dependencies),
		Diff:         buildLockDiffOutput(outcome.Diff),
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(lockOutput)
	}

	r.Success(fmt.Sprintf("Wrote %s (%d dependencies)", outcome.Path, lockOutput.Dependencies))
	if outcome.Diff != nil && !outcome.Diff.Empty() {
		r.Println("")
		renderLockDiff(r, outcome.Diff)
	}
	return nil
}

func runLockCheck(cmd *cobra.Command) error {
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

	diff, err := eng.CheckLock()
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(output.LockOutput{Path: eng.LockPath(), Diff: buildLockDiffOutput(diff)}); err != nil {
			return err
		}
	} else if diff.Empty() {
		r.Success("Lockfile is up to date")
	} else {
		renderLockDiff(r, diff)
	}

	if !diff.Empty() {
		return fmt.Errorf("lockfile is out of date (run 'starpin lock')")
	}
	return nil
}

func runLockDiff(cmd *cobra.Command) error {
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

	diff, err := eng.CheckLock()
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(output.LockOutput{Path: eng.LockPath(), Diff: buildLockDiffOutput(diff)})
	}

	if diff.Empty() {
		r.Success("Lockfile matches the workspace declarations")
		return nil
	}
	renderLockDiff(r, diff)
	return nil
}

func buildLockDiffOutput(diff *lockfile.DiffResult) *output.LockDiffOutput {
	if diff == nil {
		return nil
	}
	out := &output.LockDiffOutput{
		InSync:  diff.Empty(),
		Added:   diff.Added,
		Removed: diff.Removed,
	}
	for _, c := range diff.Changed {
		out.Changed = append(out.Changed, output.LockDelta{
			Name:   c.Name,
			Field:  c.Field,
			Before: c.Old,
			After:  c.New,
		})
	}
	return out
}

func renderLockDiff(r *output.Renderer, diff *lockfile.DiffResult) {
	styles := r.Styles()

	for _, name := range diff.Added {
		r.Printf("  %s %s\n", styles.Success.Render("+"), name)
	}
	for _, name := range diff.Removed {
		r.Printf("  %s %s\n", styles.Error.Render("-"), name)
	}
	for _, c := range diff.Changed {
		r.Printf("  %s %s %s: %s %s %s\n",
			styles.Warning.Render("~"),
			styles.RepoName.Render(c.Name),
			c.Field,
			styles.Muted.Render(c.Old),
			styles.Muted.Render("->"),
			c.New,
		)
	}
}
