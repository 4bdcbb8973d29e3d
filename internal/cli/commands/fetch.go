package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
)

// FetchOptions holds options for the fetch command.
type FetchOptions struct {
	Deps       []string
	Downstream bool
	Extract    bool
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and verify pinned archives",
		Long: `Download the archives pinned in the workspace file into the local cache.

Each download is verified against its declared sha256 before it is
accepted; a mismatched archive is discarded and reported. Archives
already in the cache with a matching digest are not downloaded again.

Output adapts to environment:
  - Terminal: Styled output with progress
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Fetch all pinned dependencies
  starpin fetch

  # Fetch specific dependencies
  starpin fetch --dep zlib --dep org_tensorflow

  # Fetch a dependency and everything that depends on it
  starpin fetch --dep zlib --downstream

  # Fetch and unpack into the cache extract directory
  starpin fetch --extract`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Deps, "dep", nil, "Dependency names to fetch (default: all)")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", false, "Include dependents of the selected dependencies")
	cmd.Flags().BoolVar(&opts.Extract, "extract", false, "Unpack fetched archives, honoring strip_prefix")

	return cmd
}

func runFetch(cmd *cobra.Command, opts *FetchOptions) error {
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

	var spinner *output.Spinner
	if r.IsTTY() {
		spinner = r.NewSpinner("Fetching archives...")
		spinner.Start()
	}

	result, fetchErr := eng.Fetch(cmd.Context(), engine.FetchOptions{
		Deps:       opts.Deps,
		Downstream: opts.Downstream,
		Extract:    opts.Extract,
	})
	if result == nil {
		if spinner != nil {
			spinner.Fail("Fetch failed")
		}
		return fetchErr
	}

	if spinner != nil {
		if len(result.Failed()) > 0 {
			spinner.Fail(fmt.Sprintf("Fetched %d of %d archives", result.Fetched(), len(result.Results)))
		} else {
			spinner.Success(fmt.Sprintf("Fetched %d archives", result.Fetched()))
		}
	}

	fetchOutput := buildFetchOutput(result)

	effectiveMode := r.EffectiveMode()
	switch effectiveMode {
	case output.ModeJSON:
		if err := r.JSON(fetchOutput); err != nil {
			return err
		}
	case output.ModeMarkdown:
		fetchMarkdown(r, fetchOutput)
	default:
		fetchText(r, fetchOutput)
	}

	return fetchErr
}

func buildFetchOutput(result *engine.FetchResult) output.FetchOutput {
	out := output.FetchOutput{Skipped: result.Skipped}
	out.Summary.Total = len(result.Results)

	for _, res := range result.Results {
		info := output.FetchInfo{
			Name:   res.Name,
			SHA256: res.SHA256,
			Size:   res.Size,
			Path:   res.Path,
		}
		switch {
		case res.Err != nil:
			info.Status = "failed"
			info.Error = res.Err.Error()
			out.Summary.Failed++
		case res.Cached:
			info.Status = "cached"
			out.Summary.Cached++
		default:
			info.Status = "downloaded"
			out.Summary.Downloaded++
		}
		if dir, ok := result.Extracted[res.Name]; ok {
			info.Extracted = dir
		}
		out.Results = append(out.Results, info)
	}

	return out
}

func fetchText(r *output.Renderer, out output.FetchOutput) {
	for _, res := range out.Results {
		switch res.Status {
		case "failed":
			r.StatusLine(res.Name, "error", res.Error)
		case "cached":
			r.StatusLine(res.Name, "success", "cached")
		default:
			r.StatusLine(res.Name, "success", formatSize(res.Size))
		}
	}
	for _, name := range out.Skipped {
		r.StatusLine(name, "skipped", "not fetched over http")
	}

	r.Println("")
	r.Printf("Summary: %d downloaded, %d cached, %d failed\n",
		out.Summary.Downloaded, out.Summary.Cached, out.Summary.Failed)
}

func fetchMarkdown(r *output.Renderer, out output.FetchOutput) {
	r.Println(output.FormatHeader(1, "Fetch Results"))
	r.Println("")
	r.Println(output.FormatKeyValue("Downloaded", fmt.Sprintf("%d", out.Summary.Downloaded)))
	r.Println(output.FormatKeyValue("Cached", fmt.Sprintf("%d", out.Summary.Cached)))
	r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d", out.Summary.Failed)))
	r.Println("")

	for _, res := range out.Results {
		detail := res.Status
		if res.Error != "" {
			detail = res.Error
		}
		r.StatusLine(res.Name, res.Status, detail)
	}
	for _, name := range out.Skipped {
		r.StatusLine(name, "skipped", "not fetched over http")
	}
}

// formatSize renders a byte count in a human-readable unit.
func formatSize(size int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case size >= mb:
		return fmt.Sprintf("%.1f MiB", float64(size)/mb)
	case size >= kb:
		return fmt.Sprintf("%.1f KiB", float64(size)/kb)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
