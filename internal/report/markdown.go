package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteMarkdown renders the catalog as a markdown report for CI logs and
// pull request comments.
func WriteMarkdown(w io.Writer, c *Catalog) error {
	mw := &markdownWriter{w: w}

	title := c.Title
	if title == "" {
		title = c.Project
	}
	mw.printf("# Pin audit: %s\n\n", title)
	mw.printf("Generated %s\n\n", c.GeneratedAt.Format(time.RFC3339))

	mw.printf("## Summary\n\n")
	mw.printf("| Metric | Value |\n")
	mw.printf("| --- | --- |\n")
	mw.printf("| Dependencies | %d (%d pinned) |\n", c.Summary.Dependencies, c.Summary.Pinned)
	mw.printf("| Verification failures | %d |\n", c.Summary.VerifyFailed)
	mw.printf("| Pages | %d (%d entries, %d unresolved) |\n", c.Summary.Pages, c.Summary.Entries, c.Summary.Unresolved)
	if c.Summary.SourcesScanned {
		mw.printf("| Coverage | %.1f%% (%d modules, %d public symbols) |\n", c.Summary.CoveragePercent, c.Summary.Modules, c.Summary.PublicSymbols)
	} else {
		mw.printf("| Coverage | not computed (no sources scanned) |\n")
	}
	mw.printf("| Findings | %d errors, %d warnings, %d info |\n", c.Summary.Errors, c.Summary.Warnings, c.Summary.Infos)
	mw.printf("\n")

	if len(c.Dependencies) > 0 {
		mw.printf("## Dependencies\n\n")
		mw.printf("| Name | Kind | Pin | Verify |\n")
		mw.printf("| --- | --- | --- | --- |\n")
		for _, dep := range c.Dependencies {
			verify := dep.Verify
			if verify == "" {
				verify = "-"
			}
			mw.printf("| %s | %s | %s | %s |\n", dep.Name, dep.Kind, pinLabel(dep), verify)
		}
		mw.printf("\n")
	}

	if len(c.Coverage) > 0 {
		mw.printf("## Coverage\n\n")
		mw.printf("| Module | Documented | Public | Percent |\n")
		mw.printf("| --- | --- | --- | --- |\n")
		for _, cov := range c.Coverage {
			mw.printf("| %s | %d | %d | %.1f%% |\n", cov.Module, cov.Documented, cov.Public, cov.Percent)
		}
		mw.printf("\n")
		var missing []string
		for _, cov := range c.Coverage {
			if len(cov.Missing) > 0 {
				missing = append(missing, fmt.Sprintf("- `%s`: %s", cov.Module, strings.Join(cov.Missing, ", ")))
			}
		}
		if len(missing) > 0 {
			mw.printf("Missing from docs:\n\n%s\n\n", strings.Join(missing, "\n"))
		}
	}

	if len(c.Findings) > 0 {
		mw.printf("## Findings\n\n")
		for _, f := range c.Findings {
			mw.printf("- **%s** %s", f.Severity, f.RuleID)
			if f.Target != "" {
				mw.printf(" `%s`", f.Target)
			}
			mw.printf(": %s", f.Message)
			if f.File != "" {
				mw.printf(" (%s:%d)", f.File, f.Line)
			}
			mw.printf("\n")
		}
		mw.printf("\n")
	}

	return mw.err
}

// pinLabel renders the pin column: a shortened digest, a shortened
// commit, or how the dependency falls short of a pin.
func pinLabel(dep *DependencyDoc) string {
	switch {
	case dep.SHA256 != "":
		return "`" + shortPin(dep.SHA256) + "`"
	case dep.Commit != "":
		return "`" + shortPin(dep.Commit) + "`"
	case dep.Tag != "":
		return "tag " + dep.Tag
	default:
		return "unpinned"
	}
}

// shortPin abbreviates a hex digest for display.
func shortPin(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}

// markdownWriter tracks the first write error so rendering code can stay
// free of per-line error checks.
type markdownWriter struct {
	w   io.Writer
	err error
}

func (m *markdownWriter) printf(format string, args ...any) {
	if m.err != nil {
		return
	}
	_, m.err = fmt.Fprintf(m.w, format, args...)
}
