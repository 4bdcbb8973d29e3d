package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
)

// Pre-compiled patterns for slugging and markdown cleanup.
var (
	reNonWord           = regexp.MustCompile(`[^\w\s-]`)
	reSpacesUnderscores = regexp.MustCompile(`[\s_]+`)
	reMultipleHyphens   = regexp.MustCompile(`-+`)
	reAnchorLinks       = regexp.MustCompile(`\s*\[[#¶]\]\(#[\w.-]*\)`)
	reExcessiveNewlines = regexp.MustCompile(`\n{4,}`)
	reDottedPath        = regexp.MustCompile(`^[A-Za-z_][\w.]*\.[\w]+$`)
)

// DocsImportOptions holds options for the docs import command.
type DocsImportOptions struct {
	Page    string // Output page name, defaults to a slug of the module
	Force   bool   // Overwrite an existing page
	DryRun  bool   // Print instead of writing
	NoNotes bool   // Skip the converted reference notes
}

func newDocsImportCommand() *cobra.Command {
	opts := &DocsImportOptions{}
	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Bootstrap a stub page from a rendered API page",
		Long: `Fetch a rendered HTML API reference page and generate a stub page
from the identifiers it documents.

The importer looks for definition terms and reference anchors whose IDs
are dotted paths (module.attribute), derives the common module, and
writes a stub page listing each attribute under an autosummary
directive. The page prose is converted to markdown and saved as notes
next to the stubs, so the original reference text stays greppable.`,
		Example: `  # Seed a stub page from a published reference page
  starpin docs import https://docs.example.org/api/demo.math.html

  # Preview without writing
  starpin docs import --dry-run https://docs.example.org/api/demo.math.html

  # Pick the page name
  starpin docs import --page demo.math https://docs.example.org/api/demo.math.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocsImport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Page, "page", "", "Output page name (defaults to a slug of the module)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing page")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the generated page instead of writing it")
	cmd.Flags().BoolVar(&opts.NoNotes, "no-notes", false, "Skip writing the converted reference notes")

	return cmd
}

func runDocsImport(cmd *cobra.Command, pageURL string, opts *DocsImportOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	htmlContent, err := fetchDocsPage(cmd.Context(), pageURL)
	if err != nil {
		return fmt.Errorf("failed to fetch page: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}

	imported, err := extractAPIPage(doc)
	if err != nil {
		return err
	}

	pageName := opts.Page
	if pageName == "" {
		pageName = imported.Module
	}
	if pageName == "" {
		pageName = slugify(imported.Title)
	}
	if pageName == "" {
		return fmt.Errorf("could not derive a page name, pass --page")
	}

	stub := renderStubPage(imported, pageURL)

	if opts.DryRun {
		r.Println(stub)
		return nil
	}

	docsDir := cfg.DocsDir
	if cfg.ProjectRoot != "" && !filepath.IsAbs(docsDir) {
		docsDir = filepath.Join(cfg.ProjectRoot, docsDir)
	}
	if err := os.MkdirAll(docsDir, 0o750); err != nil {
		return fmt.Errorf("failed to create docs directory: %w", err)
	}

	stubPath := filepath.Join(docsDir, pageName+".rst")
	if _, err := os.Stat(stubPath); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", stubPath)
	}
	if err := os.WriteFile(stubPath, []byte(stub), 0o600); err != nil {
		return fmt.Errorf("failed to write stub page: %w", err)
	}
	r.StatusLine(stubPath, "success", fmt.Sprintf("%d entries", len(imported.Entries)))

	if !opts.NoNotes && imported.Notes != "" {
		notesDir := filepath.Join(docsDir, "_notes")
		if err := os.MkdirAll(notesDir, 0o750); err != nil {
			return fmt.Errorf("failed to create notes directory: %w", err)
		}
		notesPath := filepath.Join(notesDir, pageName+".md")
		if err := os.WriteFile(notesPath, []byte(imported.Notes), 0o600); err != nil {
			return fmt.Errorf("failed to write notes: %w", err)
		}
		r.StatusLine(notesPath, "success", "reference notes")
	}

	r.Success(fmt.Sprintf("Imported %d identifiers into %s", len(imported.Entries), pageName))
	r.Muted("Run 'starpin docs check' to resolve the new entries against your sources")
	return nil
}

// importedPage is what one rendered API page yields.
type importedPage struct {
	Title   string
	Module  string
	Entries []string
	Notes   string
}

// fetchDocsPage fetches HTML content from a URL.
func fetchDocsPage(ctx context.Context, pageURL string) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "starpin-docs-import/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(body), nil
}

// extractAPIPage pulls the title, documented identifiers, and prose out
// of a rendered reference page.
func extractAPIPage(doc *html.Node) (*importedPage, error) {
	content := findMainContent(doc)
	if content == nil {
		return nil, fmt.Errorf("no main content found on the page")
	}

	title := ""
	if h1 := findElement(content, "h1"); h1 != nil {
		title = strings.TrimRight(getTextContent(h1), "#¶")
		title = strings.TrimSpace(title)
	}

	identifiers := collectDottedIdentifiers(content)
	if len(identifiers) == 0 {
		return nil, fmt.Errorf("no dotted API identifiers found on the page")
	}

	module := commonModulePrefix(identifiers)
	entries := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		if module != "" && strings.HasPrefix(id, module+".") {
			entries = append(entries, strings.TrimPrefix(id, module+"."))
		} else {
			entries = append(entries, id)
		}
	}

	notes := ""
	if md, err := htmltomarkdown.ConvertString(renderNode(content)); err == nil {
		notes = cleanImportedMarkdown(md)
	}

	return &importedPage{
		Title:   title,
		Module:  module,
		Entries: entries,
		Notes:   notes,
	}, nil
}

// findMainContent locates the content container. Rendered API sites
// put everything in an article or a main-role div; fall back to body.
func findMainContent(doc *html.Node) *html.Node {
	if article := findElement(doc, "article"); article != nil {
		return article
	}
	if main := findElementByAttr(doc, "role", "main"); main != nil {
		return main
	}
	return findElement(doc, "body")
}

// collectDottedIdentifiers walks the tree and collects dotted paths
// from definition-term IDs and internal reference anchors, in document
// order and deduplicated.
func collectDottedIdentifiers(root *html.Node) []string {
	var ids []string
	seen := make(map[string]bool)

	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if !reDottedPath.MatchString(candidate) || seen[candidate] {
			return
		}
		seen[candidate] = true
		ids = append(ids, candidate)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "dt":
				add(getAttr(n, "id"))
			case "a":
				href := getAttr(n, "href")
				if i := strings.IndexByte(href, '#'); i >= 0 {
					add(href[i+1:])
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return ids
}

// commonModulePrefix returns the longest dotted prefix shared by every
// identifier, leaving at least the final attribute segment.
func commonModulePrefix(identifiers []string) string {
	if len(identifiers) == 0 {
		return ""
	}

	prefix := strings.Split(identifiers[0], ".")
	prefix = prefix[:len(prefix)-1]

	for _, id := range identifiers[1:] {
		segments := strings.Split(id, ".")
		limit := len(segments) - 1
		if limit > len(prefix) {
			limit = len(prefix)
		}
		i := 0
		for i < limit && segments[i] == prefix[i] {
			i++
		}
		prefix = prefix[:i]
		if len(prefix) == 0 {
			return ""
		}
	}

	return strings.Join(prefix, ".")
}

// renderStubPage formats the imported identifiers as a stub page.
func renderStubPage(page *importedPage, sourceURL string) string {
	title := page.Title
	if title == "" {
		title = page.Module
	}

	var sb strings.Builder
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", len(title)) + "\n\n")
	if page.Module != "" {
		sb.WriteString(".. currentmodule:: " + page.Module + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("Imported from %s.\n\n", sourceURL))
	sb.WriteString(".. autosummary::\n")
	sb.WriteString("   :toctree: _autosummary\n\n")

	entries := append([]string(nil), page.Entries...)
	sort.Strings(entries)
	for _, entry := range entries {
		sb.WriteString("   " + entry + "\n")
	}

	return sb.String()
}

// slugify converts text to a safe filename slug.
func slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = reNonWord.ReplaceAllString(text, "")
	text = reSpacesUnderscores.ReplaceAllString(text, "-")
	text = reMultipleHyphens.ReplaceAllString(text, "-")
	return strings.Trim(text, "-")
}

// cleanImportedMarkdown strips permalink anchors and squeezes the
// converter's blank-line runs.
func cleanImportedMarkdown(content string) string {
	content = reAnchorLinks.ReplaceAllString(content, "")
	content = reExcessiveNewlines.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findElementByAttr finds the first element carrying attr=value.
func findElementByAttr(n *html.Node, key, value string) *html.Node {
	if n.Type == html.ElementNode && getAttr(n, key) == value {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementByAttr(c, key, value); found != nil {
			return found
		}
	}
	return nil
}

// getAttr returns the value of an attribute, or empty string if not found.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// getTextContent returns the text content of a node and its children.
func getTextContent(n *html.Node) string {
	var sb strings.Builder
	var getText func(*html.Node)
	getText = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			getText(c)
		}
	}
	getText(n)
	return strings.TrimSpace(sb.String())
}

// renderNode renders an HTML node back to string.
func renderNode(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}
