// Documentation stub parsing: directives, section headings, and
// autosummary entries with their positions.

package rst

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// Parser parses documentation stub files.
type Parser struct {
	// BaseDir is the docs directory root
	BaseDir string
}

// NewParser creates a new parser with the given base directory.
func NewParser(baseDir string) *Parser {
	return &Parser{BaseDir: baseDir}
}

// Directive patterns
var (
	// .. autosummary:: (directive with optional argument)
	directivePattern = regexp.MustCompile(`^\.\.\s+([\w-]+)::\s*(.*)$`)
	// :toctree: _autosummary (option on a directive continuation line)
	optionPattern = regexp.MustCompile(`^:([\w-]+):\s*(.*)$`)
	// Custom Title <target> (toctree reference with display title)
	targetPattern = regexp.MustCompile(`^(.*)<([^<>]+)>\s*$`)
)

// ParseFile parses a single stub file.
func (p *Parser) ParseFile(filePath string) (*core.Page, error) {
	content, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from filepath.Walk within the docs directory
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.ParseContent(filePath, string(content))
}

// ParseContent parses stub content from a file.
func (p *Parser) ParseContent(filePath string, content string) (*core.Page, error) {
	page := &core.Page{
		FilePath: filePath,
		Path:     p.filePathToPagePath(filePath),
	}

	fm, err := ExtractFrontmatter(content)
	if err != nil {
		switch e := err.(type) {
		case *FrontmatterParseError:
			e.File = filePath
		case *UnknownFieldError:
			e.File = filePath
		}
		return nil, err
	}
	if fm.HasYAML {
		page.HasFrontmatter = true
		page.Title = fm.Config.Title
		page.Module = fm.Config.Module
		page.Orphan = fm.Config.Orphan
	}

	lines := strings.Split(fm.Body, "\n")
	// lineNo maps an index in lines back to a 1-based file line
	lineNo := func(i int) int { return fm.LineOffset + i + 1 }

	currentModule := page.Module
	currentSection := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}

		// Indented lines outside a handled directive are prose or the
		// content of a directive we do not track
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}

		// Orphan marker field
		if trimmed == ":orphan:" {
			page.Orphan = true
			continue
		}

		if m := directivePattern.FindStringSubmatch(line); m != nil {
			name, arg := m[1], strings.TrimSpace(m[2])
			switch name {
			case "currentmodule", "module":
				currentModule = arg
				if page.Module == "" {
					page.Module = arg
					page.ModulePos = core.Position{File: filePath, Line: lineNo(i)}
				}

			case "automodule":
				currentModule = arg
				if page.Module == "" {
					page.Module = arg
					page.ModulePos = core.Position{File: filePath, Line: lineNo(i)}
				}
				opts, _, next := scanBlock(lines, i)
				for _, opt := range opts {
					page.AutodocOptions = append(page.AutodocOptions, opt.name)
				}
				i = next

			case "autosummary":
				opts, items, next := scanBlock(lines, i)
				toctree := ""
				for _, opt := range opts {
					if opt.name == "toctree" {
						toctree = opt.value
					}
				}
				for _, item := range items {
					page.Entries = append(page.Entries, &core.Entry{
						Name:    item.text,
						Module:  currentModule,
						Section: currentSection,
						Toctree: toctree,
						Pos:     core.Position{File: filePath, Line: lineNo(item.index)},
					})
				}
				page.Summaries = append(page.Summaries, &core.SummaryBlock{
					Toctree: toctree,
					Entries: len(items),
					Pos:     core.Position{File: filePath, Line: lineNo(i)},
				})
				i = next

			case "toctree":
				opts, items, next := scanBlock(lines, i)
				toc := &core.TocTree{
					Pos: core.Position{File: filePath, Line: lineNo(i)},
				}
				for _, opt := range opts {
					switch opt.name {
					case "caption":
						toc.Caption = opt.value
					case "maxdepth":
						toc.MaxDepth, _ = strconv.Atoi(opt.value)
					}
				}
				for _, item := range items {
					ref := item.text
					if m := targetPattern.FindStringSubmatch(ref); m != nil {
						ref = strings.TrimSpace(m[2])
					}
					toc.Refs = append(toc.Refs, ref)
				}
				page.TocTrees = append(page.TocTrees, toc)
				i = next

			default:
				// Unknown directive: skip its indented block
				_, _, next := scanBlock(lines, i)
				i = next
			}
			continue
		}

		// Comments and hyperlink targets (".." without "::")
		if strings.HasPrefix(trimmed, "..") {
			_, _, next := scanBlock(lines, i)
			i = next
			continue
		}

		// Section heading: text underlined by repeated punctuation
		if i+1 < len(lines) && isUnderline(lines[i+1], trimmed) {
			page.Sections = append(page.Sections, &core.Section{
				Title: trimmed,
				Pos:   core.Position{File: filePath, Line: lineNo(i)},
			})
			if page.Title == "" {
				page.Title = trimmed
			}
			currentSection = trimmed
			i++ // skip the underline
			continue
		}
	}

	return page, nil
}

// blockOption is a :name: value line inside a directive block.
type blockOption struct {
	name  string
	value string
}

// blockItem is a non-option content line inside a directive block.
type blockItem struct {
	text  string
	index int
}

// scanBlock collects the indented block following the directive at start.
// It returns the options, the content items, and the index of the last
// line belonging to the block.
func scanBlock(lines []string, start int) ([]blockOption, []blockItem, int) {
	var opts []blockOption
	var items []blockItem

	last := start
	for j := start + 1; j < len(lines); j++ {
		line := lines[j]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			// Blank lines separate options from entries but do not end
			// the block
			continue
		}
		if line[0] != ' ' && line[0] != '\t' {
			break
		}

		if m := optionPattern.FindStringSubmatch(trimmed); m != nil {
			opts = append(opts, blockOption{name: m[1], value: strings.TrimSpace(m[2])})
		} else {
			items = append(items, blockItem{text: trimmed, index: j})
		}
		last = j
	}

	return opts, items, last
}

// isUnderline reports whether line is a heading underline for title:
// a run of one repeated punctuation character at least as long as the title.
func isUnderline(line, title string) bool {
	trimmed := strings.TrimRight(line, " \t")
	if len(trimmed) < 2 || len(trimmed) < len(title) {
		return false
	}
	c := rune(trimmed[0])
	if !strings.ContainsRune("=-~^\"'#*+.`_:", c) {
		return false
	}
	for _, r := range trimmed {
		if r != c {
			return false
		}
	}
	return true
}

// filePathToPagePath converts a file path to a page path.
// e.g., "/docs/notes/async.rst" -> "notes/async"
func (p *Parser) filePathToPagePath(filePath string) string {
	relPath, err := filepath.Rel(p.BaseDir, filePath)
	if err != nil {
		// Fallback to just the filename
		return strings.TrimSuffix(filepath.Base(filePath), ".rst")
	}

	relPath = strings.TrimSuffix(relPath, ".rst")
	return filepath.ToSlash(relPath)
}

// Scanner scans a directory for documentation stub files.
type Scanner struct {
	parser *Parser
}

// NewScanner creates a new directory scanner.
func NewScanner(baseDir string) *Scanner {
	return &Scanner{
		parser: NewParser(baseDir),
	}
}

// ScanDir recursively scans a directory for .rst files and parses them.
// Underscore directories (_build, _templates, ...) are skipped. When
// onError is non-nil it receives per-file parse failures and the scan
// continues; otherwise the first failure aborts the scan.
func (s *Scanner) ScanDir(dir string, onError func(path string, err error)) ([]*core.Page, error) {
	var pages []*core.Page

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".rst") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		page, perr := s.parser.ParseFile(path)
		if perr != nil {
			if onError != nil {
				onError(path, perr)
				return nil
			}
			return fmt.Errorf("failed to parse %s: %w", path, perr)
		}

		pages = append(pages, page)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	return pages, nil
}
