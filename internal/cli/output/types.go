package output

// JSON output shapes for --output json. Commands convert engine results
// into these, keeping the wire format stable even when internal result
// structs move.

// ListOutput is the list command payload.
type ListOutput struct {
	Dependencies []DependencyInfo `json:"dependencies,omitempty"`
	Pages        []PageInfo       `json:"pages,omitempty"`
	Summary      ListSummary      `json:"summary"`
}

// DependencyInfo describes one effective workspace declaration.
type DependencyInfo struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Pinned bool   `json:"pinned"`
	Pin    string `json:"pin,omitempty"`
	Source string `json:"source,omitempty"`
	Line   int    `json:"line,omitempty"`
	// Status is the latest recorded verify check, when a run exists.
	Status string `json:"status,omitempty"`
}

// PageInfo describes one stub page.
type PageInfo struct {
	Path    string `json:"path"`
	Title   string `json:"title,omitempty"`
	Module  string `json:"module,omitempty"`
	Entries int    `json:"entries"`
	Orphan  bool   `json:"orphan,omitempty"`
	// Status is the latest recorded docs check, when a run exists.
	Status string `json:"status,omitempty"`
}

// ListSummary totals the listing.
type ListSummary struct {
	Total        int `json:"total"`
	Pinned       int `json:"pinned"`
	HTTPArchives int `json:"http_archives"`
	GitRepos     int `json:"git_repositories"`
}

// GraphOutput is the graph command payload: repositories grouped by
// dependency level.
type GraphOutput struct {
	Levels     []GraphLevel `json:"levels"`
	TotalNodes int          `json:"total_nodes"`
	TotalEdges int          `json:"total_edges"`
}

// GraphLevel groups nodes that share a distance from the roots.
type GraphLevel struct {
	Level int         `json:"level"`
	Nodes []GraphNode `json:"nodes"`
}

// GraphNode is one repository or macro invocation in the graph.
type GraphNode struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"depends_on,omitempty"`
	UsedBy    []string `json:"used_by,omitempty"`
}

// VerifyOutput is the verify command payload.
type VerifyOutput struct {
	Checks  []VerifyCheck `json:"checks"`
	Summary VerifySummary `json:"summary"`
}

// VerifyCheck is one dependency's pin verification.
type VerifyCheck struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Declared string `json:"declared,omitempty"`
	Locked   string `json:"locked,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// VerifySummary totals the verification pass.
type VerifySummary struct {
	Total       int  `json:"total"`
	OK          int  `json:"ok"`
	Failed      int  `json:"failed"`
	LockPresent bool `json:"lock_present"`
}

// FetchOutput is the fetch command payload.
type FetchOutput struct {
	Results []FetchInfo  `json:"results"`
	Skipped []string     `json:"skipped,omitempty"`
	Summary FetchSummary `json:"summary"`
}

// FetchInfo is one dependency's fetch outcome.
type FetchInfo struct {
	Name      string `json:"name"`
	Status    string `json:"status"` // downloaded, cached, failed
	SHA256    string `json:"sha256,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Path      string `json:"path,omitempty"`
	Extracted string `json:"extracted,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FetchSummary totals the fetch pass.
type FetchSummary struct {
	Total      int `json:"total"`
	Downloaded int `json:"downloaded"`
	Cached     int `json:"cached"`
	Failed     int `json:"failed"`
}

// DocsCheckOutput is the docs check payload.
type DocsCheckOutput struct {
	Pages    int         `json:"pages"`
	Entries  int         `json:"entries"`
	Resolved int         `json:"resolved"`
	Issues   []DocsIssue `json:"issues"`
}

// DocsIssue is one autosummary entry that failed to resolve.
type DocsIssue struct {
	Page        string   `json:"page"`
	Entry       string   `json:"entry"`
	Module      string   `json:"module,omitempty"`
	Reason      string   `json:"reason"`
	Suggestions []string `json:"suggestions,omitempty"`
	File        string   `json:"file,omitempty"`
	Line        int      `json:"line,omitempty"`
}

// CoverageOutput is the docs coverage payload.
type CoverageOutput struct {
	Modules         []ModuleCoverageInfo `json:"modules"`
	TotalPublic     int                  `json:"total_public"`
	TotalDocumented int                  `json:"total_documented"`
	Percent         float64              `json:"percent"`
}

// ModuleCoverageInfo is one module's documentation coverage.
type ModuleCoverageInfo struct {
	Module     string   `json:"module"`
	Public     int      `json:"public"`
	Documented int      `json:"documented"`
	Percent    float64  `json:"percent"`
	Missing    []string `json:"missing,omitempty"`
	Extra      []string `json:"extra,omitempty"`
}

// CheckOutput is the check command payload: per-stage summaries plus
// the lint findings that survived the severity filter.
type CheckOutput struct {
	Run      *RunInfo       `json:"run,omitempty"`
	Fetch    *FetchSummary  `json:"fetch,omitempty"`
	Verify   *VerifySummary `json:"verify,omitempty"`
	Docs     *DocsSummary   `json:"docs,omitempty"`
	Findings []FindingInfo  `json:"findings"`
	Summary  CheckSummary   `json:"summary"`
}

// RunInfo identifies the recorded audit run.
type RunInfo struct {
	ID      string `json:"id"`
	Project string `json:"project,omitempty"`
	Status  string `json:"status"`
}

// DocsSummary totals the docs resolution stage.
type DocsSummary struct {
	Pages    int `json:"pages"`
	Entries  int `json:"entries"`
	Resolved int `json:"resolved"`
	Issues   int `json:"issues"`
}

// FindingInfo is one lint finding.
type FindingInfo struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Target   string `json:"target,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// CheckSummary counts findings by severity.
type CheckSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// LockOutput is the lock command payload.
type LockOutput struct {
	Path         string          `json:"path"`
	Dependencies int             `json:"dependencies"`
	Diff         *LockDiffOutput `json:"diff,omitempty"`
}

// LockDiffOutput describes how declarations moved relative to the
// lockfile.
type LockDiffOutput struct {
	InSync  bool        `json:"in_sync"`
	Added   []string    `json:"added,omitempty"`
	Removed []string    `json:"removed,omitempty"`
	Changed []LockDelta `json:"changed,omitempty"`
}

// LockDelta is one changed field on one dependency.
type LockDelta struct {
	Name   string `json:"name"`
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}
