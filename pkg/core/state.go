package core

import (
	"errors"
	"time"
)

// ErrNotFound reports a lookup for a row that does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for audit state operations.
type Store interface {
	Open(dsn string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(project string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetLatestRun(project string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Check operations
	RecordCheck(check *Check) error
	UpdateCheck(id string, status CheckStatus, durationMS int64, errMsg string) error
	GetChecksForRun(runID string) ([]*Check, error)
	GetLatestCheck(kind CheckKind, target string) (*Check, error)

	// Artifact operations
	SaveArtifact(artifact *Artifact) error
	GetArtifact(name string) (*Artifact, error)
	ListArtifacts() ([]*Artifact, error)
	DeleteArtifact(name string) error

	// Finding operations
	SaveFindings(runID string, findings []*Finding) error
	GetFindingsForRun(runID string) ([]*Finding, error)

	// Symbol cache operations
	SaveModuleSymbols(module string, symbols []*Symbol) error
	GetModuleSymbols(module string) ([]*Symbol, error)
	DeleteModuleSymbols(module string) error
	ListModulePaths() ([]string, error)
}

// RunStatus represents the status of an audit run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one audit session.
type Run struct {
	ID          string
	Project     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// CheckKind classifies an individual check within a run.
type CheckKind string

// Check kind constants.
const (
	CheckFetch  CheckKind = "fetch"
	CheckVerify CheckKind = "verify"
	CheckDocs   CheckKind = "docs"
)

// CheckStatus represents the status of an individual check.
type CheckStatus string

// Check status constants.
const (
	CheckStatusPending CheckStatus = "pending"
	CheckStatusOK      CheckStatus = "ok"
	CheckStatusFailed  CheckStatus = "failed"
	CheckStatusSkipped CheckStatus = "skipped"
)

// Check represents a single verification step within a run: one
// dependency fetched or verified, or one page checked.
type Check struct {
	ID          string
	RunID       string
	Kind        CheckKind
	// Target is the dependency name or the page path the check covers
	Target      string
	Status      CheckStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	DurationMS  int64
}

// Artifact records a fetched archive: the resolved facts for one
// dependency, as opposed to its declaration.
type Artifact struct {
	// Name is the dependency name the artifact satisfies
	Name string
	// URL is the mirror the bytes actually came from
	URL string
	// SHA256 is the digest of the fetched bytes
	SHA256 string
	// Size in bytes
	Size int64
	// FetchedAt is when the download completed (UTC)
	FetchedAt time.Time
}

// Finding is a persisted lint diagnostic tied to a run.
type Finding struct {
	ID       string
	RunID    string
	RuleID   string
	Severity Severity
	Message  string
	File     string
	Line     int
}
