// Package core defines the shared language of the starpin system.
//
// This package contains:
//   - Domain entities (Dependency, Workspace, Page, Module, Run, etc.)
//   - Service interfaces (Store)
//   - Configuration types (ProjectConfig, StateConfig)
//   - Source positions (Position)
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
