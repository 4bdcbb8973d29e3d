// Package workspace provides declaration-level lint analysis for parsed
// workspace files: checksum pinning, URL hygiene, mirror coverage, and
// duplicate or unused repository declarations.
//
// Rules live in the rules subpackage and register themselves via init().
package workspace
