// Package docs provides page-level lint analysis for documentation stubs:
// entry resolution against the scanned source surface, coverage of public
// symbols, duplicate listings, and toctree reachability.
//
// Rules live in the rules subpackage and register themselves via init().
package docs
