// Package rules contains the built-in workspace lint rules (W001-W006).
// Importing the package registers every rule via init().
package rules
