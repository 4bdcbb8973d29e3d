// Package rules contains the built-in docs lint rules (D001-D006).
// Importing the package registers every rule via init().
package rules
