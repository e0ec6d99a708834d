// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (records, states, keys) and contracts (interfaces)
// only; the subpackages hold the definitions and this package re-exports them.
package domain
