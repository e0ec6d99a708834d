// Package app wires application dependencies for the CLI.
//
// It loads Config from the home directory and the environment, builds the
// concrete stores, relay clients and high-level services from it, and
// exposes them via the Wire struct for commands to use.
package app
