// Package router decodes envelopes arriving from the relay and hands each
// to the service that owns its type.
package router
