// Package providers defines the metadata source abstraction and the registry
// that maps configured source names to concrete provider clients.
package providers
