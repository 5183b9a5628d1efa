// Command tonearm reconciles a local music library against external
// metadata providers.
package main
