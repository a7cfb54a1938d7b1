// Package app contains the core application logic. It wires the block
// registry, the shared resources, quota control and the plan store from a
// config.Model, and owns the serving lifecycle, decoupled from any specific
// entrypoint like a CLI.
package app
