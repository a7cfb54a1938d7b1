// Package config defines the explicit configuration model of the
// application and the Loader interface that fills it from a file.
//
// A Model is built once at startup (defaults, then a config file, then
// command-line flags) and handed down to the resource pool, the quota
// controller and every session. Nothing reads the process environment
// while plans execute. Concrete loaders live in separate packages (HCL in
// internal/hcl, TOML in internal/tomlconfig).
package config
