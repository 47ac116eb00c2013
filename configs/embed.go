// Package configs provides embedded configuration templates for docdex.
//
// How Configuration Templates Work:
//
// Templates are embedded at build time using Go's //go:embed directive.
// This ensures they are available in ALL distributions:
//   - Source builds (go install)
//   - Binary releases
//   - Homebrew installations
//
// The templates are used by:
//   - cmd/docdex/cmd/config.go → creates .docdex.yaml in the project root
//   - cmd/docdex/cmd/config.go → creates user config at ~/.config/docdex/config.yaml
//
// Template files:
//   - project-config.example.yaml: Per-root settings (extensions, excludes, search tuning)
//   - user-config.example.yaml: Machine-specific settings (log level, telemetry)
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/docdex/config.yaml)
//  3. Project config (.docdex.yaml)
//  4. Environment variables (DOCDEX_*)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
// Changes will be embedded in the next build.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by: `docdex config init --user` at ~/.config/docdex/config.yaml
// Contains: Machine-specific settings like log level and telemetry.
// Use case: Settings that apply to every document root on this machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Created by: `docdex config init` at .docdex.yaml in the project root
// Contains: Per-root settings like document extensions, exclude
// directories, and search weights.
// Use case: Settings that are version-controlled with the documents.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
