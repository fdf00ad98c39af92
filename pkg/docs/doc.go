// Package docs describes the javanotes CLI, a lint and publishing toolchain
// for a corpus of Java and Spring tutorial notes written in Markdown.
//
// Javanotes keeps a growing set of study notes honest: it scans content
// roots, lints cross-references and code snippets, renders a static site,
// and serves the corpus locally with live reload while authoring.
//
// # Key Features
//
//   - Corpus Discovery: Automatic scanning of Markdown content roots
//   - Linting: Link and anchor resolution, heading structure, Java snippet checks
//   - Static Site: HTML rendering with navigation, highlighting, and search index
//   - Authoring Server: HTTP server with WebSocket live reload
//   - File Watching: Debounced file system monitoring with incremental rescans
//   - Verification: Built output checked for broken references before publish
//
// # Quick Start
//
//	// Lint the whole corpus
//	javanotes lint
//
//	// List discovered documents
//	javanotes list
//
//	// Render the static site into ./public
//	javanotes build
//
//	// Serve with live reload while writing
//	javanotes serve
//
//	// Check the environment for common problems
//	javanotes doctor
//
// # Architecture
//
// The javanotes module is organized into several core components:
//
//   - CLI Commands (cmd/): Cobra-based command interface
//   - Document Registry (internal/registry/): Central corpus catalog
//   - Scanner (internal/scanner/): Markdown parsing and metadata extraction
//   - Lint Engine (internal/lint/): Rule evaluation and reporting
//   - Site Builder (internal/site/): Static HTML and search index output
//   - Authoring Server (internal/server/): HTTP server with WebSocket reload
//   - File Watcher (internal/watcher/): Real-time file system monitoring
//   - Configuration (internal/config/): Viper-based configuration management
//
// # Security
//
// Javanotes validates inputs at its trust boundaries:
//
//   - Path traversal protection on content roots and output directories
//   - WebSocket origin validation on the authoring server
//   - Rate limiting on reload connections
//   - HTML escaping for all document-derived output
//
// # Configuration
//
// Javanotes supports configuration through multiple sources:
//
//   - Configuration file (.javanotes.yml)
//   - Environment variables (JAVANOTES_*)
//   - Command-line flags
//
// Example configuration:
//
//	docs:
//	  roots:
//	    - docs
//	  exclude:
//	    - drafts/*
//
//	site:
//	  title: Java Notes
//	  output: public
//	  verify: true
//
//	lint:
//	  fail_on: error
//
//	server:
//	  port: 8080
//	  host: localhost
//	  environment: development
//
//	watch:
//	  debounce_ms: 300
//
// # Testing
//
// The module includes test coverage across packages: unit tests, fuzz tests
// for parser-facing inputs, property tests behind the "property" build tag,
// and benchmarks for hot paths.
//
// For more information, see the individual package documentation.
package docs
