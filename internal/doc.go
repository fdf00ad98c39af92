// Package internal contains the core implementation packages for javanotes.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the javanotes CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - config: Configuration management with validation and security
//   - errors: Parse error collection and HTML overlay generation
//   - javasrc: Lexical checks for Java code snippets
//   - lint: Rule engine and diagnostic reporting for the corpus
//   - markdown: Markdown parsing, heading slugs, and link extraction
//   - pipeline: Incremental rebuild pipeline with caching and metrics
//   - registry: Document registry and event broadcasting system
//   - scanner: Content root scanning and metadata extraction
//   - server: Authoring HTTP server with live reload over WebSockets
//   - site: Static site rendering, search index, and output verification
//   - watcher: File system monitoring with debouncing
//
// # Inter-Package Communication
//
// Packages communicate through well-defined interfaces:
//
//   - Registry acts as the central event hub for document changes
//   - Scanner parses Markdown files and populates the registry
//   - Lint and site consume registry state and produce reports or pages
//   - Watcher monitors content roots and triggers rescans
//   - Server coordinates between all components and handles author requests
//
// # Security Considerations
//
// Security is implemented at multiple layers:
//
//   - Config package validates all configuration inputs
//   - Server package implements origin validation and rate limiting
//   - Scanner package validates file paths and prevents traversal attacks
//   - Site package escapes all document-derived HTML output
//
// # Testing Strategy
//
// Each package includes test coverage appropriate to its role: unit tests
// alongside the code, fuzz tests for parser-facing inputs, property tests
// behind the "property" build tag, and benchmarks for hot paths.
//
// For detailed documentation, see the individual package documentation.
package internal
