// Package schemas registers the event and item table schemas with the core
// registry. Import this package to ensure all schemas are registered.
package schemas

// Each schema file uses init() to register its schema.
