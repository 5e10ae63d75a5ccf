// Package sales contains the domain model of the daily sales report.
//
// It describes what the report pipeline works with: orders pulled from the
// commerce platform and their line items, the catalog records used to enrich
// them (products, categories, status labels and saleswoman options), the
// flattened report Row and the aggregate Stats of a run.
//
// The package performs no I/O. Platform is the port the application layer
// uses to reach the commerce platform; adapters live under
// internal/infrastructure.
package sales
