// Package report runs the daily sales report: it pages through the orders of
// a date window, flattens their top-level items into rows enriched from a
// per-run lookup cache, and hands the sorted rows to the configured sinks.
package report
