// Package services contains the orchestration layer of the pipeline. The
// report service wires parsing, normalization, the analytics engines, and the
// exporters into a single run with one run identifier threaded through the
// logs.
package services
