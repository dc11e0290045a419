// Package report renders run summaries and instance status as text tables.
package report
