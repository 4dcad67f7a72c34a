// Package report turns tabular rows into xlsx workbooks for admin exports.
package report
