//go:build !integration

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() validationReport {
	return validationReport{
		Source:     "quotes.csv",
		RunID:      "run-1",
		Records:    5,
		Validated:  3,
		Columns:    2,
		Rows:       2,
		ReadErrors: []string{"Line 6, expected 5 fields but found 3"},
		Errors:     []string{"Line 5 has empty Shorthand, can not recover"},
		Warnings:   []string{"Line 3 recovered From using Shorthand"},
		Collisions: []string{},
	}
}

func TestWriteReport_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "text"))

	out := buf.String()
	assert.Contains(t, out, "Source:    quotes.csv")
	assert.Contains(t, out, "Records:   5 read, 3 validated")
	assert.Contains(t, out, "Grid:      2 dates x 2 periods")
	assert.Contains(t, out, "Read errors (1):\n  Line 6, expected 5 fields but found 3\n")
	assert.Contains(t, out, "Errors (1):\n  Line 5 has empty Shorthand, can not recover\n")
	assert.Contains(t, out, "Warnings (1):")
	assert.NotContains(t, out, "Collisions")
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "json"))

	var got validationReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleReport(), got)
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "yaml"))

	assert.Contains(t, buf.String(), "run_id: run-1\n")
	var got validationReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "quotes.csv", got.Source)
	assert.Equal(t, []string{"Line 5 has empty Shorthand, can not recover"}, got.Errors)
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeReport(&buf, sampleReport(), "xml"))
}

func TestValidationReport_Problems(t *testing.T) {
	assert.Equal(t, 2, sampleReport().problems())
	assert.Zero(t, validationReport{}.problems())
}
