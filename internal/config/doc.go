// Package config provides configuration structures and utilities for processflow.
// It defines the options for a pipeline run, the YAML configuration file with
// per-stage worker commands, default settings and output layout, and where
// that file is looked up.
package config
