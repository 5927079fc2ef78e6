// Package main provides the entry point for the processflow CLI.
//
// processflow runs the stages of an OCR project (preprocessing, despeckling,
// segmentation, region extraction, line segmentation and recognition) in
// their fixed order, feeding each stage only the pages the stage before it
// actually processed.
//
// Usage:
//
//	processflow run --project <dir> --stages preprocessing,segmentation
//	processflow stages
//
// See --help for all available options.
package main

// main is the entry point for processflow.
func main() {
	Execute()
}
