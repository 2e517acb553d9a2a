// Package workflows holds the workflow definitions built into the binary.
package workflows

import _ "embed"

// Default is the discover, download, transcribe, score, render and upload
// workflow used when no workflow file is given.
//
//go:embed viralshorts.yaml
var Default []byte
