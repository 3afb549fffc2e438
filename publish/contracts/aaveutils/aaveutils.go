// Package aaveutils describes the AaveUtils library the Strategy links
// against.
package aaveutils

const (
	name     = "AaveUtils"
	GasLimit = 2_000_000
)

func Name() string { return name }
