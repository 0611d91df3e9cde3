package shaders

import (
	_ "embed"
)

//go:embed grass_compute.wgsl
var GrassComputeWGSL string

// GrassComputeEntryPoint is the compute entry point in GrassComputeWGSL.
const GrassComputeEntryPoint = "main"
