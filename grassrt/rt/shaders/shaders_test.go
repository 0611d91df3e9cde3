package shaders

import (
	"strings"
	"testing"

	"github.com/gogpu/naga"
)

// TestGrassComputeCompilation checks the kernel compiles to SPIR-V.
func TestGrassComputeCompilation(t *testing.T) {
	if GrassComputeWGSL == "" {
		t.Fatal("grass compute shader source is empty")
	}

	spirvBytes, err := naga.Compile(GrassComputeWGSL)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "runtime-sized arrays not yet implemented") {
			t.Skip("Skipping: naga doesn't yet support runtime-sized arrays")
		}
		if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		if strings.Contains(errStr, "lowering error") || strings.Contains(errStr, "atomic") {
			t.Skipf("Skipping: naga atomic/lowering limitation: %v", err)
		}
		t.Fatalf("failed to compile grass compute shader: %v", err)
	}

	if len(spirvBytes) < 4 {
		t.Fatal("SPIR-V too short")
	}
	magic := uint32(spirvBytes[0]) |
		uint32(spirvBytes[1])<<8 |
		uint32(spirvBytes[2])<<16 |
		uint32(spirvBytes[3])<<24
	if magic != 0x07230203 {
		t.Errorf("invalid SPIR-V magic: got 0x%08X, want 0x07230203", magic)
	}
}

func TestGrassComputeLayout(t *testing.T) {
	for _, want := range []string{
		"@compute @workgroup_size(32)",
		"fn " + GrassComputeEntryPoint + "(",
		"@group(0) @binding(0) var<uniform> params: Params;",
		"@group(0) @binding(1) var<storage, read_write> blades: array<Blade>;",
		"@group(0) @binding(2) var<storage, read_write> culled_blades: array<Blade>;",
		"@group(0) @binding(3) var<storage, read_write> num_blades: NumBlades;",
		"@group(0) @binding(4) var<storage, read_write> stats: Stats;",
		"atomicAdd(&num_blades.vertex_count, 1u)",
	} {
		if !strings.Contains(GrassComputeWGSL, want) {
			t.Errorf("shader is missing %q", want)
		}
	}
}
