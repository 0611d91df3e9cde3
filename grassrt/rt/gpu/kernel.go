package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/meadow/grassrt/rt/core"
	"github.com/gekko3d/meadow/grassrt/rt/kernel"
	"github.com/gekko3d/meadow/grassrt/rt/shaders"
)

// WorkgroupSize matches @workgroup_size in grass_compute.wgsl.
const WorkgroupSize = 32

var ErrNoAdapter = errors.New("gpu: no suitable adapter")

var _ kernel.Simulator = (*Kernel)(nil)

// Kernel runs the grass step as a compute shader. Blades are uploaded before
// and read back after every step so the caller's slice stays the source of
// truth.
type Kernel struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	Pipeline  *wgpu.ComputePipeline
	BindGroup *wgpu.BindGroup

	ParamsBuf    *wgpu.Buffer
	BladesBuf    *wgpu.Buffer
	CulledBuf    *wgpu.Buffer
	NumBladesBuf *wgpu.Buffer
	StatsBuf     *wgpu.Buffer
	StagingBuf   *wgpu.Buffer

	capacity int

	forces core.ForceParams
	cull   core.CullConfig
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
}

type Option func(*Kernel)

// WithLogger routes driver diagnostics to l. A nil logger discards them.
func WithLogger(l *slog.Logger) Option {
	return func(k *Kernel) {
		if l == nil {
			l = kernel.NopLogger()
		}
		k.log = l
	}
}

// New acquires an adapter and device and builds the compute pipeline.
func New(forces core.ForceParams, cull core.CullConfig, opts ...Option) (*Kernel, error) {
	k := &Kernel{
		forces: forces,
		cull:   cull,
		log:    kernel.NopLogger(),
	}
	for _, opt := range opts {
		opt(k)
	}

	k.Instance = wgpu.CreateInstance(nil)
	adapter, err := k.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil || adapter == nil {
		k.Instance.Release()
		return nil, fmt.Errorf("%w: %v", ErrNoAdapter, err)
	}
	k.Adapter = adapter

	k.Device, err = adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Grass Device",
	})
	if err != nil {
		k.release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	k.Queue = k.Device.GetQueue()

	if err := k.createPipeline(); err != nil {
		k.release()
		return nil, err
	}

	k.ParamsBuf, err = k.createBuffer("GrassParamsBuf", ParamsSize, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err == nil {
		k.NumBladesBuf, err = k.createBuffer("NumBladesBuf", core.DrawIndirectArgsSize,
			wgpu.BufferUsageStorage|wgpu.BufferUsageIndirect|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	}
	if err == nil {
		k.StatsBuf, err = k.createBuffer("GrassStatsBuf", StatsSize,
			wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	}
	if err != nil {
		k.release()
		return nil, err
	}

	k.log.Info("gpu kernel ready", "workgroup_size", WorkgroupSize)
	return k, nil
}

func (k *Kernel) createPipeline() error {
	shaderModule, err := k.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "GrassComputeShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.GrassComputeWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create grass shader module: %w", err)
	}
	defer shaderModule.Release()

	k.Pipeline, err = k.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "GrassComputePipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shaderModule,
			EntryPoint: shaders.GrassComputeEntryPoint,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create grass pipeline: %w", err)
	}
	return nil
}

func (k *Kernel) createBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	if size%4 != 0 {
		size += 4 - size%4
	}
	buf, err := k.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", label, err)
	}
	return buf, nil
}

// ensureCapacity grows the per-blade buffers and rebuilds the bind group.
func (k *Kernel) ensureCapacity(n int) error {
	if n <= k.capacity && k.BindGroup != nil {
		return nil
	}
	releaseBuffer(&k.BladesBuf)
	releaseBuffer(&k.CulledBuf)
	releaseBuffer(&k.StagingBuf)
	if k.BindGroup != nil {
		k.BindGroup.Release()
		k.BindGroup = nil
	}

	bladeBytes := uint64(n * core.BladeStride)
	var err error
	k.BladesBuf, err = k.createBuffer("BladesBuf", bladeBytes,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	k.CulledBuf, err = k.createBuffer("CulledBladesBuf", bladeBytes,
		wgpu.BufferUsageStorage|wgpu.BufferUsageVertex|wgpu.BufferUsageCopySrc)
	if err != nil {
		return err
	}
	k.StagingBuf, err = k.createBuffer("GrassStagingBuf", stagingSize(n),
		wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}

	k.BindGroup, err = k.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: k.Pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: k.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: k.BladesBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: k.CulledBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: k.NumBladesBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: k.StatsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create grass bind group: %w", err)
	}
	k.capacity = n
	k.log.Debug("grass buffers resized", "capacity", n)
	return nil
}

// Staging layout: blades, visible blades, indirect args, stats.
func stagingSize(n int) uint64 {
	return uint64(2*n*core.BladeStride + core.DrawIndirectArgsSize + StatsSize)
}

// Simulate uploads blades, dispatches one step and reads everything back.
func (k *Kernel) Simulate(blades []core.Blade, frame core.Frame, out *core.VisibleSet) (core.StepStats, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return core.StepStats{}, kernel.ErrClosed
	}
	if out == nil {
		return core.StepStats{}, kernel.ErrNilVisibleSet
	}

	n := len(blades)
	out.Ensure(n)
	out.Reset()
	if n == 0 {
		return core.StepStats{}, nil
	}
	if err := k.ensureCapacity(n); err != nil {
		return core.StepStats{}, err
	}

	// Phase 1: reset and sync. Queue writes complete before the dispatch below.
	k.Queue.WriteBuffer(k.NumBladesBuf, 0, core.DrawIndirectArgs{InstanceCount: 1}.Marshal())
	k.Queue.WriteBuffer(k.StatsBuf, 0, make([]byte, StatsSize))
	k.Queue.WriteBuffer(k.ParamsBuf, 0, encodeParams(frame, k.forces, k.cull, uint32(n)))
	k.Queue.WriteBuffer(k.BladesBuf, 0, core.EncodeBlades(blades))

	// Phase 2: simulate.
	encoder, err := k.Device.CreateCommandEncoder(nil)
	if err != nil {
		return core.StepStats{}, fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(k.Pipeline)
	pass.SetBindGroup(0, k.BindGroup, nil)
	pass.DispatchWorkgroups(uint32(kernel.Workgroups(n, WorkgroupSize)), 1, 1)
	pass.End()

	bladeBytes := uint64(n * core.BladeStride)
	encoder.CopyBufferToBuffer(k.BladesBuf, 0, k.StagingBuf, 0, bladeBytes)
	encoder.CopyBufferToBuffer(k.CulledBuf, 0, k.StagingBuf, bladeBytes, bladeBytes)
	encoder.CopyBufferToBuffer(k.NumBladesBuf, 0, k.StagingBuf, 2*bladeBytes, core.DrawIndirectArgsSize)
	encoder.CopyBufferToBuffer(k.StatsBuf, 0, k.StagingBuf, 2*bladeBytes+core.DrawIndirectArgsSize, StatsSize)

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return core.StepStats{}, fmt.Errorf("failed to finish grass commands: %w", err)
	}
	k.Queue.Submit(cmdBuf)
	cmdBuf.Release()

	data, err := k.readback(stagingSize(n))
	if err != nil {
		return core.StepStats{}, err
	}

	core.DecodeBlades(data[:bladeBytes], blades)
	args := core.UnmarshalDrawIndirectArgs(data[2*bladeBytes:])
	visible := min(int(args.VertexCount), n)
	core.DecodeBlades(data[bladeBytes:2*bladeBytes], out.Blades[:visible])
	out.SetCount(uint32(visible))

	stats := decodeStats(data[2*bladeBytes+core.DrawIndirectArgsSize:], n)
	if err := k.StagingBuf.Unmap(); err != nil {
		return core.StepStats{}, fmt.Errorf("failed to unmap grass staging buffer: %w", err)
	}
	k.log.Debug("grass step",
		"blades", n,
		"visible", stats.Visible,
		"culled_orientation", stats.CulledOrientation,
		"culled_distance", stats.CulledDistance,
		"culled_frustum", stats.CulledFrustum,
	)
	return stats, nil
}

// readback maps the staging buffer and blocks until it is readable.
// The caller unmaps it.
func (k *Kernel) readback(size uint64) ([]byte, error) {
	err := awaitMapped(
		func(cb wgpu.BufferMapCallback) error {
			return k.StagingBuf.MapAsync(wgpu.MapModeRead, 0, size, cb)
		},
		func() { k.Device.Poll(true, nil) },
	)
	if err != nil {
		return nil, err
	}
	return k.StagingBuf.GetMappedRange(0, uint(size)), nil
}

// awaitMapped issues a map request and polls until its callback fires.
// A request rejected up front is never polled for.
func awaitMapped(mapAsync func(wgpu.BufferMapCallback) error, poll func()) error {
	var status wgpu.BufferMapAsyncStatus
	done := false
	if err := mapAsync(func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	}); err != nil {
		return fmt.Errorf("failed to map grass staging buffer: %w", err)
	}
	for !done {
		poll()
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("failed to map grass staging buffer: status %d", status)
	}
	return nil
}

// SetCulling swaps the cull configuration used by subsequent steps.
func (k *Kernel) SetCulling(cull core.CullConfig) {
	k.mu.Lock()
	k.cull = cull
	k.mu.Unlock()
}

// SetForces swaps the force constants used by subsequent steps.
func (k *Kernel) SetForces(forces core.ForceParams) {
	k.mu.Lock()
	k.forces = forces
	k.mu.Unlock()
}

func (k *Kernel) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return
	}
	k.closed = true
	k.release()
}

func (k *Kernel) release() {
	if k.BindGroup != nil {
		k.BindGroup.Release()
		k.BindGroup = nil
	}
	releaseBuffer(&k.BladesBuf)
	releaseBuffer(&k.CulledBuf)
	releaseBuffer(&k.StagingBuf)
	releaseBuffer(&k.ParamsBuf)
	releaseBuffer(&k.NumBladesBuf)
	releaseBuffer(&k.StatsBuf)
	if k.Pipeline != nil {
		k.Pipeline.Release()
		k.Pipeline = nil
	}
	if k.Queue != nil {
		k.Queue.Release()
		k.Queue = nil
	}
	if k.Device != nil {
		k.Device.Release()
		k.Device = nil
	}
	if k.Adapter != nil {
		k.Adapter.Release()
		k.Adapter = nil
	}
	if k.Instance != nil {
		k.Instance.Release()
		k.Instance = nil
	}
}

func releaseBuffer(buf **wgpu.Buffer) {
	if *buf != nil {
		(*buf).Release()
		*buf = nil
	}
}
