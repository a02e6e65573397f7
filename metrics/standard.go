package metrics

// Pre-defined emulator metrics. All metrics live in DefaultRegistry so they
// are globally accessible without passing a registry around.

var (
	// ---- Execution metrics ----

	// InstructionsRetired counts instructions that completed a step.
	InstructionsRetired = DefaultRegistry.Counter("cpu.instructions_retired")
	// BranchesTaken counts taken conditional branches and jumps.
	BranchesTaken = DefaultRegistry.Counter("cpu.branches_taken")
	// MemoryLoads counts data reads issued by load instructions.
	MemoryLoads = DefaultRegistry.Counter("cpu.memory_loads")
	// MemoryStores counts data writes issued by store instructions.
	MemoryStores = DefaultRegistry.Counter("cpu.memory_stores")
	// StepErrors counts steps that failed with a fatal fault.
	StepErrors = DefaultRegistry.Counter("cpu.step_errors")

	// ---- Loader metrics ----

	// ImagesLoaded counts images successfully placed into RAM.
	ImagesLoaded = DefaultRegistry.Counter("loader.images_loaded")
	// SegmentsLoaded counts ELF segments (or flat images) copied into RAM.
	SegmentsLoaded = DefaultRegistry.Counter("loader.segments_loaded")
	// ImageBytes tracks the size of the most recently loaded image.
	ImageBytes = DefaultRegistry.Gauge("loader.image_bytes")

	// ---- Run metrics ----

	// RunDuration records wall-clock run time in microseconds.
	RunDuration = DefaultRegistry.Histogram("run.duration_us")
	// RunSteps tracks the number of steps executed by the last run.
	RunSteps = DefaultRegistry.Gauge("run.steps")
)
