package metrics

// Prometheus metric namespaces
const (
	namespaceCementing = "cementing"
)

// Prometheus metric subsystems
const (
	subsystemBatch = "batch"
)
