package model

// ModelInfo describes a single model available on a provider. Detail fields
// are best effort, remote providers usually only expose the name.
type ModelInfo struct {
	Name string
	// SizeBytes is the on-disk size for local models, 0 when unknown.
	SizeBytes int64
	// ParameterSize is e.g. "14B", "7B".
	ParameterSize string
	// QuantizationLevel is e.g. "Q4_K_M".
	QuantizationLevel string
	// Family is e.g. "qwen2", "llama".
	Family string
}
