package ir

// Version constants for the IR encoding.
const (
	// IRVersion is the IR schema version embedded in persisted trees.
	IRVersion = "1"

	// BackendVersion is the reference lowering backend version.
	BackendVersion = "0.1.0"
)
