package pipeline

// Preprocessing constants
const (
	// Fixed luminance cutoff for the global threshold strategy
	GlobalCutoff = 160

	// Adaptive threshold neighbourhood (odd) and constant subtracted from the weighted mean
	AdaptiveBlockSize = 11
	AdaptiveC         = 2

	// Strategy names accepted by NewPreprocessor
	StrategyGlobal   = "global"
	StrategyAdaptive = "adaptive"
)
