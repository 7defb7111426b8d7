package types

const (
	// ModuleName defines the engine's error codespace
	ModuleName = "matchengine"
)
