package envelope

// Test-only exports for internal functions.
var (
	EndsWithParam    = endsWithParam
	NormalizePayload = normalizePayload
	LevelFor         = levelFor
)
