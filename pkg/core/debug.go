package core

// DebugMode enables the strict hook-order checks. When true, a pass that
// requests more or fewer slots than the previous pass over the same
// context fails with a contract error. When false, extra slots are
// appended and unused trailing slots are left in place.
var DebugMode = true

// SetDebugMode enables or disables the strict hook-order checks.
func SetDebugMode(debug bool) {
	DebugMode = debug
}
