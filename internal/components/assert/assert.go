// Package assert guards constructor arguments that are only nil through a
// wiring mistake.
package assert

// NotNil panics when a required dependency (a telemetry API, a processor) was
// never provided.
func NotNil(value any) {
	if value == nil {
		panic("assert: required dependency is nil")
	}
}
