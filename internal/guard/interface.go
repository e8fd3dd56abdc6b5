package guard

// Guard is the input screening interface. Handlers depend on this so
// tests can inject a stub.
type Guard interface {
	// Evaluate scores the input.
	Evaluate(input string) Evaluation

	// EnsureSafe returns an error for malicious input.
	EnsureSafe(input string) error

	// IsMalicious reports whether the input is malicious.
	IsMalicious(input string) bool
}

var _ Guard = (*InjectionGuard)(nil)
