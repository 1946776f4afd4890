package services

// Fees carries the configured fee schedule, in USDC cents. Injected by the
// caller so services never read process-global configuration.
type Fees struct {
	Registration int64
	Game         int64
	Tournament   int64
}
