package cache

// Metrics receives cache lifecycle events.
type Metrics interface {
	Hit()
	Miss()
	// Expire fires when a read or a sweep finds an entry past its expiry.
	Expire()
	Saved()
	SaveFailure()
	// Swept reports how many entries a sweep removed.
	Swept(n int)
}

// NoopMetrics ignores every event.
type NoopMetrics struct{}

func (NoopMetrics) Hit()         {}
func (NoopMetrics) Miss()        {}
func (NoopMetrics) Expire()      {}
func (NoopMetrics) Saved()       {}
func (NoopMetrics) SaveFailure() {}
func (NoopMetrics) Swept(int)    {}
