package observable

// TrackStats summarizes one Track pass.
type TrackStats struct {
	// Reads is the number of recorded reads, duplicates included.
	Reads int

	// Added is the number of new subscriber graph edges.
	Added int

	// Removed is the number of edges dropped by pruning.
	Removed int
}

// Hooks observes engine activity. Implementations must be cheap and must
// not read or write tracked objects.
type Hooks interface {
	// Read is called for every tracked read.
	Read(id PropertyID)

	// Wrote is called after a value is stored into a tracked field.
	Wrote(id PropertyID)

	// Notified is called before the subscribers of a written field run.
	// The returned function is called once they have all returned.
	Notified(id PropertyID, subscribers int) func()

	// TrackStarted is called when a Track pass begins. The returned
	// function receives the pass statistics when it ends.
	TrackStarted(r *Reaction) func(TrackStats)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) Read(PropertyID)                       {}
func (NopHooks) Wrote(PropertyID)                      {}
func (NopHooks) Notified(PropertyID, int) func()       { return func() {} }
func (NopHooks) TrackStarted(*Reaction) func(TrackStats) { return func(TrackStats) {} }

// MultiHooks fans events out to several hooks in order.
type MultiHooks []Hooks

func (m MultiHooks) Read(id PropertyID) {
	for _, h := range m {
		h.Read(id)
	}
}

func (m MultiHooks) Wrote(id PropertyID) {
	for _, h := range m {
		h.Wrote(id)
	}
}

func (m MultiHooks) Notified(id PropertyID, subscribers int) func() {
	dones := make([]func(), len(m))
	for i, h := range m {
		dones[i] = h.Notified(id, subscribers)
	}
	return func() {
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i]()
		}
	}
}

func (m MultiHooks) TrackStarted(r *Reaction) func(TrackStats) {
	dones := make([]func(TrackStats), len(m))
	for i, h := range m {
		dones[i] = h.TrackStarted(r)
	}
	return func(s TrackStats) {
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i](s)
		}
	}
}
