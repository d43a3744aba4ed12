package service

// mutationState tracks an optimistic balance update. Rollback is a
// structural transition back to the previous value, not ad-hoc variable
// restoration.
type mutationState int

const (
	stateIdle mutationState = iota
	statePending
	stateCommitted
	stateRolledBack
)

// balanceState is the cached view of one identity's balance together with
// the state of its in-flight mutation.
type balanceState struct {
	state mutationState
	value int64
	prev  int64
}

// begin applies an optimistic value and remembers the previous one.
func (b *balanceState) begin(next int64) {
	b.prev = b.value
	b.value = next
	b.state = statePending
}

// commit settles the mutation on the authoritative value returned by the
// store.
func (b *balanceState) commit(final int64) {
	b.value = final
	b.state = stateCommitted
}

// rollback restores the pre-mutation value after a persistence failure.
func (b *balanceState) rollback() {
	b.value = b.prev
	b.state = stateRolledBack
}

// settled reports whether the cached value can be trusted for reads.
func (b *balanceState) settled() bool {
	return b.state == stateCommitted
}
