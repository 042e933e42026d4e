package chatlist

import "sync"

// SyncState is the process-wide "initial sync has completed" flag. It starts
// false and is set once; a remount of the chat list consults it instead of
// re-triggering a full sync. Injected so tests can reset it.
type SyncState struct {
	mu   sync.Mutex
	done bool
}

// NewSyncState returns a fresh flag.
func NewSyncState() *SyncState {
	return &SyncState{}
}

// InitialSyncDone reports whether a full sync has completed this process.
func (s *SyncState) InitialSyncDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// MarkInitialSyncDone latches the flag.
func (s *SyncState) MarkInitialSyncDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

// Reset clears the flag. Test use only.
func (s *SyncState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = false
}
