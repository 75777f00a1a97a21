// Package session holds the per-user conversation state.
//
// Each user has at most one active flow at a time: the state is a single
// tagged record, and Begin replaces whatever flow was active before. The
// Store also hands out a per-user ordering token (Acquire) so that handling
// of two rapid messages from the same user cannot interleave around the
// read-decide-write of the session record.
package session

import "sync"

// Kind tags the active flow of a session record.
type Kind int

const (
	None Kind = iota
	AddMovie
	Delete
	Search
	BroadcastWait
	Retrieve
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case AddMovie:
		return "add_movie"
	case Delete:
		return "delete"
	case Search:
		return "search"
	case BroadcastWait:
		return "broadcast_wait"
	case Retrieve:
		return "retrieve"
	default:
		return "unknown"
	}
}

// AddMovie wizard steps.
const (
	StepCode  = 1
	StepTitle = 2
	StepVideo = 3
)

// State is one user's active flow and the fields accumulated so far.
// Step/Code/Title are only meaningful for AddMovie.
type State struct {
	Kind  Kind
	Step  int
	Code  string
	Title string
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// Store keeps session records in memory; conversation state does not survive
// a process restart.
type Store struct {
	mu     sync.Mutex
	active map[int64]State
	locks  map[int64]*userLock
}

func NewStore() *Store {
	return &Store{
		active: make(map[int64]State),
		locks:  make(map[int64]*userLock),
	}
}

// Acquire serializes handling for one user. The returned release func must be
// called exactly once; until then any other Acquire for the same user blocks.
// Different users never block each other.
func (s *Store) Acquire(userID int64) (release func()) {
	s.mu.Lock()
	l := s.locks[userID]
	if l == nil {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// Active returns the user's current flow state; ok is false when no flow is
// active.
func (s *Store) Active(userID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.active[userID]
	return st, ok && st.Kind != None
}

// Begin starts a flow for the user, implicitly abandoning any other
// in-progress flow (flows are mutually exclusive).
func (s *Store) Begin(userID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Kind == None {
		delete(s.active, userID)
		return
	}
	s.active[userID] = st
}

// Update stores the advanced step state of the user's active flow.
func (s *Store) Update(userID int64, st State) {
	s.Begin(userID, st)
}

// End clears the user's active flow, if any.
func (s *Store) End(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, userID)
}
