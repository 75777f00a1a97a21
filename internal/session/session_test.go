package session

import (
	"sync"
	"testing"
	"time"
)

func TestBeginReplacesActiveFlow(t *testing.T) {
	s := NewStore()

	s.Begin(1, State{Kind: Delete})
	s.Begin(1, State{Kind: AddMovie, Step: StepCode})

	st, ok := s.Active(1)
	if !ok {
		t.Fatal("expected an active flow")
	}
	if st.Kind != AddMovie || st.Step != StepCode {
		t.Fatalf("active = %+v, want AddMovie step 1", st)
	}
}

func TestEndClearsFlow(t *testing.T) {
	s := NewStore()

	s.Begin(1, State{Kind: Search})
	s.End(1)

	if _, ok := s.Active(1); ok {
		t.Fatal("flow still active after End")
	}
	// End on an idle user is a no-op.
	s.End(2)
}

func TestUsersAreIndependent(t *testing.T) {
	s := NewStore()

	s.Begin(1, State{Kind: Retrieve})
	s.Begin(2, State{Kind: BroadcastWait})
	s.End(1)

	if _, ok := s.Active(1); ok {
		t.Fatal("user 1 flow should be gone")
	}
	st, ok := s.Active(2)
	if !ok || st.Kind != BroadcastWait {
		t.Fatalf("user 2 flow = %+v ok=%v, want BroadcastWait", st, ok)
	}
}

func TestUpdateAdvancesStepState(t *testing.T) {
	s := NewStore()

	s.Begin(1, State{Kind: AddMovie, Step: StepCode})
	s.Update(1, State{Kind: AddMovie, Step: StepTitle, Code: "102"})

	st, _ := s.Active(1)
	if st.Step != StepTitle || st.Code != "102" {
		t.Fatalf("state = %+v, want step 2 with code 102", st)
	}
}

func TestAcquireSerializesSameUser(t *testing.T) {
	s := NewStore()

	// Two goroutines perform a read-decide-write on the same session; without
	// the per-user token both would observe step 1 and advance only once.
	s.Begin(1, State{Kind: AddMovie, Step: StepCode})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := s.Acquire(1)
			defer release()
			st, _ := s.Active(1)
			time.Sleep(10 * time.Millisecond) // widen the race window
			st.Step++
			s.Update(1, st)
		}()
	}
	wg.Wait()

	st, _ := s.Active(1)
	if st.Step != StepVideo {
		t.Fatalf("step = %d, want %d (lost update)", st.Step, StepVideo)
	}
}

func TestAcquireDifferentUsersDoNotBlock(t *testing.T) {
	s := NewStore()

	release1 := s.Acquire(1)
	defer release1()

	done := make(chan struct{})
	go func() {
		release2 := s.Acquire(2)
		release2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquire for another user blocked")
	}
}
