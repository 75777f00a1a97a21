package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/Habibullo22/Kinouz/pkg/logx"
)

type fakeRegistry struct {
	ids []int64
	err error
}

func (f *fakeRegistry) AllUserIDs(ctx context.Context) ([]int64, error) {
	return f.ids, f.err
}

type fakeCopier struct {
	failFor   map[int64]bool
	delivered []int64
}

func (f *fakeCopier) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	if f.failFor[toChatID] {
		return errors.New("blocked by recipient")
	}
	f.delivered = append(f.delivered, toChatID)
	return nil
}

func TestDispatchContinuesPastFailures(t *testing.T) {
	reg := &fakeRegistry{ids: []int64{1, 2, 3}}
	cp := &fakeCopier{failFor: map[int64]bool{1: true, 3: true}}
	d := New(reg, cp, 1000, logx.Nop())

	ok, fail, err := d.Dispatch(context.Background(), 99, 7)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if ok != 1 || fail != 2 {
		t.Fatalf("tally = (%d, %d), want (1, 2)", ok, fail)
	}
	if len(cp.delivered) != 1 || cp.delivered[0] != 2 {
		t.Fatalf("delivered = %v, want [2] despite earlier failure", cp.delivered)
	}
}

func TestDispatchEmptyRegistry(t *testing.T) {
	d := New(&fakeRegistry{}, &fakeCopier{}, 1000, logx.Nop())

	ok, fail, err := d.Dispatch(context.Background(), 99, 7)
	if err != nil || ok != 0 || fail != 0 {
		t.Fatalf("got (%d, %d, %v), want (0, 0, nil)", ok, fail, err)
	}
}

func TestDispatchRegistryErrorPropagates(t *testing.T) {
	d := New(&fakeRegistry{err: errors.New("db closed")}, &fakeCopier{}, 1000, logx.Nop())

	_, _, err := d.Dispatch(context.Background(), 99, 7)
	if err == nil {
		t.Fatal("expected registry error")
	}
}

func TestDispatchPreservesRegistryOrder(t *testing.T) {
	reg := &fakeRegistry{ids: []int64{5, 3, 9}}
	cp := &fakeCopier{}
	d := New(reg, cp, 1000, logx.Nop())

	if _, _, err := d.Dispatch(context.Background(), 1, 1); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	want := []int64{5, 3, 9}
	for i, id := range want {
		if cp.delivered[i] != id {
			t.Fatalf("delivered = %v, want %v", cp.delivered, want)
		}
	}
}
