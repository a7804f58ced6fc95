package entitymgr

import "testing"

func TestCreateAssignsGenerationOne(t *testing.T) {
	m := New(4)
	id, err := m.Create(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Generation != 1 {
		t.Fatalf("expected generation 1, got %d", id.Generation)
	}
	if !m.Live(id) {
		t.Fatal("expected newly created entity to be live")
	}
}

func TestDestroyThenRecycleBumpsGeneration(t *testing.T) {
	m := New(4)
	id, _ := m.Create(true)
	if !m.Destroy(id) {
		t.Fatal("expected Destroy to succeed on a live entity")
	}
	if m.Live(id) {
		t.Fatal("expected entity dead after Destroy")
	}

	recycled, _ := m.Create(true)
	if recycled.Index != id.Index {
		t.Fatalf("expected the freed index to be recycled, got %d want %d", recycled.Index, id.Index)
	}
	if recycled.Generation != id.Generation+1 {
		t.Fatalf("expected generation bumped on recycle, got %d", recycled.Generation)
	}
	if m.Live(id) {
		t.Fatal("expected the stale handle to report dead after recycling")
	}
	if !m.Live(recycled) {
		t.Fatal("expected the recycled handle to be live")
	}
}

func TestDestroyDeadIsNoop(t *testing.T) {
	m := New(4)
	id, _ := m.Create(true)
	m.Destroy(id)
	if m.Destroy(id) {
		t.Fatal("expected Destroy on an already-dead entity to report false")
	}
}

func TestSetActiveReportsChange(t *testing.T) {
	m := New(4)
	id, _ := m.Create(true)
	if m.SetActive(id, true) {
		t.Fatal("expected no-op SetActive to report no change")
	}
	if !m.SetActive(id, false) {
		t.Fatal("expected SetActive to report a change")
	}
	if m.Record(id).Active {
		t.Fatal("expected entity to be inactive")
	}
}

func TestRecordPointerStableAcrossFurtherCreates(t *testing.T) {
	m := New(2)
	id, _ := m.Create(true)
	rec := m.Record(id)
	rec.Row = 42
	for i := 0; i < 10; i++ {
		m.Create(true)
	}
	if m.Record(id).Row != 42 {
		t.Fatal("expected record pointer/content to survive further allocation")
	}
}
