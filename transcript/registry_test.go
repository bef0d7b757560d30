package transcript

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryAddIsIdempotent(t *testing.T) {
	r := NewRegistry()

	if !r.Add("t1", "Read", `{"path":"a.py"}`) {
		t.Fatal("first Add should succeed")
	}
	if r.Add("t1", "Write", `{"path":"b.py"}`) {
		t.Error("duplicate Add should be rejected")
	}

	rec, ok := r.Get("t1")
	if !ok {
		t.Fatal("record should exist")
	}
	if rec.Name != "Read" || rec.Arguments != `{"path":"a.py"}` {
		t.Errorf("duplicate Add must not overwrite: %+v", rec)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryAttachResultAtMostOnce(t *testing.T) {
	r := NewRegistry()
	r.Add("t1", "Read", "{}")

	if !r.AttachResult("t1", "contents") {
		t.Fatal("first AttachResult should succeed")
	}
	if r.AttachResult("t1", "other") {
		t.Error("second AttachResult should be a no-op")
	}
	if r.AttachResult("unknown", "x") {
		t.Error("AttachResult for unknown id should be rejected")
	}

	rec, _ := r.Get("t1")
	if !rec.HasResult || rec.Result != "contents" {
		t.Errorf("result must keep its first value: %+v", rec)
	}
}

func TestRegistryEmptyResultStillCountsAsAttached(t *testing.T) {
	r := NewRegistry()
	r.Add("t1", "Ping", "{}")

	if !r.AttachResult("t1", "") {
		t.Fatal("attaching an empty result should succeed")
	}
	if r.AttachResult("t1", "late") {
		t.Error("empty result still seals the record")
	}

	rec, _ := r.Get("t1")
	if !rec.HasResult {
		t.Error("HasResult should be true after attaching empty result")
	}
}

func TestRegistryConcurrentReadsDuringAttach(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 100; i++ {
		r.Add(fmt.Sprintf("t%d", i), "Tool", "{}")
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.AttachResult(id, "done")
		}(fmt.Sprintf("t%d", i))

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if rec, ok := r.Get(id); ok && rec.HasResult && rec.Result != "done" {
				t.Errorf("observed half-written record: %+v", rec)
			}
		}(fmt.Sprintf("t%d", i))
	}
	wg.Wait()
}
