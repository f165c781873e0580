package physics

import "testing"

func TestEventInvokeOrder(t *testing.T) {
	var e Event[int]
	var got []int
	e.AddListener(func(v int) { got = append(got, v) })
	e.AddListener(func(v int) { got = append(got, v*10) })
	if id := e.AddListener(nil); id != 0 {
		t.Errorf("Expected id 0 for nil listener, got %d", id)
	}

	e.Invoke(2)
	if len(got) != 2 || got[0] != 2 || got[1] != 20 {
		t.Errorf("Expected [2 20], got %v", got)
	}
}

func TestEventRemoveListener(t *testing.T) {
	var e Event[string]
	calls := 0
	id := e.AddListener(func(string) { calls++ })
	e.AddListener(func(string) { calls += 100 })

	if !e.RemoveListener(id) {
		t.Fatal("Expected listener to be removed")
	}
	if e.RemoveListener(id) {
		t.Error("Removing twice should fail")
	}
	e.Invoke("x")
	if calls != 100 {
		t.Errorf("Expected only the second listener to run, calls = %d", calls)
	}
}
