package cache

import "testing"

func TestInMemory_GetOutput_Miss(t *testing.T) {
	c := NewInMemory(0)
	if _, ok := c.GetOutput("square", "abc"); ok {
		t.Error("GetOutput() ok = true for empty cache, want false")
	}
}

func TestInMemory_SaveThenGet(t *testing.T) {
	c := NewInMemory(0)
	c.SaveOutput("square", "abc", map[string]any{"output": 25})

	got, ok := c.GetOutput("square", "abc")
	if !ok {
		t.Fatal("GetOutput() ok = false, want true")
	}
	if got["output"] != 25 {
		t.Errorf("GetOutput() = %v, want output=25", got)
	}
}

func TestInMemory_KeyedByTypeAndFingerprint(t *testing.T) {
	c := NewInMemory(0)
	c.SaveOutput("square", "abc", map[string]any{"output": 25})

	if _, ok := c.GetOutput("double", "abc"); ok {
		t.Error("GetOutput() cross-type hit, want isolation by type name")
	}
}

func TestInMemory_EvictsOldestBeyondMaxSize(t *testing.T) {
	c := NewInMemory(2)
	c.SaveOutput("t", "1", map[string]any{"v": 1})
	c.SaveOutput("t", "2", map[string]any{"v": 2})
	c.SaveOutput("t", "3", map[string]any{"v": 3})

	if _, ok := c.GetOutput("t", "1"); ok {
		t.Error("GetOutput(1) hit after eviction, want miss")
	}
	if _, ok := c.GetOutput("t", "3"); !ok {
		t.Error("GetOutput(3) miss, want hit for most recently saved entry")
	}
	if got := c.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}
