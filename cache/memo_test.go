package cache

import (
	"errors"
	"sync"
	"testing"
)

func TestGetMiss(t *testing.T) {
	c := New[string, int]()
	if v, ok := c.Get("absent"); ok || v != 0 {
		t.Errorf("Get on empty cache = (%d, %v), want (0, false)", v, ok)
	}
}

func TestGetOrCreateMemoizes(t *testing.T) {
	c := New[string, *int]()

	calls := 0
	create := func() (*int, error) {
		calls++
		v := calls
		return &v, nil
	}

	first, err := c.GetOrCreate("k", create)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := c.GetOrCreate("k", create)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first != second {
		t.Error("second lookup returned a different pointer")
	}
	if calls != 1 {
		t.Errorf("create ran %d times, want 1", calls)
	}
}

func TestGetOrCreateErrorNotCached(t *testing.T) {
	c := New[string, int]()
	boom := errors.New("boom")

	if _, err := c.GetOrCreate("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	// A later create must run again and can succeed.
	v, err := c.GetOrCreate("k", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("GetOrCreate after failure = (%d, %v), want (7, nil)", v, err)
	}
}

func TestNoEviction(t *testing.T) {
	c := New[int, int]()
	const n = 10000
	for i := 0; i < n; i++ {
		if _, err := c.GetOrCreate(i, func() (int, error) { return i, nil }); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != n {
		t.Errorf("Len = %d after %d inserts, want all retained", c.Len(), n)
	}
	if v, ok := c.Get(0); !ok || v != 0 {
		t.Errorf("oldest entry evicted: (%d, %v)", v, ok)
	}
}

func TestClearReleases(t *testing.T) {
	c := New[string, int]()
	_, _ = c.GetOrCreate("a", func() (int, error) { return 1, nil })
	_, _ = c.GetOrCreate("b", func() (int, error) { return 2, nil })

	released := make(map[int]bool)
	c.Clear(func(v int) { released[v] = true })

	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear", c.Len())
	}
	if !released[1] || !released[2] {
		t.Errorf("release saw %v, want both values", released)
	}
}

func TestDelete(t *testing.T) {
	c := New[string, int]()
	_, _ = c.GetOrCreate("a", func() (int, error) { return 1, nil })

	if !c.Delete("a") {
		t.Error("Delete of present key = false")
	}
	if c.Delete("a") {
		t.Error("Delete of absent key = true")
	}
}

func TestStats(t *testing.T) {
	c := New[string, int]()
	c.Get("miss")
	_, _ = c.GetOrCreate("k", func() (int, error) { return 1, nil })
	_, _ = c.GetOrCreate("k", func() (int, error) { return 2, nil })

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 2 {
		t.Errorf("Stats = %+v, want 1 hit, 2 misses", s)
	}
	if s.HitRate <= 0.3 || s.HitRate >= 0.4 {
		t.Errorf("HitRate = %v, want 1/3", s.HitRate)
	}

	c.ResetStats()
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("Stats after reset = %+v", s)
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	c := New[int, int]()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := i % 50
				v, err := c.GetOrCreate(key, func() (int, error) { return key * 2, nil })
				if err != nil || v != key*2 {
					t.Errorf("GetOrCreate(%d) = (%d, %v)", key, v, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if c.Len() != 50 {
		t.Errorf("Len = %d, want 50", c.Len())
	}
}
