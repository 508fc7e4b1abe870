package proxy

import "testing"

func TestPoolRoundRobin(t *testing.T) {
	pool := NewPool([]Descriptor{
		{Host: "1.1.1.1", Port: 1080},
		{Host: "2.2.2.2", Port: 1080},
	}, 0)

	if !pool.Enabled() {
		t.Fatal("expected pool with descriptors to be enabled")
	}

	d1 := pool.Next()
	if d1.Host != "1.1.1.1" {
		t.Errorf("expected 1.1.1.1, got %s", d1.Host)
	}

	d2 := pool.Next()
	if d2.Host != "2.2.2.2" {
		t.Errorf("expected 2.2.2.2, got %s", d2.Host)
	}

	d3 := pool.Next()
	if d3.Host != "1.1.1.1" {
		t.Errorf("expected 1.1.1.1 (loop back), got %s", d3.Host)
	}
}

func TestEmptyPoolDisabled(t *testing.T) {
	var pool *Pool
	if pool.Enabled() {
		t.Fatal("nil pool must report disabled")
	}
	if pool.Next() != nil {
		t.Fatal("nil pool must never hand out a descriptor")
	}

	empty := NewPool(nil, 0)
	if empty.Enabled() {
		t.Fatal("pool with no descriptors must report disabled")
	}
}
