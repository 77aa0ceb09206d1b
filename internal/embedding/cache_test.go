package embedding

import (
	"reflect"
	"testing"
)

func TestLabelCache_Lookup(t *testing.T) {
	c := newLabelCache(4)
	c.add("a photo of a shoe", []float32{1, 0})
	c.add("a photo of a bag", []float32{0, 1})

	vecs, missing := c.lookup([]string{"a photo of a bag", "a red shoe", "a photo of a shoe"})
	if !reflect.DeepEqual(missing, []int{1}) {
		t.Errorf("missing = %v, want [1]", missing)
	}
	if vecs[0][1] != 1 || vecs[1] != nil || vecs[2][0] != 1 {
		t.Errorf("vecs = %v", vecs)
	}
}

func TestLabelCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLabelCache(2)
	c.add("sneaker", []float32{1})
	c.add("boot", []float32{2})
	c.lookup([]string{"sneaker"})
	c.add("sandal", []float32{3})

	_, missing := c.lookup([]string{"sneaker", "boot", "sandal"})
	if !reflect.DeepEqual(missing, []int{1}) {
		t.Errorf("missing = %v, want boot evicted", missing)
	}
	if c.len() != 2 {
		t.Errorf("len = %d, want 2", c.len())
	}
}

func TestLabelCache_Replace(t *testing.T) {
	c := newLabelCache(0)
	c.add("tote", []float32{1})
	c.add("tote", []float32{9})
	vecs, missing := c.lookup([]string{"tote"})
	if len(missing) != 0 || vecs[0][0] != 9 {
		t.Errorf("got %v missing %v, want replaced value", vecs, missing)
	}
	if c.len() != 1 {
		t.Errorf("len = %d", c.len())
	}
}
