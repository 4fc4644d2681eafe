package buffer

import "testing"

func TestAppendAndText(t *testing.T) {
	b := New()
	b.Append([]uint16{'a', 'b'})
	if b.Text() != "ab" {
		t.Fatalf("Text() = %q", b.Text())
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d", b.Len())
	}
}

func TestAppendTruncatesFromHead(t *testing.T) {
	b := NewWithCap(4)
	b.Append([]uint16{'a', 'b', 'c', 'd'})
	truncated := b.Append([]uint16{'e'})
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if b.Text() != "bcde" {
		t.Fatalf("Text() = %q, want bcde", b.Text())
	}
}

func TestTruncateAndClear(t *testing.T) {
	b := New()
	b.Append([]uint16{'a', 'b', 'c'})
	b.Truncate(1)
	if b.Text() != "a" {
		t.Fatalf("Truncate: Text() = %q", b.Text())
	}
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("Clear: Len() = %d", b.Len())
	}
}

func TestTail(t *testing.T) {
	b := New()
	b.Append([]uint16{'a', 'b', 'c'})
	if got := decodeUnits(b.Tail(2)); got != "bc" {
		t.Fatalf("Tail(2) = %q", got)
	}
	if len(b.Tail(10)) != 3 {
		t.Fatalf("Tail beyond length should return whole buffer")
	}
}

func TestDeleteTrailingCodePointSimple(t *testing.T) {
	b := New()
	b.Append([]uint16{'a', 'b', 'c'})
	removed := b.DeleteTrailingCodePoint()
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if b.Text() != "ab" {
		t.Fatalf("Text() = %q", b.Text())
	}
}

func TestDeleteTrailingCodePointEmpty(t *testing.T) {
	b := New()
	if removed := b.DeleteTrailingCodePoint(); removed != 0 {
		t.Fatalf("removed = %d on empty buffer, want 0", removed)
	}
}

func TestDeleteTrailingCodePointCombiningMark(t *testing.T) {
	b := New()
	// "e" + combining acute accent (U+0301): one grapheme cluster, two code points.
	units := encodeUnits("é")
	b.Append(units)
	removed := b.DeleteTrailingCodePoint()
	if removed != len(units) {
		t.Fatalf("removed = %d, want whole cluster (%d units)", removed, len(units))
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after removing the only cluster")
	}
}

func TestSwitches(t *testing.T) {
	b := New()
	if b.HasSwitch(1) {
		t.Fatalf("switch 1 should start inactive")
	}
	b.SetSwitch(1)
	if !b.HasSwitch(1) {
		t.Fatalf("switch 1 should be active after SetSwitch")
	}
	b.ClearSwitch(1)
	if b.HasSwitch(1) {
		t.Fatalf("switch 1 should be inactive after ClearSwitch")
	}
}

func TestCloneAndRestore(t *testing.T) {
	b := New()
	b.Append([]uint16{'a', 'b'})
	b.SetSwitch(1)
	snap := b.Clone()

	b.Append([]uint16{'c'})
	b.SetSwitch(2)

	b.Restore(snap)
	if b.Text() != "ab" {
		t.Fatalf("Restore: Text() = %q", b.Text())
	}
	if !b.HasSwitch(1) || b.HasSwitch(2) {
		t.Fatalf("Restore did not roll back switches correctly")
	}
}
