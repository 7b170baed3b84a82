package turnloop

import "testing"

func TestRepetitionDetectSingleCall(t *testing.T) {
	d := NewRepetitionDetector(4)
	for i := 0; i < 4; i++ {
		d.Observe([]ToolCall{NewReadFileCall("a.txt")})
	}
	if !d.Detect() {
		t.Error("repeating single call not detected")
	}
}

func TestRepetitionDetectPairPattern(t *testing.T) {
	d := NewRepetitionDetector(4)
	for i := 0; i < 2; i++ {
		d.Observe([]ToolCall{
			NewReadFileCall("a.txt"),
			NewWriteFileCall("a.txt", "x"),
		})
	}
	if !d.Detect() {
		t.Error("repeating pair not detected")
	}
}

func TestRepetitionVariedCallsNotDetected(t *testing.T) {
	d := NewRepetitionDetector(4)
	d.Observe([]ToolCall{
		NewReadFileCall("a.txt"),
		NewReadFileCall("b.txt"),
		NewReadFileCall("c.txt"),
		NewReadFileCall("d.txt"),
	})
	if d.Detect() {
		t.Error("varied calls flagged as repetition")
	}
}

func TestRepetitionWindowNotFull(t *testing.T) {
	d := NewRepetitionDetector(10)
	d.Observe([]ToolCall{NewReadFileCall("a.txt"), NewReadFileCall("a.txt")})
	if d.Detect() {
		t.Error("partial window should never detect")
	}
}

func TestRepetitionSlidingWindow(t *testing.T) {
	d := NewRepetitionDetector(3)
	d.Observe([]ToolCall{
		NewReadFileCall("x.txt"),
		NewReadFileCall("y.txt"),
		NewReadFileCall("z.txt"),
	})
	if d.Detect() {
		t.Fatal("varied window flagged")
	}

	// Three identical calls push the varied ones out.
	for i := 0; i < 3; i++ {
		d.Observe([]ToolCall{NewReadFileCall("a.txt")})
	}
	if !d.Detect() {
		t.Error("repetition after slide not detected")
	}

	d.Reset()
	if d.Detect() {
		t.Error("reset detector should not detect")
	}
}

func TestCallSignatureStability(t *testing.T) {
	a := NewWriteFileCall("a.txt", "hello")
	b := NewWriteFileCall("a.txt", "hello")
	c := NewWriteFileCall("a.txt", "other")

	if a.Signature() != b.Signature() {
		t.Error("identical calls should share a signature")
	}
	if a.Signature() == c.Signature() {
		t.Error("different params should change the signature")
	}
}
