package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s", got)
	}
	if Text("abc") != want {
		t.Error("Text must match Sum")
	}
	if Text("<svg/>") == Text("<svg />") {
		t.Error("different text must differ")
	}
}
