package quietinit

import (
	"bytes"
	"io"
	"log"
	"testing"
)

func TestRestore(t *testing.T) {
	if log.Writer() != io.Discard {
		t.Fatal("standard logger should be muted until Restore")
	}
	var buf bytes.Buffer
	saved = &buf
	t.Cleanup(func() { log.SetOutput(io.Discard) })

	Restore()
	log.Print("visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Errorf("output after Restore: %q", buf.String())
	}
}
