// Package quietinit mutes the standard logger while dependency init functions run.
//
// Packages are initialized in import-path order once their own imports are ready, so this
// package runs before github.com/sugarme/tokenizer, whose init prints its cache directory.
// The importer calls Restore from its own init, which runs after all of its imports.
package quietinit

import (
	"io"
	"log"
)

var saved = log.Writer()

func init() {
	log.SetOutput(io.Discard)
}

// Restore reinstates the standard logger's output.
func Restore() {
	log.SetOutput(saved)
}
