package ingest

import "github.com/rotisserie/eris"

// ErrInvalidInput marks a file rejected before any processing, either
// for a non-image extension or for exceeding the size ceiling.
var ErrInvalidInput = eris.New("invalid input file")
