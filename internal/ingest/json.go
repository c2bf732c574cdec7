package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vista360/internal/model"
)

// decodeArray streams the objects of a JSON array such as a mongoexport
// --jsonArray dump.
func decodeArray(ctx context.Context, r io.Reader) (<-chan model.Document, <-chan error) {
	outCh := make(chan model.Document, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			errCh <- eris.Wrap(err, "ingest: json read opening token")
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			errCh <- eris.Errorf("ingest: json expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: json cancelled")
				return
			}
			var doc model.Document
			if err := decoder.Decode(&doc); err != nil {
				errCh <- eris.Wrap(err, "ingest: json decode element")
				return
			}
			if doc == nil {
				continue
			}
			// Mongo exports carry an _id object with no meaning here.
			delete(doc, "_id")
			select {
			case outCh <- doc:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: json cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil && !errors.Is(err, io.EOF) {
			errCh <- eris.Wrap(err, "ingest: json read closing token")
		}
	}()

	return outCh, errCh
}
