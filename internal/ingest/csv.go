package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/rotisserie/eris"
)

// streamCSV sends every record of r, header included, on the returned
// channel. Both channels are closed when reading stops.
func streamCSV(ctx context.Context, r io.Reader, delimiter rune) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if delimiter != 0 {
			reader.Comma = delimiter
		}
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // exports often drop trailing empty cells

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: csv cancelled")
				return
			}
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "ingest: csv read row")
				return
			}
			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: csv cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}
