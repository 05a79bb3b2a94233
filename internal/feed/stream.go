package feed

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// vacancyRecord is one <vacature> element from the feed.
type vacancyRecord struct {
	ExternalID   string `xml:"id"`
	Title        string `xml:"titel"`
	Organization string `xml:"organisatie"`
	City         string `xml:"plaats"`
	PostalCode   string `xml:"postcode"`
	URL          string `xml:"url"`
	Description  string `xml:"omschrijving"`
}

// streamRecords decodes <vacature> elements from the feed body and sends
// them to a channel, so the full document never has to fit in memory. The
// decoder follows the document's declared charset; feeds in ISO-8859-1 are
// common. Both channels are closed when decoding completes.
func streamRecords(ctx context.Context, r io.Reader) (<-chan vacancyRecord, <-chan error) {
	outCh := make(chan vacancyRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := xml.NewDecoder(r)
		decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
			enc, err := htmlindex.Get(charset)
			if err != nil {
				return nil, eris.Wrapf(err, "feed: unsupported charset %q", charset)
			}
			return enc.NewDecoder().Reader(input), nil
		}

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "feed: context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "feed: read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != "vacature" {
				continue
			}

			var rec vacancyRecord
			if err := decoder.DecodeElement(&rec, &se); err != nil {
				errCh <- eris.Wrap(err, "feed: decode vacature")
				return
			}

			select {
			case outCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "feed: context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}
