package render

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/feed"
)

type csvRow struct {
	Name      string `csv:"name"`
	Mime      string `csv:"mime"`
	SizeBytes uint64 `csv:"size_bytes"`
	Size      string `csv:"size"`
	Category  string `csv:"category"`
	URL       string `csv:"url"`
	Degraded  bool   `csv:"degraded"`
}

// WriteCSV exports the items of an Ok result, one row per item in feed
// order. A failed result is not exported.
func WriteCSV(w io.Writer, r feed.Result) error {
	if !r.OK() {
		return errs.Wrap(r.Kind(), "cannot export a failed feed", r.Err)
	}

	rows := make([]*csvRow, 0, len(r.Items))
	for _, it := range View(r).Items {
		rows = append(rows, &csvRow{
			Name:      it.Name,
			Mime:      it.Mime,
			SizeBytes: it.SizeBytes,
			Size:      it.SizeLabel,
			Category:  string(it.Category),
			URL:       it.AccessURL,
			Degraded:  it.Degraded,
		})
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "write csv", err)
	}
	return nil
}
