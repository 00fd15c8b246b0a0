package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/danmuck/inkrelay/internal/capture"
)

// dump prints a capture file as one row per frame.
func dump(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r, err := capture.NewReader(f)
	if err != nil {
		return err
	}
	h := r.Header()
	fmt.Fprintf(w, "capture %s session=%s started=%s\n", h.SessionID, h.Session, h.Started.Format(time.RFC3339))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tOFFSET\tOUTCOME\tFRAME\tRESPONSE\tERROR")
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = tw.Flush()
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%q\t%q\t%s\n",
			rec.Seq, rec.Time.Sub(h.Started).Round(time.Microsecond), rec.Outcome, rec.Wire(), rec.Response, rec.Error)
	}
	return tw.Flush()
}
