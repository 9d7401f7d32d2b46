package display

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"

	"go.viam.com/detectdemo/vision/objectdetection"
)

// TableDisplay prints one table per frame listing its detections.
type TableDisplay struct {
	out    io.Writer
	labels objectdetection.LabelTable
	frames int
	total  int
}

// NewTableDisplay writes tables to out.
func NewTableDisplay(out io.Writer, labels objectdetection.LabelTable) *TableDisplay {
	return &TableDisplay{out: out, labels: labels}
}

// Deliver renders the detections of one frame.
func (td *TableDisplay) Deliver(ctx context.Context, item Item) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(td.out)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(fmt.Sprintf("#%d %s", td.frames, filepath.Base(item.Payload.Path)))
	tw.AppendHeader(table.Row{"Label", "Score", "Box"})
	for _, d := range item.Result {
		box := "-"
		if item.Payload.Image != nil {
			box = d.Pixels(item.Payload.Image.Bounds()).String()
		}
		tw.AppendRow(table.Row{td.labels.Name(d.Class), fmt.Sprintf("%.2f", d.Score), box})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d detections", len(item.Result))})
	tw.Render()
	td.frames++
	td.total += len(item.Result)
	return nil
}

// Close prints the run totals.
func (td *TableDisplay) Close() error {
	_, err := fmt.Fprintf(td.out, "%d frames, %d detections\n", td.frames, td.total)
	return err
}
