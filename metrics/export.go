package metrics

import (
	"strings"

	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"

	"go.viam.com/detectdemo/logging"
)

// LoggingExporter writes finished trace spans and aggregated view rows to a logger. It satisfies
// both trace.Exporter and view.Exporter.
type LoggingExporter struct {
	logger logging.Logger
}

// NewLoggingExporter returns an exporter that logs at info level to logger.
func NewLoggingExporter(logger logging.Logger) *LoggingExporter {
	return &LoggingExporter{logger: logger}
}

// ExportSpan logs one finished span.
func (e *LoggingExporter) ExportSpan(s *trace.SpanData) {
	e.logger.Infow("span",
		"name", s.Name,
		"trace_id", s.TraceID.String(),
		"duration", s.EndTime.Sub(s.StartTime),
		"status", s.Status.Message)
}

// ExportView logs every row of d.
func (e *LoggingExporter) ExportView(d *view.Data) {
	for _, row := range d.Rows {
		fields := []interface{}{"view", d.View.Name}
		if len(row.Tags) > 0 {
			tags := make([]string, 0, len(row.Tags))
			for _, t := range row.Tags {
				tags = append(tags, t.Key.Name()+"="+t.Value)
			}
			fields = append(fields, "tags", strings.Join(tags, ","))
		}
		switch data := row.Data.(type) {
		case *view.CountData:
			fields = append(fields, "count", data.Value)
		case *view.LastValueData:
			fields = append(fields, "value", data.Value)
		case *view.DistributionData:
			fields = append(fields, "count", data.Count, "mean", data.Mean, "max", data.Max)
		default:
			fields = append(fields, "data", row.Data)
		}
		e.logger.Infow("metric", fields...)
	}
}

// Flush exports the current rows of every view in Views that is registered.
func (e *LoggingExporter) Flush() {
	for _, v := range Views() {
		rows, err := view.RetrieveData(v.Name)
		if err != nil {
			continue
		}
		e.ExportView(&view.Data{View: v, Rows: rows})
	}
}

// EnableLoggingExport samples every span and sends spans and view data to logger. The returned
// function flushes the views one last time and removes the exporter.
func EnableLoggingExport(logger logging.Logger) func() {
	exp := NewLoggingExporter(logger)
	trace.RegisterExporter(exp)
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})
	view.RegisterExporter(exp)
	return func() {
		exp.Flush()
		view.UnregisterExporter(exp)
		trace.UnregisterExporter(exp)
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(1e-4)})
	}
}
