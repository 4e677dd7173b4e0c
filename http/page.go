package http

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pricecast/collector"
	"pricecast/db"
	"pricecast/export"
	"pricecast/ml"
	"pricecast/service"
)

//go:embed templates/index.html
var templateFS embed.FS

type pageData struct {
	Fields       []fieldView
	Result       *resultView
	Error        string
	HistoryError string
	Header       []string
	History      [][]string
	CSVName      string
}

type fieldView struct {
	Name  string
	Label string
	Value string
	Min   string
	Max   string
}

type resultView struct {
	Price       string
	Saved       bool
	SaveError   string
	Adjustments []string
	Metrics     service.Summary
}

// pageRenderer owns the template and the locale-aware number printer.
type pageRenderer struct {
	tmpl    *template.Template
	printer *message.Printer
}

func newPageRenderer() (*pageRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &pageRenderer{tmpl: tmpl, printer: message.NewPrinter(language.English)}, nil
}

func (p *pageRenderer) execute(w io.Writer, data pageData) error {
	return p.tmpl.ExecuteTemplate(w, "index.html", data)
}

func (p *pageRenderer) base(rec ml.FeatureRecord) pageData {
	fields := collector.Fields()
	views := make([]fieldView, len(fields))
	for i, f := range fields {
		v, _ := rec.Value(f.Name)
		views[i] = newFieldView(f, formatNumber(v))
	}
	return pageData{Fields: views, Header: db.Columns(), CSVName: export.FileName}
}

// submitted echoes raw form input back so the user can correct it.
func (p *pageRenderer) submitted(values url.Values) pageData {
	data := p.base(collector.Defaults())
	for i := range data.Fields {
		if raw := values.Get(data.Fields[i].Name); raw != "" {
			data.Fields[i].Value = raw
		}
	}
	return data
}

func newFieldView(f collector.FieldSpec, value string) fieldView {
	// FieldSpec.Step stays a hint for API clients. Rendering it would make the
	// browser reject any value off the step grid, including the defaults.
	v := fieldView{Name: f.Name, Label: f.Label, Value: value}
	if f.Min != nil {
		v.Min = formatNumber(*f.Min)
	}
	if f.Max != nil {
		v.Max = formatNumber(*f.Max)
	}
	return v
}

func (p *pageRenderer) result(o *service.Outcome) *resultView {
	r := &resultView{
		Price:     p.printer.Sprintf("$%.2f", o.Prediction),
		Saved:     o.Saved,
		SaveError: o.SaveError,
		Metrics:   o.Metrics,
	}
	for _, a := range o.Adjustments {
		r.Adjustments = append(r.Adjustments, a.String())
	}
	return r
}

func (p *pageRenderer) historyRows(history []db.PredictionRecord) [][]string {
	features := ml.StockSchema.Features()
	rows := make([][]string, 0, len(history))
	for _, h := range history {
		row := make([]string, 0, len(features)+3)
		row = append(row, strconv.FormatInt(h.ID, 10))
		for i, v := range h.Features.Vector() {
			switch {
			case features[i].Name == "Volume":
				row = append(row, p.printer.Sprintf("%d", int64(v)))
			case features[i].Kind == ml.KindInt:
				row = append(row, strconv.FormatInt(int64(v), 10))
			default:
				row = append(row, formatNumber(v))
			}
		}
		row = append(row,
			p.printer.Sprintf("$%.2f", h.PredictedPrice),
			h.PredictionDate.Local().Format("2006-01-02 15:04:05"),
		)
		rows = append(rows, row)
	}
	return rows
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
