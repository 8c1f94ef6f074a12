// Package export renders documents to PDF and leave usage to spreadsheets.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/approval-portal/internal/core/user"
	"github.com/frahmantamala/approval-portal/internal/document"
	"github.com/go-pdf/fpdf"
)

const timeLayout = "2006-01-02 15:04"

// People resolves employee names for rendered output.
type People interface {
	Profile(ctx context.Context, id int64) (*user.Profile, error)
}

type PDFRenderer struct {
	people People
	logger *slog.Logger
}

func NewPDFRenderer(people People, logger *slog.Logger) *PDFRenderer {
	return &PDFRenderer{people: people, logger: logger}
}

var _ document.Renderer = (*PDFRenderer)(nil)

// RenderDocument writes a one-document report: header, form fields, the
// approval chain and the audit history.
func (r *PDFRenderer) RenderDocument(w io.Writer, d *document.Document, history []*document.HistoryEntry) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("render document %d: %v", d.ID, rec)
		}
	}()

	ctx := context.Background()
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(d.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(d.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	meta := [][2]string{
		{"Document", fmt.Sprintf("#%d", d.ID)},
		{"Type", string(d.Type)},
		{"Status", string(d.Status)},
		{"Owner", r.name(ctx, d.OwnerID)},
		{"Requested", formatTime(d.RequestedAt)},
	}
	if d.ApprovedAt != nil {
		meta = append(meta, [2]string{"Approved", formatTime(d.ApprovedAt)})
	}
	if d.RejectedAt != nil {
		meta = append(meta, [2]string{"Rejected", formatTime(d.RejectedAt)})
	}
	if d.RetrievedAt != nil {
		meta = append(meta, [2]string{"Retrieved", formatTime(d.RetrievedAt)})
	}
	if d.StatusReason != nil {
		meta = append(meta, [2]string{"Reason", *d.StatusReason})
	}
	for _, kv := range meta {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, 6, tr(kv[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(kv[1]), "", 1, "L", false, 0, "")
	}

	section(pdf, tr, "Details")
	for _, kv := range payloadFields(d.Payload) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, tr(kv[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, tr(kv[1]), "", "L", false)
	}

	section(pdf, tr, "Approval")
	table(pdf, tr, []float64{12, 55, 25, 30, 68}, []string{"Rank", "Approver", "Role", "Status", "Decided"})
	for _, s := range d.Steps {
		approver := s.ApproverName
		if s.IsDelegated && s.DelegateName != nil {
			approver = fmt.Sprintf("%s (for %s)", *s.DelegateName, s.ApproverName)
		}
		row(pdf, tr, []float64{12, 55, 25, 30, 68}, []string{
			fmt.Sprint(s.Order), approver, string(s.Role), string(s.Status), formatTime(s.ApprovedAt),
		})
	}

	if len(history) > 0 {
		section(pdf, tr, "History")
		table(pdf, tr, []float64{35, 45, 30, 80}, []string{"When", "Who", "Action", "Comment"})
		for _, h := range history {
			comment := ""
			if h.Comment != nil {
				comment = *h.Comment
			}
			row(pdf, tr, []float64{35, 45, 30, 80}, []string{
				h.CreatedAt.Format(timeLayout), r.name(ctx, h.ActorID), string(h.Action), comment,
			})
		}
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func (r *PDFRenderer) name(ctx context.Context, id int64) string {
	if r.people != nil {
		if p, err := r.people.Profile(ctx, id); err == nil {
			return p.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func table(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, headers []string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func row(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, cells []string) {
	pdf.SetFont("Helvetica", "", 9)
	for i, c := range cells {
		pdf.CellFormat(widths[i], 6, truncate(tr(c), widths[i]), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

// truncate keeps a cell on one line; roughly two characters per millimetre at 9pt.
func truncate(s string, width float64) string {
	max := int(width * 2)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// payloadFields flattens the form payload to sorted label/value pairs.
func payloadFields(raw json.RawMessage) [][2]string {
	var fields map[string]interface{}
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{label(k), value(fields[k])})
	}
	return out
}

func label(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func value(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", t), "0"), ".")
	case bool:
		if t {
			return "yes"
		}
		return "no"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}
