package diag

import (
	"encoding/json"

	"github.com/caldera-dev/caldera/location"
)

// Wire format types for JSON serialization. These define the stable JSON
// output format: field names use camelCase, optional fields use omitzero.

type diagnosticWire struct {
	Span        *spanWire         `json:"span,omitzero"`
	Severity    string            `json:"severity"`
	ID          string            `json:"id"`
	Message     string            `json:"message"`
	Hint        string            `json:"hint,omitzero"`
	Related     []relatedInfoWire `json:"related,omitzero"`
	Details     []detailWire      `json:"details,omitzero"`
	Annotations []annotationWire  `json:"annotations,omitzero"`
	Sub         []diagnosticWire  `json:"subDiagnostics,omitzero"`
	Fix         *fixWire          `json:"fix,omitzero"`
}

type spanWire struct {
	Source string       `json:"source"`
	Start  positionWire `json:"start"`
	End    positionWire `json:"end"`
}

// positionWire's byte offset encoding:
//   - Domain -1 (unknown) -> wire nil -> JSON field omitted
//   - Domain 0 -> wire *0 -> JSON "byte": 0
//   - Domain N > 0 -> wire *N -> JSON "byte": N
type positionWire struct {
	Line   int  `json:"line"`
	Column int  `json:"column"`
	Byte   *int `json:"byte,omitzero"`
}

type relatedInfoWire struct {
	Message string    `json:"message"`
	Span    *spanWire `json:"span,omitzero"`
}

type detailWire struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type annotationWire struct {
	Span    spanWire `json:"span"`
	Message string   `json:"message,omitzero"`
	Primary bool     `json:"primary,omitzero"`
}

type editWire struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Replacement string `json:"replacement"`
}

type fixWire struct {
	Applicability string     `json:"applicability"`
	Edits         []editWire `json:"edits"`
}

type resultWire struct {
	Diagnostics  []diagnosticWire `json:"diagnostics"`
	Limit        int              `json:"limit,omitzero"`
	LimitReached bool             `json:"limitReached,omitzero"`
	DroppedCount int              `json:"droppedCount,omitzero"`
}

// FormatDiagnosticJSON returns the JSON representation of a single
// diagnostic. Optional fields with zero values are omitted.
func (r *Renderer) FormatDiagnosticJSON(d Diagnostic) json.RawMessage {
	wire := toDiagnosticWire(d)
	//nolint:errchkjson // wire types are safe; error check is defensive
	data, err := json.Marshal(wire)
	if err != nil {
		panic("diag: unexpected JSON marshal error: " + err.Error())
	}
	return data
}

// FormatResultJSON returns the JSON representation of a diagnostic result.
func (r *Renderer) FormatResultJSON(res Result) json.RawMessage {
	wire := toResultWire(res)
	//nolint:errchkjson // wire types are safe; error check is defensive
	data, err := json.Marshal(wire)
	if err != nil {
		panic("diag: unexpected JSON marshal error: " + err.Error())
	}
	return data
}

func toResultWire(res Result) resultWire {
	var diagnostics []diagnosticWire
	for d := range res.Diagnostics() {
		diagnostics = append(diagnostics, toDiagnosticWire(d))
	}
	if diagnostics == nil {
		diagnostics = []diagnosticWire{}
	}

	wire := resultWire{Diagnostics: diagnostics}
	if res.LimitReached() {
		wire.Limit = res.limit
		wire.LimitReached = true
		wire.DroppedCount = res.DroppedCount()
	}
	return wire
}

func toDiagnosticWire(d Diagnostic) diagnosticWire {
	wire := diagnosticWire{
		Severity: d.Severity().String(),
		ID:       d.ID().String(),
		Message:  d.Message(),
	}

	if d.HasSpan() {
		wire.Span = toSpanWire(d.Span())
	}
	if hint := d.Hint(); hint != "" {
		wire.Hint = hint
	}

	if related := d.Related(); len(related) > 0 {
		wire.Related = make([]relatedInfoWire, len(related))
		for i, rel := range related {
			wire.Related[i] = toRelatedInfoWire(rel)
		}
	}

	if details := d.Details(); len(details) > 0 {
		wire.Details = make([]detailWire, len(details))
		for i, dt := range details {
			wire.Details[i] = detailWire(dt)
		}
	}

	if annotations := d.Annotations(); len(annotations) > 0 {
		wire.Annotations = make([]annotationWire, len(annotations))
		for i, a := range annotations {
			wire.Annotations[i] = annotationWire{
				Message: a.Message(),
				Primary: a.Primary(),
			}
			if sw := toSpanWire(a.Span()); sw != nil {
				wire.Annotations[i].Span = *sw
			}
		}
	}

	if subs := d.SubDiagnostics(); len(subs) > 0 {
		wire.Sub = make([]diagnosticWire, len(subs))
		for i, sub := range subs {
			wire.Sub[i] = toDiagnosticWire(sub)
		}
	}

	if fix, ok := d.Fix(); ok {
		edits := fix.Edits()
		fw := fixWire{
			Applicability: fix.Applicability().String(),
			Edits:         make([]editWire, len(edits)),
		}
		for i, e := range edits {
			fw.Edits[i] = editWire{Start: e.Start, End: e.End, Replacement: e.Replacement}
		}
		wire.Fix = &fw
	}

	return wire
}

func toSpanWire(span location.Span) *spanWire {
	if span.IsZero() {
		return nil
	}
	return &spanWire{
		Source: span.Source.String(),
		Start:  toPositionWire(span.Start),
		End:    toPositionWire(span.End),
	}
}

// toPositionWire's HasByte() check prevents Position{} (Go zero value, with
// Byte=0) from incorrectly emitting "byte": 0 for unknown positions.
func toPositionWire(pos location.Position) positionWire {
	wire := positionWire{Line: pos.Line, Column: pos.Column}
	if pos.HasByte() {
		byteOffset := pos.Byte
		wire.Byte = &byteOffset
	}
	return wire
}

func toRelatedInfoWire(rel location.RelatedInfo) relatedInfoWire {
	wire := relatedInfoWire{Message: rel.Message}
	if !rel.Span.IsZero() {
		wire.Span = toSpanWire(rel.Span)
	}
	return wire
}
