// Package export serializes reports as JSON, styled text or SARIF 2.1.0.
package export

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/tui"
	"github.com/abdidvp/luaguard/internal/domain"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatSARIF Format = "sarif"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatText, FormatSARIF}

// ParseFormat validates a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatText, nil
	}
	f := Format(s)
	if !slices.Contains(Formats, f) {
		return "", domain.NewInputError(domain.CodeInvalidField,
			fmt.Sprintf("unknown format %q (want json, text or sarif)", s))
	}
	return f, nil
}

// Report renders one report. It never modifies the report.
func Report(report *domain.Report, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshal(report)
	case FormatText, "":
		return []byte(tui.RenderReport(report)), nil
	case FormatSARIF:
		return marshal(newLog([]*domain.Report{report}))
	default:
		return nil, domain.NewInputError(domain.CodeInvalidField, fmt.Sprintf("unknown format %q", format))
	}
}

// Batch renders a batch result. SARIF output holds one run covering every
// report in the batch.
func Batch(batch *domain.BatchResult, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshal(batch)
	case FormatText, "":
		return []byte(tui.RenderBatch(batch)), nil
	case FormatSARIF:
		var reports []*domain.Report
		for _, item := range batch.Items {
			if item.Report != nil {
				reports = append(reports, item.Report)
			}
		}
		return marshal(newLog(reports))
	default:
		return nil, domain.NewInputError(domain.CodeInvalidField, fmt.Sprintf("unknown format %q", format))
	}
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(data, '\n'), nil
}
