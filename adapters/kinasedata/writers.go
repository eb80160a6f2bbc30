package kinasedata

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"kinlib/adapters/excel"
	"kinlib/adapters/stats/batch"
	"kinlib/domain/core"
	"kinlib/domain/enrichment"
	"kinlib/domain/kinase"
)

// TableRows renders a measure table with one row per substrate and one
// column per kinase. Kinases not scored for a row are blank.
func TableRows(t *batch.Table) ([]string, [][]string) {
	headers := append([]string{"substrate", "window"}, kinaseNames(t.Kinases)...)
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]string, 0, len(headers))
		out = append(out, string(row.Substrate.ID), row.Substrate.Window())
		for _, k := range t.Kinases {
			if v, ok := row.Values[k]; ok {
				out = append(out, formatValue(t.Measure, v))
			} else {
				out = append(out, "")
			}
		}
		rows[i] = out
	}
	return headers, rows
}

// MatchRows renders scan matches. term2gene emits the two-column
// (term, gene) layout used by gene-set tools: kinase then substrate.
func MatchRows(matches []batch.Match, measure core.Measure, term2gene bool) ([]string, [][]string) {
	if term2gene {
		rows := make([][]string, len(matches))
		for i, m := range matches {
			rows[i] = []string{string(m.Kinase), string(m.Substrate)}
		}
		return []string{"term", "gene"}, rows
	}
	rows := make([][]string, len(matches))
	for i, m := range matches {
		rows[i] = []string{string(m.Substrate), m.Window, string(m.Kinase), formatValue(measure, m.Value)}
	}
	return []string{"substrate", "window", "kinase", measure.String()}, rows
}

// ResultRows renders enrichment results, NA rows with blank numbers and the
// failure reason
func ResultRows(results []enrichment.Result) ([]string, [][]string) {
	headers := []string{"kinase", "type", "direction", "es", "nes", "p_value", "q_value",
		"odds_ratio", "log2_freq_factor", "fg_hits", "fg_total", "bg_hits", "bg_total", "hits", "leading_edge", "error"}
	rows := make([][]string, len(results))
	for i, r := range results {
		row := []string{string(r.Kinase), r.Type.String(), r.Direction.String(),
			formatFloat(r.ES), formatFloat(r.NES), formatFloat(r.PValue), formatFloat(r.QValue)}
		if r.Table != nil {
			row = append(row, formatFloat(r.OddsRatio), formatFloat(r.Log2FrequencyFactor),
				strconv.Itoa(r.Table.ForegroundHits), strconv.Itoa(r.Table.ForegroundTotal),
				strconv.Itoa(r.Table.BackgroundHits), strconv.Itoa(r.Table.BackgroundTotal))
		} else {
			row = append(row, "", "", "", "", "", "")
		}
		hits := ""
		if r.HitCount > 0 {
			hits = strconv.Itoa(r.HitCount)
		}
		edge := ""
		for j, id := range r.LeadingEdge {
			if j > 0 {
				edge += ";"
			}
			edge += string(id)
		}
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		rows[i] = append(row, hits, edge, errText)
	}
	return headers, rows
}

// MatrixRows renders matrices in the long format read by ParseMatrices with
// log2 weights: kinases in the given order, positions ascending, residues in
// matrix column order. Zero cells are left out.
func MatrixRows(matrices []*kinase.KinaseMatrix) ([]string, [][]string) {
	var rows [][]string
	for _, m := range matrices {
		weights := m.Weights()
		for _, pos := range m.Positions() {
			row := weights[pos]
			for i := 0; i < len(kinase.Residues); i++ {
				w, ok := row[kinase.Residues[i]]
				if !ok {
					continue
				}
				rows = append(rows, []string{string(m.ID()), strconv.Itoa(pos), string(kinase.Residues[i]), formatFloat(w)})
			}
		}
	}
	return []string{ColumnKinase, ColumnPosition, ColumnResidue, ColumnWeight}, rows
}

// WriteMatrices writes matrices to path in the long log2 format
func WriteMatrices(path string, matrices []*kinase.KinaseMatrix) error {
	headers, rows := MatrixRows(matrices)
	return write(path, headers, rows)
}

// WriteTable writes a measure table to path (CSV, TSV or XLSX by extension)
func WriteTable(path string, t *batch.Table) error {
	headers, rows := TableRows(t)
	return write(path, headers, rows)
}

// WriteMatches writes scan matches to path
func WriteMatches(path string, matches []batch.Match, measure core.Measure, term2gene bool) error {
	headers, rows := MatchRows(matches, measure, term2gene)
	return write(path, headers, rows)
}

// WriteReport writes the combined rows of a report to path
func WriteReport(path string, report *enrichment.Report) error {
	headers, rows := ResultRows(report.Combined)
	return write(path, headers, rows)
}

// WriteReportJSON encodes the full report with indentation
func WriteReportJSON(out io.Writer, report *enrichment.Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func write(path string, headers []string, rows [][]string) error {
	w, err := excel.NewDataWriter(path)
	if err != nil {
		return err
	}
	return w.Write(headers, rows)
}

func kinaseNames(ids []core.KinaseID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func formatValue(m core.Measure, v float64) string {
	if m.IsRank() {
		return strconv.Itoa(int(v))
	}
	return formatFloat(v)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
