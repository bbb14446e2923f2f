package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// CSVFilename names a table export, e.g. "ndvi_analysis_2026-08-23.csv".
func CSVFilename(t Type, now time.Time) string {
	return fmt.Sprintf("%s_analysis_%s.csv", t, FormatDate(now))
}

// PlotFilename names a plot export, e.g. "sar_plot_2026-08-23.png".
func PlotFilename(t Type, now time.Time) string {
	return fmt.Sprintf("%s_plot_%s.png", t, FormatDate(now))
}

// WriteCSV writes all table rows of a result as CSV, one record per image,
// using the same cell formatting as the table view. The header depends on
// the analysis family.
func WriteCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader(res.Type)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range res.Rows {
		if err := cw.Write(csvRecord(row)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvHeader(t Type) []string {
	if t.IsRadar() {
		return []string{"Date", "Image ID", "Backscatter VV (dB)", "Backscatter VH (dB)", "VV/VH Ratio", "Orbit Direction"}
	}
	return []string{"Date", "Image ID", "Value", "Original Cloud Cover", "Adjusted Cloud Cover", "Cloud Masking Applied"}
}

func csvRecord(r TableRow) []string {
	if r.Type.IsRadar() {
		return []string{
			r.Date,
			r.ImageID,
			FormatValue(r.Type, r.Value),
			FormatValue(r.Type, r.BackscatterVH),
			FormatRatio(r.VVVHRatio),
			r.OrbitDirection,
		}
	}
	return []string{
		r.Date,
		r.ImageID,
		FormatValue(r.Type, r.Value),
		FormatCloudCover(r.OriginalCloudCover),
		FormatCloudCover(r.AdjustedCloudCover),
		FormatYesNo(r.CloudMaskingApplied),
	}
}
