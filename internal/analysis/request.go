package analysis

import (
	"fmt"
	"time"
)

const (
	minYear = 1972 // Landsat 1 launch, nothing earlier exists to analyze
	maxYear = 2100
)

// Validate checks the request's intrinsic invariants: exactly one area
// source, a coherent date range, and parameters that match the analysis
// family. Satellite compatibility is checked against the registry by the
// caller.
func (r *Request) Validate() error {
	if r.Type == "" {
		return fmt.Errorf("analysis type is required")
	}

	if err := r.validateArea(); err != nil {
		return err
	}
	if err := r.Dates.Validate(); err != nil {
		return err
	}

	if r.CloudCover != nil && (*r.CloudCover < 0 || *r.CloudCover > 100) {
		return fmt.Errorf("cloud cover must be between 0 and 100, got %g", *r.CloudCover)
	}

	switch r.CloudMasking.Strictness {
	case "", StrictnessStandard, StrictnessStrict:
	default:
		return fmt.Errorf("unknown cloud masking strictness: %q", r.CloudMasking.Strictness)
	}

	if r.Type.IsOptical() && r.Polarization != "" {
		return fmt.Errorf("polarization applies to SAR analyses only")
	}

	return nil
}

// validateArea enforces the exactly-one-source rule across the inline AOI
// representations and an uploaded shapefile.
func (r *Request) validateArea() error {
	sources := r.AOI.SourceCount()
	if r.Shapefile != nil {
		sources++
	}
	switch sources {
	case 0:
		return fmt.Errorf("no area of interest provided")
	case 1:
	default:
		return fmt.Errorf("multiple area sources provided, expected exactly one")
	}
	if r.Shapefile != nil {
		if r.Shapefile.Filename == "" || len(r.Shapefile.Data) == 0 {
			return fmt.Errorf("uploaded shapefile is empty")
		}
		return nil
	}
	return r.AOI.Validate()
}

// Validate checks that the range uses either a year pair or a date pair and
// that it runs forward in time.
func (d DateRange) Validate() error {
	hasYears := d.StartYear != 0 || d.EndYear != 0
	hasDates := d.StartDate != "" || d.EndDate != ""

	switch {
	case !hasYears && !hasDates:
		return fmt.Errorf("no date range provided")
	case hasYears && hasDates:
		return fmt.Errorf("provide either a year range or a date range, not both")
	}

	if hasYears {
		if d.StartYear == 0 || d.EndYear == 0 {
			return fmt.Errorf("both start year and end year are required")
		}
		for _, y := range []int{d.StartYear, d.EndYear} {
			if y < minYear || y > maxYear {
				return fmt.Errorf("year %d out of range [%d, %d]", y, minYear, maxYear)
			}
		}
		if d.StartYear > d.EndYear {
			return fmt.Errorf("start year must not be after end year")
		}
		return nil
	}

	if d.StartDate == "" || d.EndDate == "" {
		return fmt.Errorf("both start date and end date are required")
	}
	start, err := time.Parse("2006-01-02", d.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", d.StartDate)
	}
	end, err := time.Parse("2006-01-02", d.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", d.EndDate)
	}
	if start.After(end) {
		return fmt.Errorf("start date must not be after end date")
	}
	return nil
}

// Bounds resolves the range to concrete YYYY-MM-DD strings. Year ranges
// expand to full calendar years.
func (d DateRange) Bounds() (start, end string) {
	if d.StartDate != "" || d.EndDate != "" {
		return d.StartDate, d.EndDate
	}
	return fmt.Sprintf("%04d-01-01", d.StartYear), fmt.Sprintf("%04d-12-31", d.EndYear)
}
