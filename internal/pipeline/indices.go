package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forest-guardian/geocomposite/internal/datasets"
	"github.com/forest-guardian/geocomposite/internal/expression"
)

var sentinelIndices = map[string]expression.BandExpression{
	"NDVI": expression.NDVI(),
	"NDRE": expression.NDRE(),
	"NDMI": expression.NDMI(),
	"NDTI": expression.NDTI(),
	"PSRI": expression.PSRI(),
	"EVI":  expression.EVI("EVI", "B8", "B4", "B2"),
	"CHL":  expression.ChlorophyllProxy("CHL", "B5", "B4", "B6"),
}

// commonIndices read the common band names given by the Landsat presets.
var commonIndices = map[string]expression.BandExpression{
	"NDVI": expression.NormalizedDifference("NDVI", "nir", "red"),
	"NDMI": expression.NormalizedDifference("NDMI", "nir", "swir1"),
	"NDTI": expression.NormalizedDifference("NDTI", "red", "green"),
	"EVI":  expression.EVI("EVI", "nir", "red", "blue"),
}

// Index resolves an index name for a dataset. Datasets that alias bands to
// common names get the common formulas, the rest the Sentinel-2 ones.
func Index(name string, d *datasets.Dataset) (expression.BandExpression, error) {
	table := sentinelIndices
	if d != nil && usesCommonNames(*d) {
		table = commonIndices
	}
	expr, ok := table[strings.ToUpper(name)]
	if !ok {
		known := make([]string, 0, len(table))
		for k := range table {
			known = append(known, k)
		}
		sort.Strings(known)
		return expression.BandExpression{}, fmt.Errorf("unknown index %q, expected one of %s", name, strings.Join(known, ", "))
	}
	return expr, nil
}

func usesCommonNames(d datasets.Dataset) bool {
	for _, to := range d.Aliases {
		if to == "nir" {
			return true
		}
	}
	return false
}
