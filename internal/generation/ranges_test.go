package generation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labgen-api/internal/models"
)

func TestParseVariableRanges(t *testing.T) {
	vars, problems := ParseVariableRanges("volume: 20-30 mL, concentration: 0.1-0.2; acid: HCl | H2SO4 |HNO3\n temp: -5-10")
	require.Empty(t, problems)
	require.Equal(t, models.VariableSet{
		"volume":        models.NumericVariable(20, 30, "mL"),
		"concentration": models.NumericVariable(0.1, 0.2, ""),
		"acid":          models.CategoricalVariable("HCl", "H2SO4", "HNO3"),
		"temp":          models.NumericVariable(-5, 10, ""),
	}, vars)
}

func TestParseVariableRangesIsolatesBadEntries(t *testing.T) {
	vars, problems := ParseVariableRanges("x: 1-5, broken, y: 10-2, z: a-b, w: 3 - 4, x: 2-3")
	require.Equal(t, models.VariableSet{
		"x": models.NumericVariable(1, 5, ""),
		"w": models.NumericVariable(3, 4, ""),
	}, vars)

	require.Len(t, problems, 4)
	require.Equal(t, "broken", problems[0].Entry)
	require.Equal(t, "y: 10-2", problems[1].Entry)
	require.Equal(t, "minimum exceeds maximum", problems[1].Reason)
	require.Equal(t, "z: a-b", problems[2].Entry)
	require.Equal(t, "duplicate variable name", problems[3].Reason)
}

func TestParseVariableRangesNegativeBounds(t *testing.T) {
	vars, problems := ParseVariableRanges("t: -20 - -5 °C, e: 1e-3-2e-3")
	require.Empty(t, problems)

	min, max := vars["t"].Bounds()
	require.Equal(t, -20.0, min)
	require.Equal(t, -5.0, max)
	require.Equal(t, "°C", vars["t"].Unit)

	min, max = vars["e"].Bounds()
	require.Equal(t, 0.001, min)
	require.Equal(t, 0.002, max)
}

func TestParseVariableRangesEmpty(t *testing.T) {
	vars, problems := ParseVariableRanges("  ")
	require.Empty(t, vars)
	require.Empty(t, problems)
}
