package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/auditboard"
)

func TestGroupMatchesByRegion(testInstance *testing.T) {
	controlMatches := []ControlMatch{
		{
			Control: auditboard.Record{"id": float64(1), "name": "Vendor Approval"},
			Region:  auditboard.Record{"id": float64(4), "name": "EMEA"},
		},
		{
			Control: auditboard.Record{"id": float64(2), "name": "Access Review"},
			Region:  auditboard.Record{"id": float64(9), "name": "APAC"},
		},
		{
			Control: auditboard.Record{"id": float64(3), "name": "Change Approval"},
			Region:  auditboard.Record{"id": float64(4), "name": "EMEA"},
		},
		{
			Control: auditboard.Record{"id": float64(4), "name": "Orphaned Control"},
		},
	}

	matchGroups := groupMatchesByRegion(controlMatches)
	require.Len(testInstance, matchGroups, 3)

	require.Equal(testInstance, "APAC", matchGroups[0].Region)
	require.Len(testInstance, matchGroups[0].Matches, 1)

	require.Equal(testInstance, "EMEA", matchGroups[1].Region)
	require.Len(testInstance, matchGroups[1].Matches, 2)
	require.Equal(testInstance, int64(1), matchGroups[1].Matches[0].Control.ID())
	require.Equal(testInstance, int64(3), matchGroups[1].Matches[1].Control.ID())

	require.Equal(testInstance, missingContextLabelConstant, matchGroups[2].Region)
}

func TestGroupMatchesByRegionEmptyInput(testInstance *testing.T) {
	require.Empty(testInstance, groupMatchesByRegion(nil))
}
