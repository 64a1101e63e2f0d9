//go:build !integration

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-match/internal/intake"
	"github.com/sells-group/intake-match/internal/match"
)

func TestMatchRows(t *testing.T) {
	rows := []intake.Row{
		{Line: 2, CompanyName: "Acme Corp"},
		{Line: 3, CompanyName: "Zzyzx Ventures"},
		{Line: 4, CompanyName: "Globex"},
		{Line: 5, CompanyName: "Acme"},
	}

	reports, err := matchRows(context.Background(), match.DefaultOptions, testCustomers(), rows, 2, 1)
	require.NoError(t, err)
	require.Len(t, reports, 4)

	// File order is kept whatever order the rows finished in.
	for i, r := range reports {
		assert.Equal(t, rows[i].Line, r.Row.Line)
	}

	require.NotNil(t, reports[0].Best)
	assert.Equal(t, "c-1", reports[0].Best.Customer.ID)
	assert.Len(t, reports[0].Results, 1)

	assert.Nil(t, reports[1].Best)
	assert.Empty(t, reports[1].Results)
	assert.NotNil(t, reports[1].Results)
	assert.Equal(t, 0, reports[1].Total)

	require.NotNil(t, reports[2].Best)
	assert.Equal(t, "c-3", reports[2].Best.Customer.ID)

	assert.GreaterOrEqual(t, reports[3].Total, 2)
	assert.Len(t, reports[3].Results, 1)
}

func TestMatchRows_TopZeroKeepsAll(t *testing.T) {
	rows := []intake.Row{{Line: 2, CompanyName: "Acme"}}

	reports, err := matchRows(context.Background(), match.DefaultOptions, testCustomers(), rows, 0, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Len(t, reports[0].Results, reports[0].Total)
}

func TestMatchRows_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := matchRows(ctx, match.DefaultOptions, testCustomers(), []intake.Row{{Line: 2, CompanyName: "Acme"}}, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
