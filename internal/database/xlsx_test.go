package database

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"route-logger/internal/models"
)

func TestWriteAndImportXLSX(t *testing.T) {
	spend := 99.5
	visit := "2024-04-01"
	freq := 7
	customers := []models.Customer{
		{ID: "c1", Company: "Acme", AccountNumber: "A1", Country: "UK", Postcode: "SW1A 1AA",
			Status: "Active", CurrentSpend: &spend, TaggedCustomers: true, DateOfLastVisit: &visit, VisitFrequency: &freq},
		{ID: "c2", Company: "Beta", Country: "UK", Postcode: "M1 1AE"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, customers))

	imported, err := ImportXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, "c1", imported[0].ID)
	assert.Equal(t, "Acme", imported[0].Company)
	require.NotNil(t, imported[0].CurrentSpend)
	assert.Equal(t, 99.5, *imported[0].CurrentSpend)
	assert.True(t, imported[0].TaggedCustomers)
	require.NotNil(t, imported[0].VisitFrequency)
	assert.Equal(t, 7, *imported[0].VisitFrequency)
	assert.Equal(t, "M1 1AE", imported[1].Postcode)
}

func TestImportXLSXMissingColumns(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Company", "Postcode"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Acme", "SW1A 1AA"}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ImportXLSX(&buf)
	var missing *ErrMissingColumns
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, missing.Missing, "status")
}
