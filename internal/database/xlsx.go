package database

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"route-logger/internal/models"
)

const xlsxSheetName = "Customers"

// ImportXLSX parses the first sheet of an uploaded workbook as a roster
func ImportXLSX(r io.Reader) ([]models.Customer, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, &ErrMissingColumns{Missing: ExpectedColumns}
	}

	headers, records, err := rowsToRecords(rows)
	if err != nil {
		return nil, err
	}
	if missing := MissingColumns(headers); len(missing) > 0 {
		return nil, &ErrMissingColumns{Missing: missing}
	}
	return CustomersFromRecords(records), nil
}

// WriteXLSX writes customers as a single-sheet workbook
func WriteXLSX(w io.Writer, customers []models.Customer) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(xlsxSheetName); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(xlsxSheetName)
	if err != nil {
		return err
	}

	header := RosterHeader(customers)
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return err
	}

	for i := range customers {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := make([]interface{}, len(header))
		for j, col := range header {
			row[j] = FieldValue(&customers[i], col)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(xlsxSheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	_, err = f.WriteTo(w)
	return err
}
