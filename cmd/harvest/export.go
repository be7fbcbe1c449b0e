package main

import (
	"time"

	"github.com/chmdznr/sftp-log-harvester/pkg/models"
	"github.com/xuri/excelize/v2"
)

const ledgerSheet = "Ledger"

var ledgerHeader = []any{"ID", "Filename", "Size", "Source Path", "Downloaded At", "Modified At", "Uploaded"}

// writeWorkbook saves records as a single-sheet workbook at path.
func writeWorkbook(path string, records []models.TransferRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &ledgerHeader); err != nil {
		return err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		modified := ""
		if r.ModifiedAt.Valid {
			modified = r.ModifiedAt.Time.UTC().Format(time.RFC3339)
		}
		uploaded := "no"
		if r.Uploaded {
			uploaded = "yes"
		}

		row := []any{r.ID, r.Filename, r.FileSize, r.SourcePath, r.DownloadedAt.UTC().Format(time.RFC3339), modified, uploaded}
		if err := f.SetSheetRow(ledgerSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
