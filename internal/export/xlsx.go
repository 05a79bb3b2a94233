// Package export writes match results to spreadsheet files recruiters can
// open directly.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/matchbaan/match-cli/internal/model"
)

// SheetName is the sheet matches are written to.
const SheetName = "Matches"

// matchHeader is the fixed column layout of the matches sheet. Headers are
// Dutch: the export is a user-facing artifact.
var matchHeader = []string{
	"Kandidaat ID",
	"Kandidaat",
	"Vacature ID",
	"Vacature",
	"Organisatie",
	"Plaats",
	"Score (%)",
	"Afstand (km)",
}

// WriteMatches writes match details to an XLSX workbook at path, one row per
// match under a header row. Matches without a computed distance get an empty
// distance cell.
func WriteMatches(path string, matches []model.MatchDetail) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range matchHeader {
		header.AddCell().SetString(h)
	}

	for i := range matches {
		m := &matches[i]
		row := sheet.AddRow()
		row.AddCell().SetInt64(m.CandidateID)
		row.AddCell().SetString(m.CandidateName)
		row.AddCell().SetInt64(m.VacancyID)
		row.AddCell().SetString(m.VacancyTitle)
		row.AddCell().SetString(m.Organization)
		row.AddCell().SetString(m.VacancyCity)
		row.AddCell().SetFloatWithFormat(m.Score, "0.0")
		if m.DistanceKM != nil {
			row.AddCell().SetFloatWithFormat(*m.DistanceKM, "0.0")
		} else {
			row.AddCell().SetString("")
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
