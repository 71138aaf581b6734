/*
Copyright © 2026 the RelDisp authors.
This file is part of RelDisp.

RelDisp is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RelDisp is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RelDisp.  If not, see <http://www.gnu.org/licenses/>.*/

package report

import (
	"fmt"
	"strconv"

	"github.com/tealeg/xlsx"
)

// Sheet is a named worksheet.
type Sheet struct {
	Name  string
	Table Table
}

// WriteWorkbook saves the sheets as a Microsoft Excel workbook.
// Cells that hold numbers are stored as numbers.
func WriteWorkbook(path string, sheets ...Sheet) error {
	f := xlsx.NewFile()
	for _, s := range sheets {
		if err := s.Table.addTo(f, s.Name); err != nil {
			return err
		}
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("report: saving xlsx file: %v", err)
	}
	return nil
}

func (t Table) addTo(f *xlsx.File, name string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return fmt.Errorf("report: adding sheet %s: %v", name, err)
	}
	for i, l := range t {
		row := sheet.AddRow()
		for _, s := range l {
			cell := row.AddCell()
			if v, err := strconv.ParseFloat(s, 64); err == nil && i > 0 {
				cell.SetFloat(v)
			} else {
				cell.Value = s
			}
		}
	}
	return nil
}
