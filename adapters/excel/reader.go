package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"qaebench/domain/estimation"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadData reads the file into header-keyed rows
func (r *DataReader) ReadData() (*SheetData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the first sheet of the workbook
func (r *DataReader) readExcelData() (*SheetData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*SheetData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into SheetData. Headers are matched
// case-insensitively.
func (r *DataReader) processRows(rows [][]string) (*SheetData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &SheetData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ReadRawSamples reads raw per-run samples with columns label, x, y and an
// optional std into a registry. Labels keep their first-appearance order;
// within a label rows keep file order.
func ReadRawSamples(path string) (estimation.Registry, error) {
	data, err := NewDataReader(path).ReadData()
	if err != nil {
		return estimation.Registry{}, err
	}
	for _, required := range []string{ColumnLabel, ColumnX, ColumnY} {
		if !hasHeader(data.Headers, required) {
			return estimation.Registry{}, fmt.Errorf("%s: missing %q column", path, required)
		}
	}
	withStds := hasHeader(data.Headers, ColumnStd)

	var order []string
	curves := make(map[string]*estimation.Curve)
	for i, row := range data.Rows {
		line := i + 2
		label := row[ColumnLabel]
		if label == "" {
			return estimation.Registry{}, fmt.Errorf("%s line %d: empty label", path, line)
		}
		x, err := parseCell(row, ColumnX)
		if err != nil {
			return estimation.Registry{}, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		y, err := parseCell(row, ColumnY)
		if err != nil {
			return estimation.Registry{}, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		c, ok := curves[label]
		if !ok {
			c = &estimation.Curve{Label: label}
			if withStds {
				c.Stds = []float64{}
			}
			curves[label] = c
			order = append(order, label)
		}
		c.X = append(c.X, x)
		c.Errors = append(c.Errors, y)
		if withStds {
			std, err := parseCell(row, ColumnStd)
			if err != nil {
				return estimation.Registry{}, fmt.Errorf("%s line %d: %w", path, line, err)
			}
			c.Stds = append(c.Stds, std)
		}
	}

	reg := estimation.NewRegistry()
	for _, label := range order {
		if reg, err = reg.AddCurve(*curves[label]); err != nil {
			return estimation.Registry{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	return reg, nil
}

func hasHeader(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}

func parseCell(row RawRowData, column string) (float64, error) {
	raw, ok := row[column]
	if !ok || raw == "" {
		return 0, fmt.Errorf("missing %s value", column)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", column, raw)
	}
	return v, nil
}
