package excel

// RawRowData represents one sheet row as header-keyed strings
type RawRowData map[string]string

// SheetData represents a complete tabular file
type SheetData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// Column names of raw sample files.
const (
	ColumnLabel = "label"
	ColumnX     = "x"
	ColumnY     = "y"
	ColumnStd   = "std"
)
