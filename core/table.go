package core

import (
	"fmt"
	"strings"
)

type ColumnType int

const (
	StringType ColumnType = iota
	IntType
	FloatType
	BoolType
	TextType
	DateType
	TimestampType
	JsonType
)

func (columnType ColumnType) String() string {
	switch columnType {
	case StringType:
		return "STRING"
	case IntType:
		return "INT"
	case FloatType:
		return "FLOAT"
	case BoolType:
		return "BOOL"
	case TextType:
		return "TEXT"
	case DateType:
		return "DATE"
	case TimestampType:
		return "TIMESTAMP"
	case JsonType:
		return "JSON"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(columnType))
	}
}

// ParseColumnType maps a SQL type name to a ColumnType.
func ParseColumnType(name string) (ColumnType, error) {
	switch strings.ToUpper(name) {
	case "STRING", "VARCHAR", "CHAR":
		return StringType, nil
	case "INT", "INTEGER", "BIGINT":
		return IntType, nil
	case "FLOAT", "DOUBLE", "REAL", "DECIMAL", "NUMERIC":
		return FloatType, nil
	case "BOOL", "BOOLEAN":
		return BoolType, nil
	case "TEXT":
		return TextType, nil
	case "DATE":
		return DateType, nil
	case "TIMESTAMP", "DATETIME":
		return TimestampType, nil
	case "JSON":
		return JsonType, nil
	default:
		return 0, Errorf(CodeParse, "unknown column type %s (expected STRING, INT, FLOAT, BOOL, TEXT, DATE, TIMESTAMP, JSON)", name)
	}
}

type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	PrimaryKey bool       `json:"primaryKey"`
}

type Table struct {
	Name     *QualifiedName `json:"name"`
	Columns  []Column       `json:"columns"`
	ReadOnly bool           `json:"readOnly"`
}

func (table *Table) RelationName() *QualifiedName {
	return table.Name
}

func (table *Table) RelationColumns() []Column {
	return table.Columns
}

func (table *Table) RelationKind() RelationKind {
	return TableRelation
}

// ColumnIndex returns the position of the named column or -1.
func (table *Table) ColumnIndex(name string) int {
	for i, column := range table.Columns {
		if column.Name == name {
			return i
		}
	}
	return -1
}
