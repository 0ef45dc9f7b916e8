package sqlstore

import (
	"gorm.io/datatypes"
)

// TableName is the name of the entries table.
const TableName = "kv"

// kvRow maps to the kv table.
type kvRow struct {
	Key   string         `gorm:"column:key;primaryKey"`
	Value datatypes.JSON `gorm:"column:value;not null"`
}

func (kvRow) TableName() string { return TableName }
