package sqlstore

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// The migration models are frozen copies; kvRow may evolve independently.

type kvRowV1 struct {
	Key   string         `gorm:"column:key;primaryKey"`
	Value datatypes.JSON `gorm:"column:value;not null"`
}

func (kvRowV1) TableName() string { return TableName }

var _202610010900_create_kv_table = &gormigrate.Migration{
	ID: "202610010900_create_kv_table",
	Migrate: func(tx *gorm.DB) error {
		return tx.AutoMigrate(&kvRowV1{})
	},
	Rollback: func(tx *gorm.DB) error {
		return tx.Migrator().DropTable(TableName)
	},
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		_202610010900_create_kv_table,
	}
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	return m.Migrate()
}
