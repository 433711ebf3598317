package models

// Setting is a key/value JSON settings row. The category rate table is
// stored here so it can be replaced without a redeploy.
type Setting struct {
	Key       string `gorm:"primarykey" json:"key"`
	ValueJSON JSON   `gorm:"type:json" json:"value"`
}

// TableName sets the table name.
func (Setting) TableName() string {
	return "settings"
}
