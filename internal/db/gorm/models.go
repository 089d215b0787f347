package gorm

// LogEntry is one row of the log table.
type LogEntry struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	LogMessage string `gorm:"column:log_message;type:text"`
}
