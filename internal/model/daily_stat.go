package model

// DailyStat aggregates bot activity for one calendar day.
type DailyStat struct {
	Date          string `gorm:"primaryKey"` // YYYY-MM-DD
	UsersCount    int64
	MessagesCount int64
	TicketsCount  int64
}

func (DailyStat) TableName() string {
	return "stats"
}

// DateLayout formats DailyStat.Date.
const DateLayout = "2006-01-02"
