package models

// GameSnapshot 存档（每个会话一份，按 session_id 覆盖）
//
// Board 为颜色矩阵的 JSON，不含宝石种类。
type GameSnapshot struct {
	BaseModel
	SessionID string `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	Width     int    `gorm:"not null" json:"width"`
	Height    int    `gorm:"not null" json:"height"`
	Board     string `gorm:"type:text;not null" json:"board"`
	Score     int64  `gorm:"default:0" json:"score"`
	Level     int    `gorm:"default:1" json:"level"`
}

// TableName 指定表名
func (GameSnapshot) TableName() string {
	return "game_snapshots"
}

// SwapRecord 交换历史
type SwapRecord struct {
	BaseModel
	SessionID  string `gorm:"index;size:64;not null" json:"session_id"`
	FromCol    int    `json:"from_col"`
	FromRow    int    `json:"from_row"`
	ToCol      int    `json:"to_col"`
	ToRow      int    `json:"to_row"`
	Accepted   bool   `gorm:"index" json:"accepted"`
	Reason     string `gorm:"size:32" json:"reason,omitempty"`
	Passes     int    `gorm:"default:0" json:"passes"`
	Removed    int    `gorm:"default:0" json:"removed"`
	Capped     bool   `json:"capped"`
	Points     int64  `gorm:"default:0" json:"points"`
	ScoreAfter int64  `gorm:"default:0" json:"score_after"`
	LevelAfter int    `gorm:"default:1" json:"level_after"`
	Events     string `gorm:"type:text" json:"events"` // 计分事件 JSON
}

// TableName 指定表名
func (SwapRecord) TableName() string {
	return "swap_records"
}
