package rotation

import (
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
)

// Member is a person taking part in the rotation
type Member struct {
	ID              string          `gorm:"column:id;primaryKey;type:text"`
	UserID          string          `gorm:"column:user_id;uniqueIndex;not null;type:text"`
	Username        string          `gorm:"column:username;not null;type:text"`
	LastPickedMonth *calendar.Month `gorm:"column:last_picked_month;type:text"`
	PickCount       int             `gorm:"column:pick_count;not null;default:0"`
	IsEligible      bool            `gorm:"column:is_eligible;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
}

func (Member) TableName() string {
	return "member_rotation"
}

// Nomination assigns who picks the game for a month. At most one nomination per
// month is active; the partial unique index backs the repository's own checks
type Nomination struct {
	ID                string         `gorm:"column:id;primaryKey;type:text"`
	NominatedUserID   string         `gorm:"column:nominated_user_id;not null;index;type:text"`
	NominatedUsername string         `gorm:"column:nominated_username;not null;type:text"`
	TargetMonth       calendar.Month `gorm:"column:target_month;not null;type:text;uniqueIndex:idx_game_nominations_active_month,where:is_active = true"`
	IsActive          bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
}

func (Nomination) TableName() string {
	return "game_nominations"
}

// Game is the finalized pick of a month. The picker name is copied at pick time
// so history does not change when a member is renamed
type Game struct {
	ID          string         `gorm:"column:id;primaryKey;type:text"`
	GameName    string         `gorm:"column:game_name;not null;type:text"`
	PickerID    string         `gorm:"column:picker_id;not null;index;type:text"`
	PickerName  string         `gorm:"column:picker_name;not null;type:text"`
	Month       calendar.Month `gorm:"column:month;not null;uniqueIndex;type:text"`
	SelectedAt  time.Time      `gorm:"column:selected_at;not null"`
	Description string         `gorm:"column:description;type:text"`
	ImageURL    string         `gorm:"column:image_url;type:text"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
}

func (Game) TableName() string {
	return "games"
}
