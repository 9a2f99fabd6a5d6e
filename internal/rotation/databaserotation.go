package rotation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
	"github.com/CalebPenning/game-calendar-bot/internal/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatabaseRotation is the gorm backed Repository.
// Mutations are serialised by mu and each one runs in a transaction, so a
// scheduler sweep and a command racing on the same month observe a total order
type DatabaseRotation struct {
	common.Database
	mu sync.Mutex
}

func NewDatabaseRotation(database common.Database) (*DatabaseRotation, error) {
	if err := database.DB.AutoMigrate(&Member{}, &Nomination{}, &Game{}); err != nil {
		return nil, storageError("migrate rotation tables", err)
	}
	log.Debug().Msg("Rotation tables migrated")
	return &DatabaseRotation{Database: database}, nil
}

func (db *DatabaseRotation) UpsertMember(ctx context.Context, userID string, username string) (Member, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var member Member
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertMember(tx, userID, username); err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).First(&member).Error
	})
	if err != nil {
		return Member{}, storageError("upsert member", err)
	}
	return member, nil
}

func upsertMember(tx *gorm.DB, userID string, username string) error {
	member := Member{ID: uuid.NewString(), UserID: userID, Username: username, IsEligible: true}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username"}),
	}).Create(&member).Error
}

func (db *DatabaseRotation) GetMember(ctx context.Context, userID string) (*Member, error) {
	var member Member
	err := db.DB.WithContext(ctx).Where("user_id = ?", userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get member", err)
	}
	return &member, nil
}

func (db *DatabaseRotation) GetAllMembers(ctx context.Context) ([]Member, error) {
	var members []Member
	if err := db.DB.WithContext(ctx).Order("username").Find(&members).Error; err != nil {
		return nil, storageError("get members", err)
	}
	return members, nil
}

func (db *DatabaseRotation) SetActiveNomination(ctx context.Context, userID string, username string, month calendar.Month) (Nomination, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	nomination := newNomination(userID, username, month)
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkMonthOpen(tx, month); err != nil {
			return err
		}
		// Supersede, never accumulate
		if err := tx.Model(&Nomination{}).
			Where("target_month = ? AND is_active = ?", month, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(&nomination).Error
	})
	if err != nil {
		return Nomination{}, storageError("set active nomination", err)
	}
	log.Debug().Msg(fmt.Sprintf("Nomination %s active for %s (%s)", nomination.ID, month, userID))
	return nomination, nil
}

func (db *DatabaseRotation) NominateIfVacant(ctx context.Context, userID string, username string, month calendar.Month) (Nomination, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	nomination := newNomination(userID, username, month)
	created := false
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var games, nominations int64
		if err := tx.Model(&Game{}).Where("month = ?", month).Count(&games).Error; err != nil {
			return err
		}
		if err := tx.Model(&Nomination{}).Where("target_month = ? AND is_active = ?", month, true).Count(&nominations).Error; err != nil {
			return err
		}
		if games > 0 || nominations > 0 {
			return nil
		}
		if err := tx.Create(&nomination).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return Nomination{}, false, storageError("nominate if vacant", err)
	}
	if !created {
		return Nomination{}, false, nil
	}
	return nomination, true, nil
}

func (db *DatabaseRotation) GetActiveNominationForMonth(ctx context.Context, month calendar.Month) (*Nomination, error) {
	var nomination Nomination
	err := db.DB.WithContext(ctx).Where("target_month = ? AND is_active = ?", month, true).First(&nomination).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get active nomination", err)
	}
	return &nomination, nil
}

func (db *DatabaseRotation) RecordPick(ctx context.Context, pick PickRequest) (Game, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	game := Game{
		ID:          uuid.NewString(),
		GameName:    pick.GameName,
		PickerID:    pick.UserID,
		PickerName:  pick.Username,
		Month:       pick.Month,
		SelectedAt:  pick.SelectedAt,
		Description: pick.Description,
		ImageURL:    pick.ImageURL,
	}
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkMonthOpen(tx, pick.Month); err != nil {
			return err
		}

		// Only the active nominee may close the month
		var nomination Nomination
		err := tx.Where("target_month = ? AND is_active = ?", pick.Month, true).First(&nomination).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotNominated
		}
		if err != nil {
			return err
		}
		if nomination.NominatedUserID != pick.UserID {
			return &WrongNomineeError{Nomination: nomination}
		}

		if err := tx.Create(&game).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrMonthAlreadyPicked
			}
			return err
		}

		if err := upsertMember(tx, pick.UserID, pick.Username); err != nil {
			return err
		}
		if err := tx.Model(&Member{}).Where("user_id = ?", pick.UserID).Updates(map[string]interface{}{
			"pick_count":        gorm.Expr("pick_count + ?", 1),
			"last_picked_month": pick.Month,
		}).Error; err != nil {
			return err
		}

		return tx.Model(&Nomination{}).Where("id = ?", nomination.ID).Update("is_active", false).Error
	})
	if err != nil {
		return Game{}, storageError("record pick", err)
	}
	log.Info().Msg(fmt.Sprintf("Recorded %q for %s picked by %s", game.GameName, game.Month, game.PickerName))
	return game, nil
}

func (db *DatabaseRotation) GetGameByMonth(ctx context.Context, month calendar.Month) (*Game, error) {
	var game Game
	err := db.DB.WithContext(ctx).Where("month = ?", month).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get game by month", err)
	}
	return &game, nil
}

func (db *DatabaseRotation) GetAllGames(ctx context.Context) ([]Game, error) {
	var games []Game
	if err := db.DB.WithContext(ctx).Order("month DESC").Find(&games).Error; err != nil {
		return nil, storageError("get games", err)
	}
	return games, nil
}

func newNomination(userID string, username string, month calendar.Month) Nomination {
	return Nomination{
		ID:                uuid.NewString(),
		NominatedUserID:   userID,
		NominatedUsername: username,
		TargetMonth:       month,
		IsActive:          true,
	}
}

// checkMonthOpen fails once a game closed the month
func checkMonthOpen(tx *gorm.DB, month calendar.Month) error {
	var game Game
	err := tx.Where("month = ?", month).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return &AlreadyPickedError{Game: game}
}
