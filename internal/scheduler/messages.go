package scheduler

import (
	"fmt"

	"github.com/CalebPenning/game-calendar-bot/internal/rotation"
)

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func newMonthMessage(game *rotation.Game) string {
	if game == nil {
		return "📅 **NEW MONTH!** 📅\n\nNo game has been selected for this month yet. Admins, use `/nominate-picker` to get things started! 🎯"
	}
	return fmt.Sprintf("🎉 **NEW MONTH, NEW GAME!** 🎉\n\nIt's time to start playing **%s** selected by %s!\n\nShare your thoughts, screenshots, and experiences as you play! 🎮",
		game.GameName, mention(game.PickerID))
}

// weeklyMessage is empty when there is nothing to remind
func weeklyMessage(status rotation.CalendarEntry, daysLeft int) string {
	switch {
	case status.Game != nil:
		word := "LEFT"
		if daysLeft <= 3 {
			word = "ENDING"
		}
		return fmt.Sprintf("⏰ **WEEK %s REMINDER** ⏰\n\nOnly %d days left to enjoy **%s**! Share your final thoughts and prepare for next month's selection! 🎮",
			word, daysLeft, status.Game.GameName)
	case status.Nomination != nil:
		return fmt.Sprintf("🚨 **URGENT REMINDER** 🚨\n\n%s, you still need to select this month's game! Only %d days left in the month. Use `/select-game` now! ⏱️",
			mention(status.Nomination.NominatedUserID), daysLeft)
	default:
		return ""
	}
}

func nextMonthMessage(status rotation.CalendarEntry) string {
	title := status.Month.Title()
	switch {
	case status.Game != nil:
		return fmt.Sprintf("🎯 **NEXT MONTH READY!** 🎯\n\n**%s** is already selected for %s by %s! Get ready! 🎮",
			status.Game.GameName, title, mention(status.Game.PickerID))
	case status.Nomination != nil:
		return fmt.Sprintf("⏳ **NEXT MONTH PENDING** ⏳\n\n%s is nominated to pick for %s but hasn't selected yet. Don't forget to use `/select-game`! 🎯",
			mention(status.Nomination.NominatedUserID), title)
	default:
		return fmt.Sprintf("📋 **NEXT MONTH PLANNING** 📋\n\nNo one is nominated for %s yet. Admins, consider using `/nominate-picker` to keep the rotation going! 🔄", title)
	}
}

func autoNominationMessage(nomination rotation.Nomination, daysLeft int) string {
	return fmt.Sprintf("🤖 **AUTO-NOMINATION!** 🤖\n\nWith %d days left in the month, I've randomly selected %s to pick the game for **%s**!\n\n%s, use `/select-game` to choose your game! 🎮",
		daysLeft, mention(nomination.NominatedUserID), nomination.TargetMonth.Title(), mention(nomination.NominatedUserID))
}
