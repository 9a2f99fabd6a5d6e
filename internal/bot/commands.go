package bot

import (
	"github.com/CalebPenning/game-calendar-bot/internal/rotation"
	"github.com/bwmarrin/discordgo"
)

const (
	COMMAND_NAME_NOMINATE = "nominate-picker"
	COMMAND_NAME_SELECT   = "select-game"
	COMMAND_NAME_CURRENT  = "current-game"
	COMMAND_NAME_HISTORY  = "game-history"
	COMMAND_NAME_CALENDAR = "game-calendar"
)

func floatPointer(value float64) *float64 {
	return &value
}

func boolPointer(value bool) *bool {
	return &value
}

// Commands is the application command table, registered as a whole
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         COMMAND_NAME_NOMINATE,
			Description:  "Nominate a member to pick the next game",
			DMPermission: boolPointer(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to nominate",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "month",
					Description: "Month to nominate for (YYYY-MM format, defaults to current month)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "force",
					Description: "Nominate even if the user picked recently",
				},
			},
		},
		{
			Name:         COMMAND_NAME_SELECT,
			Description:  "Search for and select a game for the current or next month",
			DMPermission: boolPointer(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Search for a game (e.g., \"The Witcher 3\")",
					Required:    true,
				},
			},
		},
		{
			Name:         COMMAND_NAME_CURRENT,
			Description:  "View the current month's game",
			DMPermission: boolPointer(false),
		},
		{
			Name:         COMMAND_NAME_HISTORY,
			Description:  "View past games and their pickers",
			DMPermission: boolPointer(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "Number of games to show (default: 10)",
					MinValue:    floatPointer(1),
					MaxValue:    rotation.MaxHistoryLimit,
				},
			},
		},
		{
			Name:         COMMAND_NAME_CALENDAR,
			Description:  "View upcoming months calendar",
			DMPermission: boolPointer(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "months",
					Description: "Number of months to show (default: 6)",
					MinValue:    floatPointer(1),
					MaxValue:    rotation.MaxCalendarSpan,
				},
			},
		},
	}
}
