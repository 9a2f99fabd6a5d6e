package bot

import (
	"fmt"
	"strings"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
	"github.com/CalebPenning/game-calendar-bot/internal/rotation"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	COMMAND_NOMINATE = iota
	COMMAND_SELECT   = iota
	COMMAND_CURRENT  = iota
	COMMAND_HISTORY  = iota
	COMMAND_CALENDAR = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_INPUT               = iota
	PARSEID_NOT_A_USER             = iota
	PARSEID_NOT_A_MONTH            = iota
	PARSEID_OUT_OF_RANGE           = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` requires the option `%s`",
	PARSEID_NOT_A_USER:             "Option `%s` is not a member of this server",
	PARSEID_NOT_A_MONTH:            "Month `%s` is not valid. Please use YYYY-MM format (e.g., 2024-03)",
	PARSEID_OUT_OF_RANGE:           "Option `%s` must be between %d and %d",
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

type NominateArguments struct {
	UserID   string
	Username string
	Bot      bool
	Month    string
	Force    bool
}

type SelectArguments struct {
	Query string
}

type HistoryArguments struct {
	Limit int
}

type CalendarArguments struct {
	Months int
}

// Parse validates the options of a slash command. Every primitive is checked here,
// so handlers only deal with well formed input
func Parse(data discordgo.ApplicationCommandInteractionData) ParseResult {

	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, option := range data.Options {
		options[option.Name] = option
	}

	switch data.Name {
	case COMMAND_NAME_NOMINATE:
		// /nominate-picker user [month] [force]
		command := COMMAND_NOMINATE
		user, ok := options["user"]
		if !ok {
			return noInput(command, data.Name, "user")
		}
		userID, _ := user.Value.(string)
		arguments := NominateArguments{UserID: userID}
		if resolved := resolveUser(data, userID); resolved != nil {
			arguments.Username = displayName(resolved.member, resolved.user)
			arguments.Bot = resolved.user.Bot
		} else {
			parseid := PARSEID_NOT_A_USER
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], "user")}
		}
		if month, ok := options["month"]; ok {
			arguments.Month = strings.TrimSpace(month.StringValue())
			if _, err := calendar.ParseMonth(arguments.Month); err != nil {
				parseid := PARSEID_NOT_A_MONTH
				return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], arguments.Month)}
			}
		}
		if force, ok := options["force"]; ok {
			arguments.Force = force.BoolValue()
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: arguments}
	case COMMAND_NAME_SELECT:
		// /select-game query
		command := COMMAND_SELECT
		query, ok := options["query"]
		if !ok || strings.TrimSpace(query.StringValue()) == "" {
			return noInput(command, data.Name, "query")
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: SelectArguments{Query: strings.TrimSpace(query.StringValue())}}
	case COMMAND_NAME_CURRENT:
		// /current-game
		return ParseResult{command: COMMAND_CURRENT, parseid: PARSEID_OK}
	case COMMAND_NAME_HISTORY:
		// /game-history [limit]
		limit, result := parseBounded(options, "limit", rotation.DefaultHistoryLimit, rotation.MaxHistoryLimit, COMMAND_HISTORY)
		if result != nil {
			return *result
		}
		return ParseResult{command: COMMAND_HISTORY, parseid: PARSEID_OK, arguments: HistoryArguments{Limit: limit}}
	case COMMAND_NAME_CALENDAR:
		// /game-calendar [months]
		months, result := parseBounded(options, "months", rotation.DefaultCalendarSpan, rotation.MaxCalendarSpan, COMMAND_CALENDAR)
		if result != nil {
			return *result
		}
		return ParseResult{command: COMMAND_CALENDAR, parseid: PARSEID_OK, arguments: CalendarArguments{Months: months}}
	default:
		log.Warn().Msg(fmt.Sprintf("Received unknown command %s", data.Name))
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], data.Name)}
	}
}

func noInput(command int, commandName string, optionName string) ParseResult {
	parseid := PARSEID_NO_INPUT
	return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandName, optionName)}
}

// Discord enforces the bounds on its side as well, but nothing stops a stale command definition
func parseBounded(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int, max int, command int) (int, *ParseResult) {
	option, ok := options[name]
	if !ok {
		return fallback, nil
	}
	value := int(option.IntValue())
	if value < 1 || value > max {
		parseid := PARSEID_OUT_OF_RANGE
		return 0, &ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], name, 1, max)}
	}
	return value, nil
}

type resolvedUser struct {
	user   *discordgo.User
	member *discordgo.Member
}

func resolveUser(data discordgo.ApplicationCommandInteractionData, userID string) *resolvedUser {
	if data.Resolved == nil || userID == "" {
		return nil
	}
	user, ok := data.Resolved.Users[userID]
	if !ok || user == nil {
		return nil
	}
	return &resolvedUser{user: user, member: data.Resolved.Members[userID]}
}

// displayName prefers the server nickname, then the global name, then the username
func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

// interactionUser is whoever triggered the interaction
func interactionUser(interaction *discordgo.Interaction) (*discordgo.User, string) {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User, displayName(interaction.Member, interaction.Member.User)
	}
	if interaction.User != nil {
		return interaction.User, displayName(nil, interaction.User)
	}
	return &discordgo.User{}, ""
}
