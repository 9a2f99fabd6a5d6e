package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userOption(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func stringOption(name string, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func intOption(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	// Integers arrive as JSON numbers
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

func boolOption(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func resolved(users ...*discordgo.User) *discordgo.ApplicationCommandInteractionDataResolved {
	result := &discordgo.ApplicationCommandInteractionDataResolved{
		Users:   map[string]*discordgo.User{},
		Members: map[string]*discordgo.Member{},
	}
	for _, user := range users {
		result.Users[user.ID] = user
	}
	return result
}

func TestParseNominate(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name:     COMMAND_NAME_NOMINATE,
		Options:  []*discordgo.ApplicationCommandInteractionDataOption{userOption("u2"), stringOption("month", " 2024-04 "), boolOption("force", true)},
		Resolved: resolved(&discordgo.User{ID: "u2", Username: "bob", GlobalName: "Bobby"}),
	}
	data.Resolved.Members["u2"] = &discordgo.Member{Nick: "Bob the Builder"}

	result := Parse(data)
	require.Equal(t, PARSEID_OK, result.parseid, result.errorMessage)
	assert.Equal(t, COMMAND_NOMINATE, result.command)
	assert.Equal(t, NominateArguments{UserID: "u2", Username: "Bob the Builder", Month: "2024-04", Force: true}, result.arguments)
}

func TestParseNominateDefaults(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name:     COMMAND_NAME_NOMINATE,
		Options:  []*discordgo.ApplicationCommandInteractionDataOption{userOption("u2")},
		Resolved: resolved(&discordgo.User{ID: "u2", Username: "bob", GlobalName: "Bobby"}),
	}
	result := Parse(data)
	require.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, NominateArguments{UserID: "u2", Username: "Bobby"}, result.arguments)

	data.Resolved.Users["u2"] = &discordgo.User{ID: "u2", Username: "helper", Bot: true}
	result = Parse(data)
	require.Equal(t, PARSEID_OK, result.parseid)
	assert.True(t, result.arguments.(NominateArguments).Bot)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]struct {
		data    discordgo.ApplicationCommandInteractionData
		parseid int
		message string
	}{
		"unknown command": {
			data:    discordgo.ApplicationCommandInteractionData{Name: "rank"},
			parseid: PARSEID_COMMAND_NOT_RECOGNISED,
			message: "Command `rank` not recognised",
		},
		"nominate without user": {
			data:    discordgo.ApplicationCommandInteractionData{Name: COMMAND_NAME_NOMINATE},
			parseid: PARSEID_NO_INPUT,
			message: "Command `nominate-picker` requires the option `user`",
		},
		"nominate unresolved user": {
			data: discordgo.ApplicationCommandInteractionData{
				Name:    COMMAND_NAME_NOMINATE,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{userOption("u2")},
			},
			parseid: PARSEID_NOT_A_USER,
			message: "Option `user` is not a member of this server",
		},
		"nominate bad month": {
			data: discordgo.ApplicationCommandInteractionData{
				Name:     COMMAND_NAME_NOMINATE,
				Options:  []*discordgo.ApplicationCommandInteractionDataOption{userOption("u2"), stringOption("month", "2024-13")},
				Resolved: resolved(&discordgo.User{ID: "u2", Username: "bob"}),
			},
			parseid: PARSEID_NOT_A_MONTH,
			message: "Month `2024-13` is not valid. Please use YYYY-MM format (e.g., 2024-03)",
		},
		"select blank query": {
			data: discordgo.ApplicationCommandInteractionData{
				Name:    COMMAND_NAME_SELECT,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("query", "   ")},
			},
			parseid: PARSEID_NO_INPUT,
			message: "Command `select-game` requires the option `query`",
		},
		"history above the cap": {
			data: discordgo.ApplicationCommandInteractionData{
				Name:    COMMAND_NAME_HISTORY,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{intOption("limit", 26)},
			},
			parseid: PARSEID_OUT_OF_RANGE,
			message: "Option `limit` must be between 1 and 25",
		},
		"calendar below the floor": {
			data: discordgo.ApplicationCommandInteractionData{
				Name:    COMMAND_NAME_CALENDAR,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{intOption("months", 0)},
			},
			parseid: PARSEID_OUT_OF_RANGE,
			message: "Option `months` must be between 1 and 12",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := Parse(test.data)
			assert.Equal(t, test.parseid, result.parseid)
			assert.Equal(t, test.message, result.errorMessage)
		})
	}
}

func TestParseReports(t *testing.T) {
	result := Parse(discordgo.ApplicationCommandInteractionData{Name: COMMAND_NAME_CURRENT})
	assert.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, COMMAND_CURRENT, result.command)

	result = Parse(discordgo.ApplicationCommandInteractionData{Name: COMMAND_NAME_HISTORY})
	assert.Equal(t, HistoryArguments{Limit: 10}, result.arguments)
	result = Parse(discordgo.ApplicationCommandInteractionData{
		Name:    COMMAND_NAME_HISTORY,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{intOption("limit", 25)},
	})
	assert.Equal(t, HistoryArguments{Limit: 25}, result.arguments)

	result = Parse(discordgo.ApplicationCommandInteractionData{Name: COMMAND_NAME_CALENDAR})
	assert.Equal(t, CalendarArguments{Months: 6}, result.arguments)

	result = Parse(discordgo.ApplicationCommandInteractionData{
		Name:    COMMAND_NAME_SELECT,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("query", " The Witcher 3 ")},
	})
	assert.Equal(t, SelectArguments{Query: "The Witcher 3"}, result.arguments)
}

func TestCommandTableMatchesParser(t *testing.T) {
	for _, command := range Commands() {
		result := Parse(discordgo.ApplicationCommandInteractionData{Name: command.Name})
		assert.NotEqual(t, PARSEID_COMMAND_NOT_RECOGNISED, result.parseid, command.Name)
		assert.False(t, *command.DMPermission)
	}
}
