package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
	"github.com/CalebPenning/game-calendar-bot/internal/giantbomb"
	"github.com/CalebPenning/game-calendar-bot/internal/rotation"
	"github.com/bwmarrin/discordgo"
)

const (
	colorError    int = 0xff6b6b
	colorWarning  int = 0xffd93d
	colorSuccess  int = 0x45b7d1
	colorInfo     int = 0x4ecdc4
	colorCalendar int = 0x95e1d3
)

// Discord caps
const (
	maxOptionLength     = 100
	maxFieldValueLength = 1024
)

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

func plural(count int, word string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, word)
	}
	return fmt.Sprintf("%d %ss", count, word)
}

func embedResponse(embed *discordgo.MessageEmbed, ephemeral bool) Response {
	if embed.Timestamp == "" {
		embed.Timestamp = timestamp()
	}
	return Response{embeds: []*discordgo.MessageEmbed{embed}, ephemeral: ephemeral}
}

func errorResponse(title string, description string) Response {
	return embedResponse(&discordgo.MessageEmbed{Title: "❌ " + title, Description: description, Color: colorError}, true)
}

func InputNotValid(errorMessage string) Response {
	return errorResponse("Invalid Input", errorMessage)
}

func SomethingWentWrong() Response {
	return errorResponse("Something went wrong", "An unexpected error occurred. Please try again later.")
}

func BotCannotBeNominated(userID string) Response {
	return errorResponse("Invalid Nominee", fmt.Sprintf("%s is a bot and cannot pick games.", mention(userID)))
}

// ErrorResponse explains a failed command to the member who ran it
func ErrorResponse(err error) Response {
	var alreadyPicked *rotation.AlreadyPickedError
	var wrongNominee *rotation.WrongNomineeError
	var notEligible *rotation.NotEligibleError

	switch {
	case errors.As(err, &alreadyPicked):
		game := alreadyPicked.Game
		return errorResponse("Game Already Selected",
			fmt.Sprintf("A game has already been selected for %s: **%s** by %s", game.Month.Title(), game.GameName, mention(game.PickerID)))
	case errors.As(err, &wrongNominee):
		nomination := wrongNominee.Nomination
		return errorResponse("Not Your Turn",
			fmt.Sprintf("%s is currently nominated to pick the game for %s.", mention(nomination.NominatedUserID), nomination.TargetMonth.Title()))
	case errors.As(err, &notEligible):
		return NotEligible(notEligible)
	case errors.Is(err, rotation.ErrNotNominated):
		return errorResponse("Not Nominated",
			"You are not currently nominated to pick a game. An admin needs to nominate you first using `/nominate-picker`.")
	case errors.Is(err, calendar.ErrInvalidMonth):
		return errorResponse("Invalid Month Format", "Please use YYYY-MM format (e.g., 2024-03)")
	case errors.Is(err, rotation.ErrNoCandidates):
		return errorResponse("No Eligible Members", "Nobody can be nominated right now.")
	case errors.Is(err, rotation.ErrInvalidInput):
		return InputNotValid(err.Error())
	case errors.Is(err, giantbomb.ErrUpstreamUnavailable):
		return SearchUnavailable()
	default:
		return SomethingWentWrong()
	}
}

func NotEligible(err *rotation.NotEligibleError) Response {
	names := make([]string, 0, len(err.RecentPickers))
	for _, game := range err.RecentPickers {
		names = append(names, game.PickerName)
	}
	description := fmt.Sprintf("%s cannot be nominated right now: %s.", mention(err.UserID), err.Reason)
	if len(names) > 0 {
		description = fmt.Sprintf("%s was one of the last %s (%s). Consider nominating someone else to maintain rotation fairness.",
			mention(err.UserID), plural(len(names), "game picker"), strings.Join(names, ", "))
	}
	embed := &discordgo.MessageEmbed{Title: "⚠️ User Not Eligible", Description: description, Color: colorWarning}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Eligible Members",
		Value: memberMentions(err.Eligible, "None available"),
	})
	return embedResponse(embed, true)
}

func memberMentions(members []rotation.Member, empty string) string {
	if len(members) == 0 {
		return empty
	}
	mentions := make([]string, 0, len(members))
	for _, member := range members {
		mentions = append(mentions, mention(member.UserID))
	}
	return truncate(strings.Join(mentions, ", "), maxFieldValueLength)
}

func NominationCreated(nomination rotation.Nomination, nominatedBy string) Response {
	title := nomination.TargetMonth.Title()
	embed := &discordgo.MessageEmbed{
		Title:       "🎯 Member Nominated!",
		Description: fmt.Sprintf("%s has been nominated to pick the game for **%s**!", mention(nomination.NominatedUserID), title),
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Nominated by", Value: mention(nominatedBy), Inline: true},
			{Name: "Target Month", Value: title, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "They can now use /select-game to choose!"},
	}
	return embedResponse(embed, false)
}

// NominationDirectMessage is sent privately to the nominee
func NominationDirectMessage(nomination rotation.Nomination) Response {
	embed := &discordgo.MessageEmbed{
		Title:       "🎮 You've Been Nominated!",
		Description: fmt.Sprintf("You've been nominated to pick the game for **%s** in the Game Book Club!", nomination.TargetMonth.Title()),
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "What to do next",
			Value: "Use the `/select-game` command in the server to choose your game. Take your time and pick something you think everyone will enjoy!",
		}},
	}
	return embedResponse(embed, false)
}

func CurrentGame(game *rotation.Game, month calendar.Month) Response {
	if game == nil {
		embed := &discordgo.MessageEmbed{
			Title:       "📅 No Game Selected",
			Description: fmt.Sprintf("No game has been selected for %s yet!", month.Title()),
			Color:       colorWarning,
		}
		return embedResponse(embed, false)
	}
	description := fmt.Sprintf("**%s**", game.GameName)
	if game.Description != "" {
		description += "\n\n" + game.Description
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🎮 %s's Game", month.Title()),
		Description: description,
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Picked by", Value: mention(game.PickerID), Inline: true},
			{Name: "Selected on", Value: game.SelectedAt.Format("January 2, 2006"), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Happy gaming! 🎮"},
	}
	if game.ImageURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: game.ImageURL}
	}
	return embedResponse(embed, false)
}

func GameHistory(history rotation.History) Response {
	if len(history.Games) == 0 {
		embed := &discordgo.MessageEmbed{
			Title:       "📚 No Game History",
			Description: "No games have been selected yet! Use `/nominate-picker` to get started.",
			Color:       colorInfo,
		}
		return embedResponse(embed, false)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📚 Game Book Club History",
		Description: fmt.Sprintf("Showing the last %s:", plural(len(history.Games), "game")),
		Color:       colorInfo,
	}
	for index, game := range history.Games {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%d. %s", index+1, game.Month.Title()),
			Value: fmt.Sprintf("**%s**\nPicked by: %s\nSelected: %s",
				game.GameName, mention(game.PickerID), game.SelectedAt.Format("January 2, 2006")),
		})
	}
	if len(history.TopPickers) > 0 {
		lines := make([]string, 0, len(history.TopPickers))
		for _, stat := range history.TopPickers {
			lines = append(lines, fmt.Sprintf("%s: %s", mention(stat.UserID), plural(stat.Picks, "game")))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🏆 Top Pickers", Value: strings.Join(lines, "\n")})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Total games played: %d | Unique pickers: %d", history.TotalGames, history.UniquePickers),
	}
	return embedResponse(embed, false)
}

func GameCalendar(entries []rotation.CalendarEntry, eligible []rotation.Member) Response {
	embed := &discordgo.MessageEmbed{
		Title:       "📅 Game Book Club Calendar",
		Description: fmt.Sprintf("Upcoming %s:", plural(len(entries), "month")),
		Color:       colorCalendar,
	}
	for index, entry := range entries {
		var emoji, status string
		switch {
		case entry.Game != nil:
			emoji = "🎮"
			status = fmt.Sprintf("✅ **%s**\nPicked by: %s", entry.Game.GameName, mention(entry.Game.PickerID))
		case entry.Nomination != nil:
			emoji = "⏳"
			status = fmt.Sprintf("🎯 Waiting for %s to select", mention(entry.Nomination.NominatedUserID))
		default:
			emoji = "📝"
			status = "❓ No picker nominated yet"
		}
		name := fmt.Sprintf("%s %s", emoji, entry.Month.Title())
		if index == 0 {
			name += " (Current)"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: status})
	}
	if len(eligible) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "👥 Currently Eligible for Nomination",
			Value: memberMentions(eligible, ""),
		})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Use /nominate-picker to nominate someone for an upcoming month!"}
	return embedResponse(embed, false)
}

// SearchResults shows the games found along with the menu to pick one of them.
// The option values are indexes into games
func SearchResults(query string, games []giantbomb.Game, month calendar.Month, promptID string) Response {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🔍 Game Search Results for \"%s\"", truncate(query, maxOptionLength)),
		Description: fmt.Sprintf("Found %s. Select one for **%s**:", plural(len(games), "game"), month.Title()),
		Color:       colorInfo,
	}
	options := make([]discordgo.SelectMenuOption, 0, len(games))
	for index, game := range games {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  truncate(fmt.Sprintf("%d. %s", index+1, game.Name), 256),
			Value: truncate(gameSummary(game), maxFieldValueLength),
		})
		description := game.Deck
		if description == "" {
			description = "No description"
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       truncate(game.Name, maxOptionLength),
			Value:       strconv.Itoa(index),
			Description: truncate(description, maxOptionLength),
		})
	}
	if len(games) > 0 && games[0].ImageURL() != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: games[0].ImageURL()}
	}

	response := embedResponse(embed, false)
	response.components = []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    promptID,
				Placeholder: "Choose a game...",
				Options:     options,
			},
		}},
	}
	return response
}

func gameSummary(game giantbomb.Game) string {
	deck := game.Deck
	if deck == "" {
		deck = "No description available"
	}
	return fmt.Sprintf("%s\n**Platforms:** %s | **Released:** %s", deck, game.PlatformList(), game.ReleaseYear())
}

func NoSearchResults(query string) Response {
	return Response{content: fmt.Sprintf("🔍 No games found for \"%s\". Try a different search term!", query)}
}

func SearchNotConfigured() Response {
	return Response{content: "❌ Giant Bomb API is not configured. Please contact an administrator.", ephemeral: true}
}

func SearchUnavailable() Response {
	return errorResponse("Search Unavailable", "Error searching for games. Please try again later.")
}

func SelectionTimeout() Response {
	embed := &discordgo.MessageEmbed{
		Title:       "⏰ Selection Timeout",
		Description: "You took too long to select a game. Please run the command again.",
		Color:       colorWarning,
	}
	return embedResponse(embed, false)
}

func SelectionNotAvailable() Response {
	return Response{content: "This menu is not yours or has expired.", ephemeral: true}
}

func GameSelected(game rotation.Game) Response {
	title := game.Month.Title()
	embed := &discordgo.MessageEmbed{
		Title:       "🎉 Game Selected!",
		Description: fmt.Sprintf("**%s** has been selected for %s!", game.GameName, title),
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Selected by", Value: mention(game.PickerID), Inline: true},
			{Name: "Month", Value: title, Inline: true},
		},
	}
	if game.ImageURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: game.ImageURL}
	}
	return embedResponse(embed, false)
}

// NewGameAlert is broadcast to the game channels once a pick is recorded
func NewGameAlert(game rotation.Game) Response {
	embed := &discordgo.MessageEmbed{
		Title: "📢 New Game Alert!",
		Description: fmt.Sprintf("%s has selected **%s** for %s! Time to start planning your gaming sessions! 🎮",
			mention(game.PickerID), game.GameName, game.Month.Title()),
		Color: colorCalendar,
	}
	if game.ImageURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: game.ImageURL}
	}
	return embedResponse(embed, false)
}

// Announcement wraps the plain text of a scheduled message
func Announcement(message string) Response {
	return Response{content: message}
}
