package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/giantbomb"
	"github.com/CalebPenning/game-calendar-bot/internal/rotation"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const (
	presence                = "Game Book Club | /current-game"
	DefaultSelectionTimeout = 60 * time.Second
)

// Searcher finds the games offered in the selection menu
type Searcher interface {
	Configured() bool
	Search(ctx context.Context, query string, limit int) ([]giantbomb.Game, error)
}

type Options struct {
	SearchLimit      int
	SelectionTimeout time.Duration
	Registerer       prometheus.Registerer
}

type Bot struct {
	discord  Discord
	service  *rotation.Service
	search   Searcher
	prompts  *Prompts
	options  Options
	metrics  *botMetrics
	inflight sync.WaitGroup
}

// NewSession creates the discord session with the intents the bot needs. It is
// not opened until Run
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("could not create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	return session, nil
}

// StateGuildIDs lists the guilds the session currently knows about
func StateGuildIDs(session *discordgo.Session) func() []string {
	return func() []string {
		session.State.RLock()
		defer session.State.RUnlock()
		ids := make([]string, 0, len(session.State.Guilds))
		for _, guild := range session.State.Guilds {
			ids = append(ids, guild.ID)
		}
		return ids
	}
}

func NewBot(discord Discord, service *rotation.Service, search Searcher, options Options) *Bot {
	if options.SelectionTimeout <= 0 {
		options.SelectionTimeout = DefaultSelectionTimeout
	}
	return &Bot{
		discord: discord,
		service: service,
		search:  search,
		prompts: NewPrompts(),
		options: options,
		metrics: newBotMetrics(options.Registerer),
	}
}

// Run opens the session and serves interactions until the context is done. Pending
// selection menus are closed and their handlers waited for before returning
func (bot *Bot) Run(ctx context.Context, session *discordgo.Session) error {
	removeReady := session.AddHandler(func(session *discordgo.Session, ready *discordgo.Ready) {
		log.Info().Msg(fmt.Sprintf("Logged in as %s, serving %d guilds", ready.User.Username, len(ready.Guilds)))
		if err := session.UpdateGameStatus(0, presence); err != nil {
			log.Warn().Err(err).Msg("Could not set the presence")
		}
	})
	defer removeReady()
	removeInteraction := session.AddHandler(func(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
		bot.HandleInteraction(ctx, interaction.Interaction)
	})

	if err := session.Open(); err != nil {
		removeInteraction()
		return fmt.Errorf("could not open discord session: %w", err)
	}
	log.Info().Msg("Bot is running")

	<-ctx.Done()
	removeInteraction()
	log.Info().Msg("Waiting for the interactions in flight")
	bot.inflight.Wait()
	return session.Close()
}

// HandleInteraction dispatches slash commands and selection menu answers
func (bot *Bot) HandleInteraction(ctx context.Context, interaction *discordgo.Interaction) {
	bot.inflight.Add(1)
	defer bot.inflight.Done()

	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		bot.command(ctx, interaction)
	case discordgo.InteractionMessageComponent:
		bot.component(interaction)
	default:
		log.Debug().Msg(fmt.Sprintf("Ignoring interaction of type %s", interaction.Type))
	}
}

func (bot *Bot) command(ctx context.Context, interaction *discordgo.Interaction) {

	data := interaction.ApplicationCommandData()
	user, _ := interactionUser(interaction)
	log.Debug().Msg(fmt.Sprintf("Received command %s from %s", data.Name, user.ID))

	parseResult := Parse(data)
	var err error
	switch parseResult.parseid {
	case PARSEID_OK:
		bot.metrics.commands.WithLabelValues(data.Name, "ok").Inc()
		switch parseResult.command {
		case COMMAND_NOMINATE:
			switch arguments := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of nominate arguments %T", arguments))
			case NominateArguments:
				err = bot.nominate(ctx, interaction, arguments)
			}
		case COMMAND_SELECT:
			switch arguments := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of select arguments %T", arguments))
			case SelectArguments:
				err = bot.selectGame(ctx, interaction, arguments)
			}
		case COMMAND_CURRENT:
			err = bot.currentGame(ctx, interaction)
		case COMMAND_HISTORY:
			switch arguments := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of history arguments %T", arguments))
			case HistoryArguments:
				err = bot.history(ctx, interaction, arguments)
			}
		case COMMAND_CALENDAR:
			switch arguments := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of calendar arguments %T", arguments))
			case CalendarArguments:
				err = bot.calendar(ctx, interaction, arguments)
			}
		default:
			panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
		}
	default:
		bot.metrics.commands.WithLabelValues(data.Name, "invalid").Inc()
		log.Info().Msg(fmt.Sprintf("Wrong input for %s. Reason: %s", data.Name, parseResult.errorMessage))
		err = InputNotValid(parseResult.errorMessage).Respond(bot.discord, interaction)
	}

	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not answer command %s", data.Name))
	}
}

func (bot *Bot) component(interaction *discordgo.Interaction) {
	data := interaction.MessageComponentData()
	if !isPromptID(data.CustomID) {
		log.Debug().Msg(fmt.Sprintf("Ignoring component %s", data.CustomID))
		return
	}
	user, _ := interactionUser(interaction)
	var err error
	if bot.prompts.Deliver(data.CustomID, user.ID, data.Values) {
		err = acknowledge(bot.discord, interaction)
	} else {
		err = SelectionNotAvailable().Respond(bot.discord, interaction)
	}
	if err != nil {
		log.Error().Err(err).Msg("Could not answer the selection menu")
	}
}

// reject replies with the reason of a failed operation. Only failures that are not
// rotation rules get logged as errors
func (bot *Bot) reject(interaction *discordgo.Interaction, err error, deferred bool) error {
	if !rotation.IsDomainError(err) {
		log.Error().Err(err).Msg("Command failed")
	}
	if deferred {
		return ErrorResponse(err).Edit(bot.discord, interaction)
	}
	return ErrorResponse(err).Respond(bot.discord, interaction)
}

func (bot *Bot) nominate(ctx context.Context, interaction *discordgo.Interaction, arguments NominateArguments) error {
	if arguments.Bot {
		return BotCannotBeNominated(arguments.UserID).Respond(bot.discord, interaction)
	}
	nomination, err := bot.service.Nominate(ctx, rotation.NominateRequest{
		UserID:   arguments.UserID,
		Username: arguments.Username,
		Month:    arguments.Month,
		Force:    arguments.Force,
	})
	if err != nil {
		return bot.reject(interaction, err, false)
	}
	user, _ := interactionUser(interaction)
	err = NominationCreated(nomination, user.ID).Respond(bot.discord, interaction)
	bot.service.NotifyNominated(ctx, nomination)
	return err
}

func (bot *Bot) selectGame(ctx context.Context, interaction *discordgo.Interaction, arguments SelectArguments) error {
	user, username := interactionUser(interaction)

	// The month is fixed here so that a rollover during the wait does not move the pick
	nomination, err := bot.service.ResolveSelection(ctx, user.ID)
	if err != nil {
		return bot.reject(interaction, err, false)
	}
	if !bot.search.Configured() {
		return SearchNotConfigured().Respond(bot.discord, interaction)
	}
	if err := deferResponse(bot.discord, interaction, false); err != nil {
		return err
	}

	games, err := bot.searchGames(ctx, arguments.Query)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Search for %q failed", arguments.Query))
		return SearchUnavailable().Edit(bot.discord, interaction)
	}
	if len(games) == 0 {
		return NoSearchResults(arguments.Query).Edit(bot.discord, interaction)
	}

	id := bot.prompts.Open(user.ID)
	if err := SearchResults(arguments.Query, games, nomination.TargetMonth, id).Edit(bot.discord, interaction); err != nil {
		bot.prompts.Cancel(id)
		return err
	}

	values, err := bot.prompts.Await(ctx, id, bot.options.SelectionTimeout)
	if err != nil {
		if errors.Is(err, ErrPromptTimeout) {
			bot.metrics.prompts.WithLabelValues("timeout").Inc()
		} else {
			bot.metrics.prompts.WithLabelValues("cancelled").Inc()
		}
		return SelectionTimeout().Edit(bot.discord, interaction)
	}

	index, err := strconv.Atoi(values[0])
	if err != nil || index < 0 || index >= len(games) {
		bot.metrics.prompts.WithLabelValues("invalid").Inc()
		return InputNotValid(fmt.Sprintf("Selection `%s` is not one of the results", values[0])).Edit(bot.discord, interaction)
	}
	chosen := games[index]

	game, err := bot.service.SelectGame(ctx, rotation.SelectRequest{
		UserID:      user.ID,
		Username:    username,
		Month:       nomination.TargetMonth,
		GameName:    chosen.Name,
		Description: chosen.Deck,
		ImageURL:    chosen.ImageURL(),
	})
	if err != nil {
		bot.metrics.prompts.WithLabelValues("rejected").Inc()
		return bot.reject(interaction, err, true)
	}
	bot.metrics.prompts.WithLabelValues("selected").Inc()
	return GameSelected(game).Edit(bot.discord, interaction)
}

// searchGames retries without subtitles or qualifiers when the exact query finds nothing
func (bot *Bot) searchGames(ctx context.Context, query string) ([]giantbomb.Game, error) {
	games, err := bot.search.Search(ctx, query, bot.options.SearchLimit)
	if err != nil || len(games) > 0 {
		return games, err
	}
	cleaned := giantbomb.CleanName(query)
	if cleaned == "" || cleaned == query {
		return games, nil
	}
	log.Debug().Msg(fmt.Sprintf("No results for %q, trying %q", query, cleaned))
	return bot.search.Search(ctx, cleaned, bot.options.SearchLimit)
}

func (bot *Bot) currentGame(ctx context.Context, interaction *discordgo.Interaction) error {
	game, month, err := bot.service.CurrentGame(ctx)
	if err != nil {
		return bot.reject(interaction, err, false)
	}
	return CurrentGame(game, month).Respond(bot.discord, interaction)
}

func (bot *Bot) history(ctx context.Context, interaction *discordgo.Interaction, arguments HistoryArguments) error {
	history, err := bot.service.History(ctx, arguments.Limit)
	if err != nil {
		return bot.reject(interaction, err, false)
	}
	return GameHistory(history).Respond(bot.discord, interaction)
}

func (bot *Bot) calendar(ctx context.Context, interaction *discordgo.Interaction, arguments CalendarArguments) error {
	entries, err := bot.service.Calendar(ctx, arguments.Months)
	if err != nil {
		return bot.reject(interaction, err, false)
	}
	eligible, err := bot.service.Eligible(ctx)
	if err != nil {
		return bot.reject(interaction, err, false)
	}
	return GameCalendar(entries, eligible).Respond(bot.discord, interaction)
}

// RegisterCommands overwrites the application commands, in a single guild when
// guildID is set and globally otherwise
func RegisterCommands(session *discordgo.Session, applicationID string, guildID string) ([]*discordgo.ApplicationCommand, error) {
	if applicationID == "" {
		user, err := session.User("@me")
		if err != nil {
			return nil, fmt.Errorf("could not resolve the application id: %w", err)
		}
		applicationID = user.ID
	}
	commands, err := session.ApplicationCommandBulkOverwrite(applicationID, guildID, Commands())
	if err != nil {
		return nil, fmt.Errorf("could not register commands: %w", err)
	}
	for _, command := range commands {
		log.Info().Msg(fmt.Sprintf("Registered command /%s", command.Name))
	}
	return commands, nil
}
