package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/CalebPenning/game-calendar-bot/internal/rotation"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const membersPageSize = 1000

// Announcer posts to the game channel of every guild the bot is in and sends the
// direct messages of the rotation
type Announcer struct {
	discord     Discord
	guildIDs    func() []string
	gameChannel string

	mutex    sync.Mutex
	channels map[string]string
}

func NewAnnouncer(discord Discord, guildIDs func() []string, gameChannel string) *Announcer {
	return &Announcer{
		discord:     discord,
		guildIDs:    guildIDs,
		gameChannel: gameChannel,
		channels:    map[string]string{},
	}
}

func (announcer *Announcer) GuildIDs() []string {
	return announcer.guildIDs()
}

func (announcer *Announcer) Announce(ctx context.Context, guildID string, message string) error {
	return announcer.send(ctx, guildID, Announcement(message))
}

func (announcer *Announcer) Members(ctx context.Context, guildID string) ([]rotation.Candidate, error) {
	var candidates []rotation.Candidate
	after := ""
	for {
		members, err := announcer.discord.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("could not list the members of guild %s: %w", guildID, err)
		}
		for _, member := range members {
			if member.User == nil {
				continue
			}
			candidates = append(candidates, rotation.Candidate{
				UserID:   member.User.ID,
				Username: displayName(member, member.User),
				Bot:      member.User.Bot,
			})
			after = member.User.ID
		}
		if len(members) < membersPageSize {
			return candidates, nil
		}
	}
}

// Nominated sends the nominee a direct message
func (announcer *Announcer) Nominated(ctx context.Context, nomination rotation.Nomination) error {
	channel, err := announcer.discord.UserChannelCreate(nomination.NominatedUserID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("could not open a direct message with %s: %w", nomination.NominatedUserID, err)
	}
	return NominationDirectMessage(nomination).Send(announcer.discord, channel.ID)
}

// Picked broadcasts the new game to every guild. A failing guild does not stop
// the others
func (announcer *Announcer) Picked(ctx context.Context, game rotation.Game) error {
	var failures []error
	for _, guildID := range announcer.guildIDs() {
		if err := announcer.send(ctx, guildID, NewGameAlert(game)); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

func (announcer *Announcer) send(ctx context.Context, guildID string, response Response) error {
	channelID, err := announcer.channelID(ctx, guildID)
	if err != nil {
		return err
	}
	if err := response.Send(announcer.discord, channelID); err != nil {
		// The channel may have been deleted or renamed
		announcer.forget(guildID)
		return fmt.Errorf("could not post in guild %s: %w", guildID, err)
	}
	return nil
}

func (announcer *Announcer) channelID(ctx context.Context, guildID string) (string, error) {
	announcer.mutex.Lock()
	channelID, ok := announcer.channels[guildID]
	announcer.mutex.Unlock()
	if ok {
		return channelID, nil
	}

	channels, err := announcer.discord.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("could not extract list of channels of guild id %s: %w", guildID, err)
	}
	for _, channel := range channels {
		if channel.Type == discordgo.ChannelTypeGuildText && channel.Name == announcer.gameChannel {
			log.Debug().Msg(fmt.Sprintf("Game channel of guild %s is %s", guildID, channel.ID))
			announcer.mutex.Lock()
			announcer.channels[guildID] = channel.ID
			announcer.mutex.Unlock()
			return channel.ID, nil
		}
	}
	return "", fmt.Errorf("no channel named %s in guild %s", announcer.gameChannel, guildID)
}

func (announcer *Announcer) forget(guildID string) {
	announcer.mutex.Lock()
	defer announcer.mutex.Unlock()
	delete(announcer.channels, guildID)
}
