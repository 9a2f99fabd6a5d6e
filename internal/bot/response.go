package bot

import (
	"github.com/bwmarrin/discordgo"
)

// Discord is the part of the discordgo session the bot talks through
type Discord interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

// Response is one message of the bot, either a reply to an interaction or a
// plain channel message
type Response struct {
	content    string
	embeds     []*discordgo.MessageEmbed
	components []discordgo.MessageComponent
	ephemeral  bool
}

func (response Response) flags() discordgo.MessageFlags {
	if response.ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// Respond replies to an interaction that has not been acknowledged yet
func (response Response) Respond(discord Discord, interaction *discordgo.Interaction) error {
	return discord.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    response.content,
			Embeds:     response.embeds,
			Components: response.components,
			Flags:      response.flags(),
		},
	})
}

// Edit replaces the original reply of a deferred interaction. Components are
// always sent, so an edit without them removes a previous menu
func (response Response) Edit(discord Discord, interaction *discordgo.Interaction) error {
	content := response.content
	embeds := response.embeds
	components := response.components
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	_, err := discord.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	})
	return err
}

// Followup adds a new message to an interaction that was already answered
func (response Response) Followup(discord Discord, interaction *discordgo.Interaction) error {
	_, err := discord.FollowupMessageCreate(interaction, true, &discordgo.WebhookParams{
		Content:    response.content,
		Embeds:     response.embeds,
		Components: response.components,
		Flags:      response.flags(),
	})
	return err
}

// Send posts the response to a channel outside of any interaction
func (response Response) Send(discord Discord, channelID string) error {
	_, err := discord.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    response.content,
		Embeds:     response.embeds,
		Components: response.components,
	})
	return err
}

// deferResponse acknowledges an interaction that needs longer than Discord's reply window
func deferResponse(discord Discord, interaction *discordgo.Interaction, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return discord.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

// acknowledge answers a component interaction without touching its message
func acknowledge(discord Discord, interaction *discordgo.Interaction) error {
	return discord.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}
