package main

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/ticketing"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/transcript"
	"github.com/Jacobbrewer1/discordgo"
)

// memberAllow is the permission set granted to ticket participants.
const memberAllow = discordgo.PermissionAllText | discordgo.PermissionAllVoice

// discordPlatform drives a live session for the lifecycle engine.
type discordPlatform struct {
	s *discordgo.Session
}

func newDiscordPlatform(s *discordgo.Session) *discordPlatform {
	return &discordPlatform{s: s}
}

func (p *discordPlatform) CreateChannel(_ context.Context, guildID string, params ticketing.ChannelParams) (string, error) {
	channelType := discordgo.ChannelTypeGuildText
	if params.Voice {
		channelType = discordgo.ChannelTypeGuildVoice
	}

	// Everyone is denied; only the listed users and roles are let in.
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionAll,
		},
	}
	for _, userID := range params.UserIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberAllow,
		})
	}
	for _, roleID := range params.RoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: memberAllow,
		})
	}

	channel, err := p.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 params.Name,
		Type:                 channelType,
		Topic:                params.Topic,
		ParentID:             params.CategoryID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", fmt.Errorf("error creating channel: %w", err)
	}
	return channel.ID, nil
}

func (p *discordPlatform) RenameChannel(_ context.Context, channelID string, name string) error {
	if _, err := p.s.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		Name: name,
	}); err != nil {
		return fmt.Errorf("error renaming channel: %w", err)
	}
	return nil
}

func (p *discordPlatform) SetTopic(_ context.Context, channelID string, topic string) error {
	if _, err := p.s.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		Topic: topic,
	}); err != nil {
		return fmt.Errorf("error setting channel topic: %w", err)
	}
	return nil
}

func (p *discordPlatform) DeleteChannel(_ context.Context, channelID string, _ string) error {
	if _, err := p.s.ChannelDelete(channelID); err != nil {
		return fmt.Errorf("error deleting channel: %w", err)
	}
	return nil
}

func (p *discordPlatform) SetPermissions(_ context.Context, channelID string, userIDs, roleIDs []string) error {
	channel, err := p.s.Channel(channelID)
	if err != nil {
		return fmt.Errorf("error getting channel: %w", err)
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   channel.GuildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionAll,
		},
	}
	for _, userID := range userIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberAllow,
		})
	}
	for _, roleID := range roleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: memberAllow,
		})
	}

	if _, err := p.s.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		PermissionOverwrites: overwrites,
	}); err != nil {
		return fmt.Errorf("error replacing channel permissions: %w", err)
	}
	return nil
}

func (p *discordPlatform) AllowRole(_ context.Context, channelID string, roleID string) error {
	if err := p.s.ChannelPermissionSet(channelID, roleID, discordgo.PermissionOverwriteTypeRole, memberAllow, 0); err != nil {
		return fmt.Errorf("error granting role access: %w", err)
	}
	return nil
}

func (p *discordPlatform) DenyRole(_ context.Context, channelID string, roleID string) error {
	// Removing the overwrite is enough; the channel denies everyone by
	// default.
	if err := p.s.ChannelPermissionDelete(channelID, roleID); err != nil {
		return fmt.Errorf("error revoking role access: %w", err)
	}
	return nil
}

func (p *discordPlatform) Send(_ context.Context, channelID string, notice ticketing.Notice) (string, error) {
	msg, err := p.s.ChannelMessageSendComplex(channelID, messageSend(notice))
	if err != nil {
		return "", fmt.Errorf("error sending message: %w", err)
	}
	return msg.ID, nil
}

func (p *discordPlatform) Pin(_ context.Context, channelID string, messageID string) error {
	if err := p.s.ChannelMessagePin(channelID, messageID); err != nil {
		return fmt.Errorf("error pinning message: %w", err)
	}
	return nil
}

func (p *discordPlatform) Unpin(_ context.Context, channelID string, messageID string) error {
	if err := p.s.ChannelMessageUnpin(channelID, messageID); err != nil {
		return fmt.Errorf("error unpinning message: %w", err)
	}
	return nil
}

func (p *discordPlatform) DeleteMessage(_ context.Context, channelID string, messageID string) error {
	if err := p.s.ChannelMessageDelete(channelID, messageID); err != nil {
		return fmt.Errorf("error deleting message: %w", err)
	}
	return nil
}

func (p *discordPlatform) DM(_ context.Context, userID string, notice ticketing.Notice) error {
	channel, err := p.s.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("error creating DM channel: %w", err)
	}
	if _, err := p.s.ChannelMessageSendComplex(channel.ID, messageSend(notice)); err != nil {
		return fmt.Errorf("error sending DM: %w", err)
	}
	return nil
}

func (p *discordPlatform) MemberHasRole(_ context.Context, guildID string, userID string, roleID string) (bool, error) {
	member, err := p.s.GuildMember(guildID, userID)
	if err != nil {
		return false, fmt.Errorf("error getting guild member: %w", err)
	}
	return slices.Contains(member.Roles, roleID), nil
}

// messageSend converts an engine notice into the wire message shape.
func messageSend(notice ticketing.Notice) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{
		Content: notice.Content,
	}

	for _, e := range notice.Embeds {
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  f.Name,
				Value: f.Value,
			})
		}
		msg.Embeds = append(msg.Embeds, embed)
	}

	if len(notice.Buttons) > 0 {
		buttons := make([]discordgo.MessageComponent, 0, len(notice.Buttons))
		for _, b := range notice.Buttons {
			buttons = append(buttons, discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				Emoji:    discordgo.ComponentEmoji{Name: b.Emoji},
				CustomID: b.ID,
			})
		}
		msg.Components = buttonRows(buttons)
	}

	for _, f := range notice.Files {
		msg.Files = append(msg.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return msg
}

func buttonStyle(style ticketing.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case ticketing.StyleSecondary:
		return discordgo.SecondaryButton
	case ticketing.StyleSuccess:
		return discordgo.SuccessButton
	case ticketing.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// channelTranscriber exports ticket channel history through the transcript
// renderer.
type channelTranscriber struct {
	s *discordgo.Session
}

func newChannelTranscriber(s *discordgo.Session) *channelTranscriber {
	return &channelTranscriber{s: s}
}

func (t *channelTranscriber) Transcribe(_ context.Context, channelID string, channelName string) (*ticketing.File, error) {
	name, doc, err := transcript.Export(t, channelID, channelName)
	if err != nil {
		return nil, err
	}
	return &ticketing.File{
		Name:        name,
		ContentType: "text/html",
		Data:        doc,
	}, nil
}

func (t *channelTranscriber) ChannelMessages(channelID string, limit int, beforeID string) ([]*transcript.Message, string, error) {
	msgs, err := t.s.ChannelMessages(channelID, limit, beforeID, "", "")
	if err != nil {
		return nil, "", fmt.Errorf("error fetching messages: %w", err)
	}

	page := make([]*transcript.Message, 0, len(msgs))
	lastID := ""
	for _, m := range msgs {
		entry := &transcript.Message{
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
		if m.Author != nil {
			entry.AuthorID = m.Author.ID
			entry.AuthorName = m.Author.Username
			entry.Bot = m.Author.Bot
		}
		for _, att := range m.Attachments {
			entry.Attachments = append(entry.Attachments, att.URL)
		}
		page = append(page, entry)
		lastID = m.ID
	}
	return page, lastID, nil
}
