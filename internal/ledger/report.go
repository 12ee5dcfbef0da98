package ledger

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	reportColor = 0xb01e66
	stackLimit  = 3500
	fieldLimit  = 1024
)

// Report renders the stored record id into the log channel, editing the
// existing report message if there is one. Without a log channel it does
// nothing.
func (l *Ledger) Report(ctx context.Context, id string) error {
	if l.logChannelID == "" || l.notifier == nil {
		return nil
	}
	rec, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	return l.report(ctx, rec)
}

func (l *Ledger) report(ctx context.Context, rec *Record) error {
	if l.logChannelID == "" || l.notifier == nil {
		return nil
	}
	persistent := l.store.Enabled() && rec.ID != ""

	l.mu.Lock()
	defer l.mu.Unlock()

	var mappings map[string]Mapping
	if persistent {
		var err error
		if mappings, err = l.mappings(ctx); err != nil {
			return err
		}
		for msgID, m := range mappings {
			if m.Error == rec.ID {
				return l.notifier.EditEmbed(ctx, l.logChannelID, msgID, l.render(rec, m.Invite))
			}
		}
	}

	msgID, err := l.notifier.SendEmbed(ctx, l.logChannelID, l.render(rec, ""))
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	if !persistent {
		return nil
	}

	origin := ""
	if rec.Context != nil {
		origin = rec.Context.ChannelID
	}
	mappings[msgID] = Mapping{Error: rec.ID, Channel: origin}
	if err := l.store.Save(ctx, mappingKey, mappings); err != nil {
		return fmt.Errorf("save error mappings: %w", err)
	}
	if origin != "" {
		if err := l.notifier.AddReaction(ctx, l.logChannelID, msgID, l.emoji); err != nil {
			l.logger.Warn().Err(err).Str("message_id", msgID).Msg("Failed to add invite reaction")
		}
	}
	return nil
}

// render builds the report embed for rec.
func (l *Ledger) render(rec *Record, invite Invite) *discordgo.MessageEmbed {
	title := "Error"
	if rec.ID != "" {
		title = fmt.Sprintf("Error `%s`", rec.ID)
	}
	switch rec.Type {
	case TypeUncaught:
		title += " (uncaught panic)"
	case TypeUnhandled:
		title += " (unhandled failure)"
	}

	body := rec.Error.Message
	if rec.Error.Stack != "" {
		body += "\n" + rec.Error.Stack
	}
	e := &discordgo.MessageEmbed{
		Title:       title,
		Description: "```\n" + truncate(body, stackLimit) + "\n```",
		Color:       reportColor,
		Timestamp:   rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	if c := rec.Command; c != nil {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Command", Value: "`" + c.Name + "`", Inline: true})
	}
	if s := rec.Context; s != nil {
		if s.GuildID != "" {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Guild", Value: fmt.Sprintf("%s (%s)", s.GuildName, s.GuildID), Inline: true})
		}
		if s.ChannelID != "" {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Channel", Value: fmt.Sprintf("<#%s>", s.ChannelID), Inline: true})
		}
		if s.AuthorID != "" {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Author", Value: fmt.Sprintf("%s (<@%s>)", s.AuthorName, s.AuthorID), Inline: true})
		}
		if s.Content != "" {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Input", Value: truncate(s.Content, fieldLimit)})
		}
		if s.MessageURL != "" {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Message", Value: s.MessageURL})
		}
	}

	switch {
	case invite != "":
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Invite", Value: string(invite)})
	case l.store.Enabled() && rec.ID != "" && rec.Context != nil && rec.Context.ChannelID != "":
		e.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("React with %s to get an invite to the channel", l.emoji)}
	}
	return e
}

// HandleReaction creates an invite to the origin channel when an operator
// reacts to a report with the invite emoji. Only the first reaction creates
// one.
func (l *Ledger) HandleReaction(ctx context.Context, channelID, messageID, userID, emoji string) error {
	if !l.store.Enabled() || l.notifier == nil || channelID != l.logChannelID || emoji != l.emoji {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	mappings, err := l.mappings(ctx)
	if err != nil {
		return err
	}
	m, ok := mappings[messageID]
	if !ok || m.Invite != "" || m.Channel == "" {
		return nil
	}

	url, err := l.notifier.CreateInvite(ctx, m.Channel)
	if err != nil {
		return fmt.Errorf("create invite for %s: %w", m.Channel, err)
	}
	m.Invite = Invite(url)
	mappings[messageID] = m
	if err := l.store.Save(ctx, mappingKey, mappings); err != nil {
		return fmt.Errorf("save error mappings: %w", err)
	}
	l.logger.Info().Str("error_id", m.Error).Str("user_id", userID).Msg("Created invite for error report")

	var rec Record
	found, err := l.store.Load(ctx, keyPrefix+m.Error, &rec)
	if err != nil || !found {
		return err
	}
	return l.notifier.EditEmbed(ctx, channelID, messageID, l.render(&rec, m.Invite))
}

// HandleMessageDelete drops the record behind a report message that was
// deleted upstream. The message itself is not touched.
func (l *Ledger) HandleMessageDelete(ctx context.Context, channelID, messageID string) error {
	if !l.store.Enabled() || channelID != l.logChannelID {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	mappings, err := l.mappings(ctx)
	if err != nil {
		return err
	}
	m, ok := mappings[messageID]
	if !ok {
		return nil
	}
	delete(mappings, messageID)
	if err := l.store.Save(ctx, mappingKey, mappings); err != nil {
		return fmt.Errorf("save error mappings: %w", err)
	}
	if err := l.store.Delete(ctx, keyPrefix+m.Error); err != nil {
		return fmt.Errorf("delete error record: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}
