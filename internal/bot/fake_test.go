package bot

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
)

const (
	selfID    = "900"
	guildID   = "100"
	channelID = "200"
	userID    = "300"
)

type sent struct {
	channelID string
	content   string
	embed     *discordgo.MessageEmbed
}

type fakeAPI struct {
	mu sync.Mutex

	perms    map[string]int64
	members  map[string]*discordgo.Member
	channels map[string]*discordgo.Channel
	roles    []*discordgo.Role

	messages  []sent
	edits     []sent
	deleted   []string
	reactions []string
	invites   []string
	acks      []*discordgo.InteractionResponse
	responses []*discordgo.WebhookEdit

	commands map[string]*discordgo.ApplicationCommand
	created  []string
	updated  []string
	removed  []string
	failures map[string]int
	nextID   int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		perms: map[string]int64{
			selfID: discordgo.PermissionAll,
			userID: discordgo.PermissionAll,
		},
		members: map[string]*discordgo.Member{
			userID: {GuildID: guildID, User: &discordgo.User{ID: userID, Username: "alice"}},
		},
		channels: map[string]*discordgo.Channel{
			channelID: {ID: channelID, GuildID: guildID, Name: "general"},
		},
		commands: map[string]*discordgo.ApplicationCommand{},
		failures: map[string]int{},
	}
}

// fail makes the next n calls of op return a 500.
func (f *fakeAPI) fail(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = n
}

func (f *fakeAPI) failing(op string) error {
	if f.failures[op] > 0 {
		f.failures[op]--
		return &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error"}}
	}
	return nil
}

func (f *fakeAPI) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeAPI) User(id string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	if id == "@me" {
		return &discordgo.User{ID: selfID, Username: "guildkit", Bot: true}, nil
	}
	return &discordgo.User{ID: id}, nil
}

func (f *fakeAPI) Guild(id string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return &discordgo.Guild{ID: id, Name: "Test Guild"}, nil
}

func (f *fakeAPI) GuildMember(gid, uid string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[uid]; ok && m.GuildID == gid {
		return m, nil
	}
	return nil, discordgo.ErrStateNotFound
}

func (f *fakeAPI) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return f.roles, nil
}

func (f *fakeAPI) Channel(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[id]; ok {
		return ch, nil
	}
	return nil, discordgo.ErrStateNotFound
}

func (f *fakeAPI) UserChannelPermissions(uid, _ string, _ ...discordgo.RequestOption) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms[uid], nil
}

func (f *fakeAPI) ChannelMessageSend(cid, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sent{channelID: cid, content: content})
	return &discordgo.Message{ID: f.id(), ChannelID: cid}, nil
}

func (f *fakeAPI) ChannelMessageSendEmbed(cid string, e *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sent{channelID: cid, embed: e})
	return &discordgo.Message{ID: f.id(), ChannelID: cid}, nil
}

func (f *fakeAPI) ChannelMessageEditEmbed(cid, mid string, e *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sent{channelID: cid, embed: e})
	return &discordgo.Message{ID: mid, ChannelID: cid}, nil
}

func (f *fakeAPI) ChannelMessageDelete(_, mid string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, mid)
	return nil
}

func (f *fakeAPI) ChannelInviteCreate(cid string, _ discordgo.Invite, _ ...discordgo.RequestOption) (*discordgo.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites = append(f.invites, cid)
	return &discordgo.Invite{Code: "abc"}, nil
}

func (f *fakeAPI) MessageReactionAdd(_, mid, emoji string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, mid+":"+emoji)
	return nil
}

func (f *fakeAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, resp)
	return nil
}

func (f *fakeAPI) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, edit)
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) ApplicationCommands(_, _ string, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("list"); err != nil {
		return nil, err
	}
	out := make([]*discordgo.ApplicationCommand, 0, len(f.commands))
	for _, c := range f.commands {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeAPI) ApplicationCommandCreate(_, _ string, cmd *discordgo.ApplicationCommand, _ ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("create"); err != nil {
		return nil, err
	}
	c := *cmd
	c.ID = f.id()
	f.commands[c.Name] = &c
	f.created = append(f.created, c.Name)
	return &c, nil
}

func (f *fakeAPI) ApplicationCommandEdit(_, _, cmdID string, cmd *discordgo.ApplicationCommand, _ ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("edit"); err != nil {
		return nil, err
	}
	c := *cmd
	c.ID = cmdID
	f.commands[c.Name] = &c
	f.updated = append(f.updated, c.Name)
	return &c, nil
}

func (f *fakeAPI) ApplicationCommandDelete(_, _, cmdID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("delete"); err != nil {
		return err
	}
	for name, c := range f.commands {
		if c.ID == cmdID {
			delete(f.commands, name)
			f.removed = append(f.removed, name)
		}
	}
	return nil
}

func (f *fakeAPI) sentMessages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.messages...)
}
