package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/Haibread/voicekeep/config"
	"github.com/Haibread/voicekeep/voice"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVoice struct {
	createErr error
	editErr   error

	trigger string
	owner   string
	name    string
	limit   int
	public  bool
	edit    *voice.EditRequest
}

func (f *fakeVoice) CreateChannel(_ context.Context, triggerChannelID, requesterID, name string, limit int, isPublic bool) (voice.CustomChannel, error) {
	f.trigger, f.owner, f.name, f.limit, f.public = triggerChannelID, requesterID, name, limit, isPublic
	if f.createErr != nil {
		return voice.CustomChannel{}, f.createErr
	}
	return voice.CustomChannel{ChannelID: "555", OwnerID: requesterID, Name: name}, nil
}

func (f *fakeVoice) EditChannel(_ context.Context, requesterID string, req voice.EditRequest) (voice.CustomChannel, error) {
	f.owner = requesterID
	f.edit = &req
	if f.editErr != nil {
		return voice.CustomChannel{}, f.editErr
	}
	return voice.CustomChannel{}, nil
}

type fakeRoles struct {
	mapped  []string
	ok      bool
	err     error
	granted []string
}

func (f *fakeRoles) Map([]string) []string { return f.mapped }

func (f *fakeRoles) Grant(_ context.Context, _, _ string, roleIDs []string) (bool, error) {
	f.granted = roleIDs
	return f.ok, f.err
}

func opt(name string, value interface{}) *discordgo.ApplicationCommandInteractionDataOption {
	o := &discordgo.ApplicationCommandInteractionDataOption{Name: name, Value: value}
	switch value.(type) {
	case string:
		o.Type = discordgo.ApplicationCommandOptionString
	case float64:
		o.Type = discordgo.ApplicationCommandOptionInteger
	case bool:
		o.Type = discordgo.ApplicationCommandOptionBoolean
	}
	return o
}

func newTestCommands(vm *fakeVoice, rs *fakeRoles) *Commands {
	settings := config.NewHolder(&config.Config{
		ClickChannels:     []config.ClickChannel{{ChannelID: "click"}},
		CommandChannelIDs: []string{"bot-commands"},
	})
	return New(context.Background(), vm, rs, settings)
}

func TestParseAdd(t *testing.T) {
	name, limit, public := parseAdd([]*discordgo.ApplicationCommandInteractionDataOption{
		opt("name", "  Foo "),
		opt("limit", float64(5)),
		opt("public", true),
	})
	assert.Equal(t, "Foo", name)
	assert.Equal(t, 5, limit)
	assert.True(t, public)

	name, limit, public = parseAdd([]*discordgo.ApplicationCommandInteractionDataOption{opt("name", "Bar")})
	assert.Equal(t, "Bar", name)
	assert.Zero(t, limit)
	assert.False(t, public)
}

func TestParseEdit(t *testing.T) {
	req := parseEdit([]*discordgo.ApplicationCommandInteractionDataOption{opt("limit", float64(0))})
	assert.Nil(t, req.Name)
	require.NotNil(t, req.Limit)
	assert.Equal(t, 0, *req.Limit)
	assert.Nil(t, req.IsPublic)

	req = parseEdit([]*discordgo.ApplicationCommandInteractionDataOption{opt("name", "New"), opt("public", false)})
	require.NotNil(t, req.Name)
	assert.Equal(t, "New", *req.Name)
	require.NotNil(t, req.IsPublic)
	assert.False(t, *req.IsPublic)

	req = parseEdit([]*discordgo.ApplicationCommandInteractionDataOption{opt("name", "   ")})
	assert.Nil(t, req.Name)
}

func TestVoiceAdd(t *testing.T) {
	vm := &fakeVoice{}
	c := newTestCommands(vm, &fakeRoles{})

	res := c.voiceAdd(context.Background(), "bot-commands", "U", []*discordgo.ApplicationCommandInteractionDataOption{
		opt("name", "Foo"), opt("limit", float64(5)),
	})
	assert.True(t, res.ok)
	assert.Equal(t, "👍 Created <#555>", res.String())
	assert.Equal(t, "click", vm.trigger)
	assert.Equal(t, "U", vm.owner)
	assert.Equal(t, "Foo", vm.name)
	assert.Equal(t, 5, vm.limit)
	assert.False(t, vm.public)
}

func TestVoiceAdd_WrongChannel(t *testing.T) {
	vm := &fakeVoice{}
	c := newTestCommands(vm, &fakeRoles{})

	res := c.voiceAdd(context.Background(), "general", "U", []*discordgo.ApplicationCommandInteractionDataOption{opt("name", "Foo")})
	assert.False(t, res.ok)
	assert.Empty(t, vm.owner)
}

func TestVoiceAdd_Failures(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{voice.ErrAlreadyOwnsChannel, "👎 You already own a voice channel"},
		{voice.ErrNotJoinedInTime, "👎 You didn't join the channel in time"},
		{&voice.ProviderError{Op: "create voice channel", Err: errors.New("503")}, "👎 Something went wrong"},
	}
	for _, tt := range tests {
		c := newTestCommands(&fakeVoice{createErr: tt.err}, &fakeRoles{})
		res := c.voiceAdd(context.Background(), "bot-commands", "U", []*discordgo.ApplicationCommandInteractionDataOption{opt("name", "Foo")})
		assert.Equal(t, tt.want, res.String())
	}
}

func TestVoiceEdit(t *testing.T) {
	vm := &fakeVoice{}
	c := newTestCommands(vm, &fakeRoles{})

	res := c.voiceEdit(context.Background(), "bot-commands", "U", []*discordgo.ApplicationCommandInteractionDataOption{opt("public", true)})
	assert.True(t, res.ok)
	require.NotNil(t, vm.edit)
	require.NotNil(t, vm.edit.IsPublic)
	assert.True(t, *vm.edit.IsPublic)

	vm.editErr = voice.ErrNoOwnedChannel
	res = c.voiceEdit(context.Background(), "bot-commands", "U", []*discordgo.ApplicationCommandInteractionDataOption{opt("name", "x")})
	assert.Equal(t, "👎 You don't own a voice channel", res.String())
}

func TestVoiceEdit_NothingToChange(t *testing.T) {
	vm := &fakeVoice{}
	c := newTestCommands(vm, &fakeRoles{})

	res := c.voiceEdit(context.Background(), "bot-commands", "U", nil)
	assert.False(t, res.ok)
	assert.Nil(t, vm.edit)
}

func TestRolesSync(t *testing.T) {
	rs := &fakeRoles{mapped: []string{"r1", "r2"}, ok: true}
	c := newTestCommands(&fakeVoice{}, rs)

	res := c.rolesSync(context.Background(), "g", "u", "B-SIT, MI-WSI")
	assert.True(t, res.ok)
	assert.Equal(t, []string{"r1", "r2"}, rs.granted)

	rs.ok = false
	assert.False(t, c.rolesSync(context.Background(), "g", "u", "B-SIT").ok)

	rs.ok, rs.err = true, errors.New("forbidden")
	assert.False(t, c.rolesSync(context.Background(), "g", "u", "B-SIT").ok)

	rs.mapped = nil
	assert.Equal(t, "👎 No matching roles", c.rolesSync(context.Background(), "g", "u", "X").String())
}

func TestCommandDefinitions(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range botCommands {
		names[cmd.Name] = true
	}
	assert.Equal(t, map[string]bool{"ping": true, "voice": true, "roles": true}, names)

	c := newTestCommands(&fakeVoice{}, &fakeRoles{})
	for name := range names {
		assert.Contains(t, c.handlers, name)
	}
}
