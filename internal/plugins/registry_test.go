package plugins

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/budgify/pkg/api"
)

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := Builtin()

	if err := r.RegisterLoader(r.ListLoaders()[0]); err == nil {
		t.Error("expected error registering a loader twice")
	}
	if err := r.RegisterSink(r.ListSinks()[0]); err == nil {
		t.Error("expected error registering a sink twice")
	}
}

func TestRegistry_List(t *testing.T) {
	r := Builtin()

	var loaders []string
	for _, p := range r.ListLoaders() {
		loaders = append(loaders, p.Name())
	}
	assert.Equal(t, []string{"tdvisa", "hometrust", "amex", "canadiantire"}, loaders)

	var sinks []string
	for _, p := range r.ListSinks() {
		sinks = append(sinks, p.Name())
	}
	assert.Equal(t, []string{"csv", "json", "postgres", "sheets", "sqlite", "xlsx"}, sinks)
}

func TestRegistry_Match(t *testing.T) {
	r := Builtin()

	tests := []struct {
		name      string
		path      string
		overrides map[string]string
		want      string
		wantErr   error
	}{
		{name: "token in name", path: "/in/TDVisa_2025-01.csv", want: "tdvisa"},
		{name: "dotted name", path: "amex.2025.xlsx", want: "amex"},
		{name: "substring is not a token", path: "myamexcard.csv", wantErr: ErrNoLoader},
		{name: "override", path: "td_visa_jan.csv", overrides: map[string]string{"td": "tdvisa"}, want: "tdvisa"},
		{name: "override wins", path: "amex_ht.csv", overrides: map[string]string{"ht": "hometrust"}, want: "hometrust"},
		{name: "no match", path: "statement.csv", wantErr: ErrNoLoader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Match(tt.path, tt.overrides)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_MatchUnknownOverride(t *testing.T) {
	r := Builtin()
	_, err := r.Match("visa.csv", map[string]string{"visa": "nope"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoLoader))
}

func TestRegistry_Scopes(t *testing.T) {
	r := Builtin()

	scopes, err := r.Scopes("csv", "sheets", "sqlite")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/spreadsheets"}, scopes)

	_, err = r.Scopes("bogus")
	assert.Error(t, err)
}

func TestRegistry_CreateSink(t *testing.T) {
	r := Builtin()
	dir := t.TempDir()

	sink, err := r.CreateSink("csv", nil, json.RawMessage(`{"dir":"`+filepath.ToSlash(dir)+`"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "csv", sink.Name())
	_, ok := sink.(api.LedgerSource)
	assert.True(t, ok)

	tests := []struct {
		name   string
		plugin string
		config string
	}{
		{name: "missing required", plugin: "csv", config: `{}`},
		{name: "unknown field", plugin: "csv", config: `{"dir":"x","bogus":1}`},
		{name: "bad sslmode", plugin: "postgres", config: `{"host":"h","database":"d","user":"u","sslmode":"maybe"}`},
		{name: "sheets needs credentials", plugin: "sheets", config: `{}`},
		{name: "unknown plugin", plugin: "bogus", config: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateSink(tt.plugin, nil, json.RawMessage(tt.config), nil)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_CreateLoader(t *testing.T) {
	r := Builtin()

	for _, p := range r.ListLoaders() {
		l, err := r.CreateLoader(p.Name())
		require.NoError(t, err, p.Name())
		assert.NotNil(t, l)
		assert.NotEmpty(t, p.Description())
	}
	_, err := r.CreateLoader("bogus")
	assert.Error(t, err)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"tdvisa", "2025", "01", "csv"}, Tokens("/x/TDVisa_2025-01.csv"))
}
