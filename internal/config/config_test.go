package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/refctl/internal/testutil/testlog"
	"github.com/danmuck/refctl/internal/variant"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestVariantTemplateRoundTrips(t *testing.T) {
	testlog.Start(t)
	for _, name := range variant.Names() {
		body, err := Template("variant:" + name)
		if err != nil {
			t.Fatalf("template %s: %v", name, err)
		}
		path := writeFile(t, name+".toml", body)
		got, err := LoadVariant(path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		want, _ := variant.Lookup(name)
		if got.League != want.League || got.PlayersPerTeam != want.PlayersPerTeam ||
			got.HasCoach != want.HasCoach || got.Rules != want.Rules || len(got.Penalties) != len(want.Penalties) {
			t.Fatalf("%s: got=%+v want=%+v", name, got, want)
		}
		for i := range want.Penalties {
			if got.Penalties[i] != want.Penalties[i] {
				t.Fatalf("%s penalty %d: got=%+v want=%+v", name, i, got.Penalties[i], want.Penalties[i])
			}
		}
	}
}

func TestLoadVariantCustom(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "mini.toml", `
name = "mini"
league = 40
players_per_team = 3
has_coach = false

[[penalties]]
kind = 1
name = "pushing"
duration = 20

[rules]
half_time = 300
ready_time = 20
shootout_shots = 3
shot_time = 45
`)
	v, err := LoadVariant(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v.League != 40 || v.Codec().Size() != 80 {
		t.Fatalf("variant: %+v", v)
	}
	if d, ok := v.Duration(1); !ok || d != 20 {
		t.Fatalf("duration: %d %v", d, ok)
	}
}

func TestLoadVariantRejectsInvalid(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "bad.toml", `
name = "bad"
league = 40
players_per_team = 12
[rules]
half_time = 300
ready_time = 20
shootout_shots = 3
shot_time = 45
`)
	if _, err := LoadVariant(path); !errors.Is(err, variant.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	path = writeFile(t, "broken.toml", "name = \n")
	if _, err := LoadVariant(path); err == nil || !strings.Contains(err.Error(), "config parse failed") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestResolveVariant(t *testing.T) {
	testlog.Start(t)
	v, err := ResolveVariant("hl_teen", "")
	if err != nil || v.League != variant.LeagueHLTeen {
		t.Fatalf("builtin: %+v %v", v.League, err)
	}
	if _, err := ResolveVariant("nope", ""); !errors.Is(err, variant.ErrUnknownVariant) {
		t.Fatalf("unknown: %v", err)
	}
	if _, err := ResolveVariant("spl", filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestWatchConfigTemplateLoads(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "gcwatch.toml")
	if err := WriteTemplate(path, "gcwatch", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "gcwatch", false); err == nil {
		t.Fatalf("overwrote without force")
	}
	cfg, err := LoadWatchConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 3838 || cfg.Variant != "spl" || cfg.VersionWarnAfter != 10 {
		t.Fatalf("watch config: %+v", cfg)
	}
}

func TestWatchConfigValidation(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "watch.toml", "port = 70000\n")
	if _, err := LoadWatchConfig(path); err == nil {
		t.Fatalf("port out of range accepted")
	}
	path = writeFile(t, "watch.toml", "variant = \"\"\n")
	if _, err := LoadWatchConfig(path); err == nil {
		t.Fatalf("missing variant accepted")
	}
}

func TestTemplateUnknownKind(t *testing.T) {
	testlog.Start(t)
	if _, err := Template("mirage"); err == nil {
		t.Fatalf("unknown kind accepted")
	}
	if _, err := Template("variant:robocup_rescue"); !errors.Is(err, variant.ErrUnknownVariant) {
		t.Fatalf("unknown variant template: %v", err)
	}
}

func TestValidateControllerFile(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "refctl.toml")
	if err := WriteTemplate(good, "refctl", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cf, err := ValidateControllerFile(good)
	if err != nil {
		t.Fatalf("template should validate: %v", err)
	}
	if cf.Port != 3838 || len(cf.TeamNumbers) != 2 {
		t.Fatalf("unexpected decode: %+v", cf)
	}

	cases := map[string]string{
		"unknown key":    "colour = \"blue\"\n",
		"same teams":     "team_numbers = [3, 3]\n",
		"bad interval":   "tick_interval = \"-1s\"\n",
		"bad variant":    "variant = \"rescue\"\n",
		"port too large": "port = 70000\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".toml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := ValidateControllerFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
