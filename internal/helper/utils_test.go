package helper

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestDeterministicID(t *testing.T) {
	a := DeterministicID("lecture3.pdf", "7", "1")
	b := DeterministicID("lecture3.pdf", "7", "1")
	c := DeterministicID("lecture3.pdf", "71")
	if a != b {
		t.Errorf("DeterministicID() not stable: %s != %s", a, b)
	}
	if a == c {
		t.Error("DeterministicID() collides on part boundaries")
	}
}

func TestPrettyPrintTo(t *testing.T) {
	var buf bytes.Buffer
	if err := PrettyPrintTo(&buf, struct{ TextTopK int }{5}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "TextTopK") {
		t.Errorf("PrettyPrintTo() = %q", buf.String())
	}
}

func TestSetupLoggerToFile(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	closer, err := SetupLogger("debug", path)
	if err != nil {
		t.Fatalf("SetupLogger() error = %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", zerolog.GlobalLevel())
	}
	log.Info().Str("query", "gradient").Msg("hello")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(string(data), "gradient") {
		t.Errorf("log file = %q", data)
	}
}
