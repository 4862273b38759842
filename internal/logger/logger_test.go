package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevelAndFormat(t *testing.T) {
	l := New("debug", "text")
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %s", l.GetLevel())
	}
	if _, ok := l.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("formatter = %T", l.Formatter)
	}

	l = New("loud", "")
	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %s", l.GetLevel())
	}
	if _, ok := l.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("formatter = %T", l.Formatter)
	}
}
