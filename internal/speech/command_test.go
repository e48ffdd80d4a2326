package speech

import (
	"os/exec"
	"reflect"
	"testing"
	"time"
)

func TestNewCommand(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		text    string
		want    []string
		wantErr bool
	}{
		{"placeholder", "espeak-ng -s 170 {text}", "Hello there.", []string{"-s", "170", "Hello there."}, false},
		{"quoted args", `say -v "Good News" {text}`, "Hi.", []string{"-v", "Good News", "Hi."}, false},
		{"appended", "espeak-ng -v en", "Hi.", []string{"-v", "en", "Hi."}, false},
		{"embedded", "speak --text={text}", "Hi.", []string{"--text=Hi."}, false},
		{"empty", "   ", "", nil, true},
		{"unterminated quote", `say "oops`, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCommand(tt.line, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCommand(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := c.args(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args() = %q, want %q", got, tt.want)
			}
		})
	}
}

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestCommandSpeakFiresEnd(t *testing.T) {
	requireTool(t, "true")

	c, err := NewCommand("true {text}", nil)
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	done := make(chan struct{})
	if err := c.Speak("hello", func() { close(done) }); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("end callback not called")
	}
	if c.Speaking() {
		t.Error("expected Speaking() false after end")
	}
}

func TestCommandCancelSuppressesEnd(t *testing.T) {
	requireTool(t, "sleep")

	c, err := NewCommand("sleep", nil)
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	ended := make(chan struct{}, 1)
	if err := c.Speak("5", func() { ended <- struct{}{} }); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if !c.Speaking() {
		t.Fatal("expected Speaking() true")
	}

	c.Pause()
	if !c.Paused() {
		t.Error("expected Paused() true after Pause")
	}
	c.Resume()
	if c.Paused() {
		t.Error("expected Paused() false after Resume")
	}

	c.Cancel()
	if c.Speaking() {
		t.Error("expected Speaking() false after Cancel")
	}

	select {
	case <-ended:
		t.Error("end callback fired after Cancel")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMockChaining(t *testing.T) {
	m := NewMock()
	var order []string

	m.Speak("one", func() {
		order = append(order, "one")
		m.Speak("two", func() { order = append(order, "two") })
	})
	m.Finish()
	m.Finish()
	m.Finish() // idle, no-op

	if !reflect.DeepEqual(order, []string{"one", "two"}) {
		t.Errorf("unexpected end order: %v", order)
	}
	if !reflect.DeepEqual(m.Spoken(), []string{"one", "two"}) {
		t.Errorf("unexpected spoken: %v", m.Spoken())
	}
}
