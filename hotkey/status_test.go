package hotkey

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type textLog struct {
	mu    sync.Mutex
	texts []string
}

func (l *textLog) add(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.texts = append(l.texts, text)
}

func (l *textLog) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.texts) == 0 {
		return ""
	}
	return l.texts[len(l.texts)-1]
}

func TestStatusFlashReverts(t *testing.T) {
	log := &textLog{}
	s := NewStatus(20*time.Millisecond, log.add)
	s.SetBase(StatusListening)

	s.Flash("Playing key A")
	assert.Equal(t, "Playing key A", s.Text())

	assert.Eventually(t, func() bool { return log.last() == StatusListening }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusListening, s.Text())
}

func TestStatusNewerFlashWins(t *testing.T) {
	s := NewStatus(200*time.Millisecond, nil)
	s.SetBase(StatusListening)

	s.Flash("Playing key A")
	time.Sleep(120 * time.Millisecond)
	s.Flash("Playing key B")
	time.Sleep(120 * time.Millisecond)

	// The first revert would have fired by now; it must not clobber B.
	assert.Equal(t, "Playing key B", s.Text())
	assert.Eventually(t, func() bool { return s.Text() == StatusListening }, time.Second, 5*time.Millisecond)
}

func TestStatusReset(t *testing.T) {
	log := &textLog{}
	s := NewStatus(time.Hour, log.add)

	assert.Equal(t, StatusStopped, s.Text())
	s.Reset()
	assert.Empty(t, log.texts, "reset to the text already shown is silent")

	s.Flash("Key Z is not bound")
	s.Reset()
	assert.Equal(t, StatusStopped, s.Text())
	assert.Equal(t, []string{"Key Z is not bound", StatusStopped}, log.texts)
}

func TestStatusDefaultRevert(t *testing.T) {
	s := NewStatus(0, nil)
	assert.Equal(t, DefaultRevert, s.revert)
}
