package profiling

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderDisabledIsNoop(t *testing.T) {
	var r Recorder
	r.Start("load").Stop()

	var buf bytes.Buffer
	r.Summarize(&buf)
	assert.Empty(t, buf.String())
}

func TestRecorderNestsSpans(t *testing.T) {
	var r Recorder
	r.Enable()

	outer := r.Start("load")
	r.Start("fetch").Stop()
	outer.Stop()
	r.Start("render").Stop()

	var buf bytes.Buffer
	r.Summarize(&buf)
	out := buf.String()

	assert.Contains(t, out, "timing")
	assert.Contains(t, out, "\n  load ")
	assert.Contains(t, out, "\n    fetch ")
	assert.Contains(t, out, "\n  render ")
	assert.Less(t, strings.Index(out, "load"), strings.Index(out, "render"))
}

func TestStopTwiceKeepsFirstDuration(t *testing.T) {
	var r Recorder
	r.Enable()
	s := r.Start("once")
	s.Stop()
	first := s.(*span).duration
	s.Stop()
	assert.Equal(t, first, s.(*span).duration)
}
