package pipeline

import (
	"errors"
	"testing"
)

type recordingStage struct {
	name string
	log  *[]string
}

func (s recordingStage) Process(ctx *Context) *Context {
	*s.log = append(*s.log, s.name)
	return ctx
}

type failingStage struct{ err error }

func (s failingStage) Process(ctx *Context) *Context {
	ctx.Err = s.err
	return ctx
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	var log []string
	p := New(
		recordingStage{name: "a", log: &log},
		recordingStage{name: "b", log: &log},
		recordingStage{name: "c", log: &log},
	)
	p.Run(&Context{})

	want := []string{"a", "b", "c"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
}

func TestPipelineStopsAtFirstError(t *testing.T) {
	var log []string
	sentinel := errors.New("boom")
	p := New(
		recordingStage{name: "a", log: &log},
		failingStage{err: sentinel},
		recordingStage{name: "never", log: &log},
	)
	ctx := p.Run(&Context{})

	if ctx.Err != sentinel {
		t.Fatalf("Err = %v, want sentinel", ctx.Err)
	}
	if len(log) != 1 || log[0] != "a" {
		t.Fatalf("log = %v, want [a] (stage after the error must not run)", log)
	}
}
