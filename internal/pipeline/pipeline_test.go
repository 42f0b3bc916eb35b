package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/sitesnap/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, job *Job) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, job *Job) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, job)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates empty pipeline", func(t *testing.T) {
		t.Parallel()

		p := New(nil)
		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("keeps step order", func(t *testing.T) {
		t.Parallel()

		p := New([]Step{&mockStep{name: "a"}, &mockStep{name: "b"}})
		p.AddStep(&mockStep{name: "c"})

		names := p.StepNames()
		want := []string{"a", "b", "c"}
		if len(names) != len(want) {
			t.Fatalf("expected %d names, got %v", len(want), names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("step %d: got %q, want %q", i, names[i], want[i])
			}
		}
	})
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs every step in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		step := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *Job) error {
				order = append(order, name)
				return nil
			}}
		}
		p := New([]Step{step("first"), step("second"), step("third")})

		if err := p.Execute(t.Context(), &Job{Seed: "https://example.com"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 3 || order[0] != "first" || order[2] != "third" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("stops at the first error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(context.Context, *Job) error { return errBoom }}
		after := &mockStep{name: "after"}
		p := New([]Step{failing, after})

		err := p.Execute(t.Context(), &Job{Seed: "https://example.com"})
		if !errors.Is(err, errBoom) {
			t.Errorf("expected errBoom, got %v", err)
		}
		if after.callCount != 0 {
			t.Errorf("expected later step to be skipped, called %d times", after.callCount)
		}
	})

	t.Run("cancellation marks the report interrupted", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		first := &mockStep{name: "first", doFunc: func(_ context.Context, job *Job) error {
			job.Report = model.NewRunReport(job.Seed)
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}
		job := &Job{Seed: "https://example.com"}

		err := New([]Step{first, second}).Execute(ctx, job)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step to be skipped")
		}
		if !job.Report.Interrupted {
			t.Error("expected report to be marked interrupted")
		}
	})
}
