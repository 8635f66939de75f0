package grader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrUnavailable marks a grading attempt that failed or timed out.
var ErrUnavailable = errors.New("grader unavailable")

type FailbackGrader struct {
	graders []Grader
}

func NewFailbackGrader(graders ...Grader) *FailbackGrader {
	return &FailbackGrader{graders: graders}
}

func (g *FailbackGrader) Grade(ctx context.Context, req *Request) (*Verdict, error) {
	var lastErr error
	for _, grader := range g.graders {
		verdict, err := grader.Grade(ctx, req)
		if err == nil {
			return verdict, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return &Verdict{}, nil
	}
	return nil, fmt.Errorf("all graders failed: %w", lastErr)
}

// FailOpenGrader bounds the wrapped grader with a timeout and turns every
// failure into a not-suspicious verdict.
type FailOpenGrader struct {
	grader  Grader
	timeout time.Duration
}

func FailOpen(grader Grader, timeout time.Duration) *FailOpenGrader {
	return &FailOpenGrader{grader: grader, timeout: timeout}
}

func (g *FailOpenGrader) Grade(ctx context.Context, req *Request) (*Verdict, error) {
	if g == nil || g.grader == nil {
		return &Verdict{}, nil
	}
	verdict, err := g.grade(ctx, req)
	if err != nil {
		slog.Warn("Grader unavailable, accepting value",
			"form_id", req.FormID, "field", req.Field.Name, "error", err)
		return &Verdict{}, nil
	}
	if verdict == nil {
		return &Verdict{}, nil
	}
	if verdict.Suspicious && verdict.Message == "" {
		verdict.Message = DefaultConfirmation(req.Value)
	}
	return verdict, nil
}

type gradeResult struct {
	verdict *Verdict
	err     error
}

func (g *FailOpenGrader) grade(ctx context.Context, req *Request) (*Verdict, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	done := make(chan gradeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- gradeResult{err: fmt.Errorf("%w: panic: %v", ErrUnavailable, r)}
			}
		}()
		v, err := g.grader.Grade(ctx, req)
		done <- gradeResult{verdict: v, err: err}
	}()
	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, res.err)
		}
		return res.verdict, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}
