// Package engine drives a form-filling session one field at a time: it
// checks each answer, asks for confirmation of unusual values and persists
// progress through a session store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tbxark/formpilot/dialogue"
	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/grader"
	"github.com/tbxark/formpilot/session"
	"github.com/tbxark/formpilot/types"
)

// DefaultGradeTimeout bounds a single grading call.
const DefaultGradeTimeout = 15 * time.Second

const (
	eventSubmitAnswer    = "submit_answer"
	eventConfirmDecision = "confirm_decision"
)

type Engine struct {
	forms     form.Registry
	store     session.Store
	grader    grader.Grader
	questions dialogue.Generator
	previewer dialogue.Previewer
	now       func() time.Time
	newID     func() string
}

type Option func(*Engine)

// WithGrader enables suspicion grading. Failures and timeouts accept the value.
func WithGrader(g grader.Grader, timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout <= 0 {
			timeout = DefaultGradeTimeout
		}
		e.grader = grader.FailOpen(g, timeout)
	}
}

func WithQuestionGenerator(g dialogue.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.questions = g
		}
	}
}

func WithPreviewer(p dialogue.Previewer) Option {
	return func(e *Engine) {
		if p != nil {
			e.previewer = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

func New(forms form.Registry, store session.Store, opts ...Option) *Engine {
	e := &Engine{
		forms:     forms,
		store:     store,
		grader:    grader.FailOpen(nil, DefaultGradeTimeout),
		questions: dialogue.LocalGenerator{},
		previewer: dialogue.LocalPreviewer{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Forms lists the forms a session can be started for.
func (e *Engine) Forms() []form.Summary {
	return e.forms.List()
}

// StartSession resolves the form from free text and stores a fresh session
// positioned on its first field.
func (e *Engine) StartSession(ctx context.Context, formQuery string) (*Result, error) {
	f, err := e.forms.Resolve(formQuery)
	if err != nil {
		return nil, err
	}
	id := e.newID()
	s := types.NewSession(f.ID, e.now())
	if len(f.Fields) == 0 {
		s.Stage = types.StageDone
	}
	if err := e.store.Set(ctx, id, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	slog.Info("Session started", "session_id", id, "form_id", f.ID, "fields", len(f.Fields))
	return e.result(ctx, id, f, s), nil
}

// SubmitAnswer handles raw input for the current field. Only valid in the
// ask stage.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, raw string) (*Result, error) {
	var (
		f       *form.Form
		reason  string
		verdict *grader.Verdict
		skipped bool
	)
	s, err := e.store.Update(ctx, sessionID, func(s *types.Session) error {
		var err error
		f, err = e.formFor(s)
		if err != nil {
			return err
		}
		reason, verdict, skipped = "", nil, false
		if s.Stage != types.StageAsk {
			return &types.ProtocolError{Event: eventSubmitAnswer, Stage: s.Stage}
		}
		field := f.Fields[s.FieldIndex]
		ev := evaluate(field, raw)
		switch {
		case ev.reason != "":
			reason = ev.reason
			return session.ErrSkipWrite
		case ev.skip:
			skipped = true
			skip(s, len(f.Fields))
		default:
			verdict, err = e.grader.Grade(ctx, &grader.Request{FormID: f.ID, Field: field.FieldDefinition, Value: ev.value})
			if err != nil || verdict == nil {
				verdict = &grader.Verdict{}
			}
			if verdict.Suspicious {
				hold(s, ev.value)
			} else {
				commit(s, field.Name, ev.value, len(f.Fields))
			}
		}
		s.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, e.logFailure(eventSubmitAnswer, sessionID, err)
	}

	res := e.result(ctx, sessionID, f, s)
	switch {
	case reason != "":
		res.Error = reason
		slog.Info("Answer rejected by validation", "session_id", sessionID, "field", res.Prompt.Field, "reason", reason)
	case skipped:
		res.Skipped = true
	case verdict != nil && verdict.Suspicious:
		res.Message = verdict.Message
		res.Hint = verdict.Hint
		slog.Info("Value needs confirmation", "session_id", sessionID, "form_id", f.ID, "field_index", s.FieldIndex)
	}
	return res, nil
}

// ConfirmDecision accepts or rejects the value awaiting confirmation. Only
// valid in the confirm stage.
func (e *Engine) ConfirmDecision(ctx context.Context, sessionID string, accepted bool) (*Result, error) {
	var f *form.Form
	s, err := e.store.Update(ctx, sessionID, func(s *types.Session) error {
		var err error
		f, err = e.formFor(s)
		if err != nil {
			return err
		}
		if s.Stage != types.StageConfirm {
			return &types.ProtocolError{Event: eventConfirmDecision, Stage: s.Stage}
		}
		if accepted {
			accept(s, f.Fields[s.FieldIndex].Name, len(f.Fields))
		} else {
			reject(s)
		}
		s.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, e.logFailure(eventConfirmDecision, sessionID, err)
	}
	slog.Info("Confirmation decided", "session_id", sessionID, "accepted", accepted, "stage", s.Stage)
	return e.result(ctx, sessionID, f, s), nil
}

// Current reports where the session stands without changing it.
func (e *Engine) Current(ctx context.Context, sessionID string) (*Result, error) {
	s, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	f, err := e.formFor(s)
	if err != nil {
		return nil, err
	}
	return e.result(ctx, sessionID, f, s), nil
}

// Preview summarises a completed session and keeps the summary on the record.
func (e *Engine) Preview(ctx context.Context, sessionID string) (*PreviewResult, error) {
	current, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	f, err := e.formFor(current)
	if err != nil {
		return nil, err
	}
	if missing := missingRequired(f, current.Answers); len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}
	if current.Stage != types.StageDone {
		return nil, &IncompleteError{Missing: remainingLabels(f, current.FieldIndex)}
	}

	preview, err := e.previewer.Preview(ctx, f, current.Answers)
	if err != nil {
		slog.Warn("Preview generation failed, using field list", "session_id", sessionID, "error", err)
		preview, _ = dialogue.LocalPreviewer{}.Preview(ctx, f, current.Answers)
	}
	s, err := e.store.Update(ctx, sessionID, func(s *types.Session) error {
		s.Preview = preview.Rows
		s.Prose = preview.Prose
		s.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		SessionID: sessionID,
		FormID:    f.ID,
		FormTitle: f.Title,
		Rows:      s.Preview,
		Prose:     s.Prose,
		Answers:   s.Answers,
	}, nil
}

// Finish deletes the session once its answers have been exported.
func (e *Engine) Finish(ctx context.Context, sessionID string) error {
	if _, err := e.store.Get(ctx, sessionID); err != nil {
		return err
	}
	if err := e.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	slog.Info("Session finished", "session_id", sessionID)
	return nil
}

// formFor loads the form of a session and checks the record against it.
func (e *Engine) formFor(s *types.Session) (*form.Form, error) {
	f, err := e.forms.Get(s.FormID)
	if err != nil {
		return nil, err
	}
	if err := s.Check(f.Definitions()); err != nil {
		return nil, fmt.Errorf("session does not match form %s: %w", f.ID, err)
	}
	return f, nil
}

func (e *Engine) result(ctx context.Context, sessionID string, f *form.Form, s *types.Session) *Result {
	total := len(f.Fields)
	res := &Result{
		SessionID:   sessionID,
		FormID:      f.ID,
		FormTitle:   f.Title,
		Stage:       s.Stage,
		FieldIndex:  s.FieldIndex,
		TotalFields: total,
		Progress:    types.Progress(s.FieldIndex, total),
		Done:        s.Stage == types.StageDone,
	}
	if res.Done {
		res.Message = CompletionMessage
		return res
	}
	field := f.Fields[s.FieldIndex]
	res.Prompt = newPrompt(field.FieldDefinition, e.question(ctx, f, s.FieldIndex))
	if s.PendingValue != nil {
		res.PendingValue = *s.PendingValue
		res.Message = grader.DefaultConfirmation(res.PendingValue)
	}
	return res
}

func (e *Engine) question(ctx context.Context, f *form.Form, index int) dialogue.Question {
	questions, err := e.questions.Questions(ctx, f)
	if err != nil || index >= len(questions) || questions[index].Name != f.Fields[index].Name {
		if err != nil {
			slog.Warn("Question wording unavailable, using fallback", "form_id", f.ID, "error", err)
		}
		return dialogue.FallbackQuestion(f.Fields[index].FieldDefinition)
	}
	return questions[index]
}

func (e *Engine) logFailure(event, sessionID string, err error) error {
	var protoErr *types.ProtocolError
	switch {
	case errors.As(err, &protoErr):
		slog.Warn("Protocol violation", "session_id", sessionID, "event", event, "stage", protoErr.Stage)
	case errors.Is(err, types.ErrSessionNotFound), errors.Is(err, types.ErrFormNotFound):
		slog.Info("Session lookup failed", "session_id", sessionID, "event", event, "error", err)
	default:
		slog.Error("Session update failed", "session_id", sessionID, "event", event, "error", err)
	}
	return err
}

func remainingLabels(f *form.Form, from int) []string {
	labels := make([]string, 0, len(f.Fields)-from)
	for _, field := range f.Fields[from:] {
		labels = append(labels, field.DisplayLabel())
	}
	return labels
}
