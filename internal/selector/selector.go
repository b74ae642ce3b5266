package selector

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"versereel/internal/config"
	"versereel/internal/ledger"
	"versereel/internal/logging"
	"versereel/internal/passages"
	"versereel/internal/services"
	"versereel/internal/textutil"
)

// Source is the passage catalog the selector reads.
type Source interface {
	Collections() []string
	Chapters(collection string) int
	Verses(collection string, chapter int) int
	Text(collection string, chapter, verse int) (string, bool)
}

// Ledger is the subset of ledger.Store the selector needs.
type Ledger interface {
	Exists(ctx context.Context, naturalKey string) (bool, error)
	GetCursor(ctx context.Context) (ledger.Cursor, error)
	CreateWorkItem(ctx context.Context, item ledger.NewItem, opts ...ledger.CreateOption) (*ledger.WorkItem, error)
}

// Constraints are the acceptance rules for a candidate.
type Constraints struct {
	MinWords           int
	MaxWords           int
	MaxDuration        float64
	SpeakingRate       float64
	Allow              []string
	Deny               []string
	RandomAttempts     int
	SequentialAdvances int
}

// ConstraintsFromConfig maps the selection config section.
func ConstraintsFromConfig(cfg config.Selection) Constraints {
	return Constraints{
		MinWords:           cfg.MinWords,
		MaxWords:           cfg.MaxWords,
		MaxDuration:        cfg.MaxDuration,
		SpeakingRate:       cfg.SpeakingRate,
		Allow:              cfg.Books,
		Deny:               cfg.ExcludeBooks,
		RandomAttempts:     cfg.RandomAttempts,
		SequentialAdvances: cfg.SequentialAdvances,
	}
}

const (
	defaultRandomAttempts     = 200
	defaultSequentialAdvances = 100
)

// Option customizes a Selector.
type Option func(*Selector)

// WithRand sets the random source used by random mode.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithLogger sets the selector logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Selector picks the next passage to produce.
type Selector struct {
	source      Source
	store       Ledger
	constraints Constraints
	allowed     []string
	rng         *rand.Rand
	logger      *slog.Logger
}

// New constructs a Selector. Allowed collections are resolved once against
// the source.
func New(source Source, store Ledger, constraints Constraints, opts ...Option) *Selector {
	if constraints.RandomAttempts <= 0 {
		constraints.RandomAttempts = defaultRandomAttempts
	}
	if constraints.SequentialAdvances <= 0 {
		constraints.SequentialAdvances = defaultSequentialAdvances
	}
	seed := uint64(time.Now().UnixNano())
	s := &Selector{
		source:      source,
		store:       store,
		constraints: constraints,
		allowed:     passages.ResolveCollections(source.Collections(), constraints.Allow, constraints.Deny),
		rng:         rand.New(rand.NewPCG(seed, seed>>1|1)),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AllowedCollections returns the resolved collections in catalog order.
func (s *Selector) AllowedCollections() []string {
	return append([]string(nil), s.allowed...)
}

// EstimateDuration returns the spoken duration estimate for a word count.
func (s *Selector) EstimateDuration(words int) float64 {
	return textutil.EstimateDuration(words, s.constraints.SpeakingRate)
}

// Next finds a candidate without mutating the ledger. An empty mode uses the
// mode stored on the cursor.
func (s *Selector) Next(ctx context.Context, mode ledger.Mode) (Result, error) {
	cursor, err := s.store.GetCursor(ctx)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = cursor.Mode
	}
	if len(s.allowed) == 0 {
		return Exhausted{Reason: ExhaustNoCollections}, nil
	}

	var result Result
	switch mode {
	case ledger.ModeSequential:
		result, err = s.nextSequential(ctx, cursor.Position)
	case ledger.ModeRandom, "":
		result, err = s.nextRandom(ctx)
	default:
		return nil, services.Wrap(services.ErrValidation, "selector", "next", fmt.Sprintf("unknown mode %q", mode), nil)
	}
	if err != nil {
		return nil, err
	}
	if exhausted, ok := result.(Exhausted); ok {
		s.logger.Info("selection exhausted",
			logging.String("mode", string(mode)),
			logging.String("reason", string(exhausted.Reason)),
			logging.Int("attempts", exhausted.Attempts),
			logging.Any("rejections", exhausted.Rejections),
		)
	}
	return result, nil
}

// Claim records the candidate as a new pending work item. Sequential
// candidates move the cursor in the same transaction; a duplicate key leaves
// both the items and the cursor untouched.
func (s *Selector) Claim(ctx context.Context, candidate Candidate) (*ledger.WorkItem, error) {
	var opts []ledger.CreateOption
	if candidate.Mode == ledger.ModeSequential {
		opts = append(opts, ledger.AdvanceCursor(candidate.Position))
	}
	return s.store.CreateWorkItem(ctx, candidate.NewItem(), opts...)
}

func (s *Selector) unsatisfiable() bool {
	c := s.constraints
	if c.MinWords > c.MaxWords || c.MaxWords <= 0 {
		return true
	}
	return c.MaxDuration > 0 && textutil.EstimateDuration(max(c.MinWords, 1), c.SpeakingRate) > c.MaxDuration
}

func (s *Selector) nextRandom(ctx context.Context) (Result, error) {
	rejections := make(map[RejectReason]int)
	if s.unsatisfiable() {
		return Exhausted{Reason: ExhaustUnsatisfiable, Rejections: rejections}, nil
	}
	for attempt := 1; attempt <= s.constraints.RandomAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		collection := s.allowed[s.rng.IntN(len(s.allowed))]
		pos := ledger.Position{Collection: collection}
		if chapters := s.source.Chapters(collection); chapters > 0 {
			pos.Subunit = 1 + s.rng.IntN(chapters)
			if verses := s.source.Verses(collection, pos.Subunit); verses > 0 {
				pos.Item = 1 + s.rng.IntN(verses)
			}
		}

		eval, err := s.evaluate(ctx, pos, ledger.ModeRandom)
		if err != nil {
			return nil, err
		}
		switch e := eval.(type) {
		case accepted:
			return Accepted{Candidate: e.candidate}, nil
		case rejected:
			rejections[e.reason]++
		}
	}
	return Exhausted{Reason: ExhaustAttempts, Attempts: s.constraints.RandomAttempts, Rejections: rejections}, nil
}

func (s *Selector) nextSequential(ctx context.Context, from ledger.Position) (Result, error) {
	rejections := make(map[RejectReason]int)
	pos := from
	if pos.IsZero() || s.indexOf(pos.Collection) < 0 {
		pos = ledger.Position{Collection: s.allowed[0], Subunit: 1, Item: 0}
	}
	if pos.Subunit < 1 {
		pos.Subunit = 1
	}

	for advances := 1; advances <= s.constraints.SequentialAdvances; advances++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, ok := s.advance(pos)
		if !ok {
			return Exhausted{Reason: ExhaustCompleted, Attempts: advances - 1, Rejections: rejections}, nil
		}
		pos = next
		if pos.Item == 0 {
			// Moved to a new collection; the next advance lands on its first verse.
			continue
		}

		eval, err := s.evaluate(ctx, pos, ledger.ModeSequential)
		if err != nil {
			return nil, err
		}
		switch e := eval.(type) {
		case accepted:
			return Accepted{Candidate: e.candidate}, nil
		case rejected:
			rejections[e.reason]++
		}
	}
	return Exhausted{Reason: ExhaustAttempts, Attempts: s.constraints.SequentialAdvances, Rejections: rejections}, nil
}

// advance steps one position forward: next verse, else first verse of the
// next chapter, else the start of the next allowed collection. It reports
// false past the last allowed collection.
func (s *Selector) advance(pos ledger.Position) (ledger.Position, bool) {
	if pos.Item+1 <= s.source.Verses(pos.Collection, pos.Subunit) {
		pos.Item++
		return pos, true
	}
	if pos.Subunit+1 <= s.source.Chapters(pos.Collection) {
		return ledger.Position{Collection: pos.Collection, Subunit: pos.Subunit + 1, Item: 1}, true
	}
	idx := s.indexOf(pos.Collection)
	if idx < 0 || idx+1 >= len(s.allowed) {
		return ledger.Position{}, false
	}
	return ledger.Position{Collection: s.allowed[idx+1], Subunit: 1, Item: 0}, true
}

func (s *Selector) indexOf(collection string) int {
	for i, key := range s.allowed {
		if key == collection {
			return i
		}
	}
	return -1
}

func (s *Selector) evaluate(ctx context.Context, pos ledger.Position, mode ledger.Mode) (evaluation, error) {
	text, ok := s.source.Text(pos.Collection, pos.Subunit, pos.Item)
	if !ok {
		return rejected{reason: RejectMissing}, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return rejected{reason: RejectEmpty}, nil
	}
	words := textutil.WordCount(text)
	if words < s.constraints.MinWords || words > s.constraints.MaxWords {
		return rejected{reason: RejectWordCount}, nil
	}
	duration := s.EstimateDuration(words)
	if duration > s.constraints.MaxDuration {
		return rejected{reason: RejectDuration}, nil
	}
	exists, err := s.store.Exists(ctx, pos.NaturalKey())
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", pos.NaturalKey(), err)
	}
	if exists {
		return rejected{reason: RejectDuplicate}, nil
	}
	return accepted{candidate: Candidate{
		Position:  pos,
		Text:      text,
		WordCount: words,
		Duration:  duration,
		Mode:      mode,
	}}, nil
}
