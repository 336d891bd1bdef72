package question

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/victornm/millionaire/internal/domain"
)

// Pool is an in-memory question pool, used when the service runs without Postgres.
type Pool struct {
	mu     sync.RWMutex
	levels map[int][]domain.Question
	nextID int64
}

func NewPool(qs ...domain.Question) *Pool {
	p := &Pool{levels: make(map[int][]domain.Question)}
	p.Add(qs...)
	return p
}

// Add puts questions in the pool, assigning IDs to those without one.
func (p *Pool) Add(qs ...domain.Question) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, q := range qs {
		p.nextID++
		if q.ID == 0 {
			q.ID = p.nextID
		}
		p.levels[q.Level] = append(p.levels[q.Level], q)
	}
}

func (p *Pool) QuestionsAtLevel(_ context.Context, level int) ([]domain.Question, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return slices.Clone(p.levels[level]), nil
}

// Levels returns the levels having at least one question, ascending.
func (p *Pool) Levels() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	levels := make([]int, 0, len(p.levels))
	for l := range p.levels {
		levels = append(levels, l)
	}
	slices.Sort(levels)
	return levels
}

// file is the layout of a question pool file:
//
//	questions:
//	  - level: 0
//	    text: What is the capital of France?
//	    answers: [Paris, Lyon, Nice, Lille] # the first answer is the correct one
type file struct {
	Questions []domain.Question `yaml:"questions"`
}

// LoadFile reads a YAML question pool.
func LoadFile(path string) (*Pool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse question file %s: %w", path, err)
	}

	for i, q := range f.Questions {
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("question file %s: question #%d: %w", path, i+1, err)
		}
	}

	return NewPool(f.Questions...), nil
}

func validate(q domain.Question) error {
	if q.Level < 0 {
		return fmt.Errorf("negative level %d", q.Level)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("empty text")
	}
	for i, a := range q.Answers {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("empty answer %d", i+1)
		}
	}
	return nil
}
