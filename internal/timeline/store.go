package timeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/joyeues/wordflow-animation-lab/internal/scene"
)

var (
	ErrBlockNotFound = errors.New("block not found")
	ErrDuplicateID   = errors.New("duplicate block id")
	ErrTypeMismatch  = errors.New("content does not match block type")
	ErrInvalidPatch  = errors.New("invalid block update")
)

// Patch is a partial block update. Nil fields are left untouched; override
// keys are merged one by one.
type Patch struct {
	StartTime *int64          `json:"startTime,omitempty"`
	Duration  *int64          `json:"duration,omitempty"`
	Content   scene.Content   `json:"-"`
	Animation scene.Overrides `json:"animationConfig"`
}

// Snapshot is an immutable copy of the store for one evaluation pass.
type Snapshot struct {
	Blocks      []scene.ContentBlock
	Global      scene.AnimationConfig
	MinDuration int64
	Version     uint64
}

// TotalDuration returns the snapshot's timeline length.
func (s Snapshot) TotalDuration() int64 {
	return TotalDuration(s.Blocks, s.MinDuration)
}

// Scene converts the snapshot back into a document.
func (s Snapshot) Scene() *scene.Scene {
	return &scene.Scene{
		Version:       scene.CurrentVersion,
		GlobalConfig:  s.Global,
		ContentBlocks: s.Blocks,
		MinDuration:   s.MinDuration,
	}
}

// Store owns the ordered block collection edited by the user. All access is
// serialized; readers get deep copies.
type Store struct {
	mu          sync.RWMutex
	blocks      []scene.ContentBlock
	global      scene.AnimationConfig
	minDuration int64
	selected    map[string]struct{}
	version     uint64
	newID       func() string
}

// NewStore creates a store seeded from s. A nil scene gives an empty store
// with default configuration.
func NewStore(s *scene.Scene) (*Store, error) {
	st := &Store{
		global:      scene.DefaultAnimationConfig(),
		minDuration: scene.DefaultMinDuration,
		selected:    make(map[string]struct{}),
		newID:       uuid.NewString,
	}
	if s == nil {
		return st, nil
	}

	if s.GlobalConfig != (scene.AnimationConfig{}) {
		st.global = s.GlobalConfig
	}
	if s.MinDuration > 0 {
		st.minDuration = s.MinDuration
	}
	for _, b := range s.ContentBlocks {
		if err := st.Insert(b); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Add appends a block of type t at the current end of the timeline with the
// default duration. A nil content uses the type's default payload.
func (s *Store) Add(t scene.BlockType, content scene.Content) (scene.ContentBlock, error) {
	if !t.Valid() {
		return scene.ContentBlock{}, fmt.Errorf("%w: unknown type %q", ErrInvalidPatch, t)
	}
	if content == nil {
		content = scene.DefaultContent(t)
	}
	if content.Kind() != t {
		return scene.ContentBlock{}, fmt.Errorf("%w: %s content for %s block", ErrTypeMismatch, content.Kind(), t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := scene.ContentBlock{
		ID:        s.newID(),
		Type:      t,
		Content:   content,
		StartTime: NextStart(s.blocks),
		Duration:  scene.DefaultBlockDuration,
	}
	s.blocks = append(s.blocks, b.Clone())
	s.version++
	return b.Clone(), nil
}

// Insert appends an existing block, keeping its id.
func (s *Store) Insert(b scene.ContentBlock) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(b.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
	}
	if b.Content == nil {
		b.Content = scene.DefaultContent(b.Type)
	}
	s.blocks = append(s.blocks, b.Clone())
	s.version++
	return nil
}

// Get returns a copy of the block with the given id.
func (s *Store) Get(id string) (scene.ContentBlock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return scene.ContentBlock{}, false
	}
	return s.blocks[i].Clone(), true
}

// Update merges p into the block with the given id and returns the result.
// Fields p leaves unset keep their current values.
func (s *Store) Update(id string, p Patch) (scene.ContentBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return scene.ContentBlock{}, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	b := s.blocks[i].Clone()

	if p.StartTime != nil {
		if *p.StartTime < 0 {
			return scene.ContentBlock{}, fmt.Errorf("%w: negative start time", ErrInvalidPatch)
		}
		b.StartTime = *p.StartTime
	}
	if p.Duration != nil {
		b.Duration = *p.Duration
	}
	if p.Content != nil {
		if p.Content.Kind() != b.Type {
			return scene.ContentBlock{}, fmt.Errorf("%w: %s content for %s block", ErrTypeMismatch, p.Content.Kind(), b.Type)
		}
		b.Content = p.Content
	}
	if p.Animation.TextAnimation != nil && b.Type != scene.Paragraph {
		return scene.ContentBlock{}, fmt.Errorf("%w: text animation applies to paragraphs only", ErrInvalidPatch)
	}
	b.Animation = b.Animation.Merge(p.Animation)

	s.blocks[i] = b.Clone()
	s.version++
	return b, nil
}

// Delete removes the block and drops it from the selection.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
	delete(s.selected, id)
	s.version++
	return nil
}

// Select marks a block as selected. Without additive the previous selection
// is replaced.
func (s *Store) Select(id string, additive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if !additive {
		s.selected = make(map[string]struct{})
	}
	s.selected[id] = struct{}{}
	return nil
}

// Deselect removes id from the selection.
func (s *Store) Deselect(id string) {
	s.mu.Lock()
	delete(s.selected, id)
	s.mu.Unlock()
}

// ClearSelection deselects everything.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = make(map[string]struct{})
	s.mu.Unlock()
}

// Selected returns the selected ids in display order.
func (s *Store) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, b := range s.blocks {
		if _, ok := s.selected[b.ID]; ok {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// Global returns the global animation config.
func (s *Store) Global() scene.AnimationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}

// SetGlobal replaces the global animation config. Blocks pick up the new
// defaults for every key they do not override.
func (s *Store) SetGlobal(cfg scene.AnimationConfig) {
	s.mu.Lock()
	s.global = cfg
	s.version++
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]scene.ContentBlock, len(s.blocks))
	for i, b := range s.blocks {
		blocks[i] = b.Clone()
	}
	return Snapshot{
		Blocks:      blocks,
		Global:      s.global,
		MinDuration: s.minDuration,
		Version:     s.version,
	}
}

// Version increases with every mutation of blocks or global config.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of blocks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

func (s *Store) indexOf(id string) int {
	for i, b := range s.blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}
