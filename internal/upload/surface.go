package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"backpro/internal/ids"
	"backpro/internal/media/sniffer"
	"backpro/internal/media/svg"
	"backpro/internal/storage"
)

type Slot string

const (
	SlotChild Slot = "child"
	SlotAdult Slot = "adult"
)

// Slots lists the upload slots in display order.
var Slots = []Slot{SlotChild, SlotAdult}

func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotChild, SlotAdult:
		return Slot(s), nil
	}
	return "", fmt.Errorf("unknown slot %q", s)
}

func (s Slot) Title() string {
	if s == SlotChild {
		return "1. Upload Child Photo"
	}
	return "2. Upload Adult Photo"
}

// Source tells how a candidate reached us.
type Source string

const (
	SourcePicker Source = "picker"
	SourceDrop   Source = "drop"
)

// PickerAccept is what the file picker advertises.
const PickerAccept = "image/png, image/jpeg, image/webp"

const previewPrefix = "/previews/"

var (
	ErrRejected = errors.New("file is not an image")
	ErrEmpty    = errors.New("file is empty")
)

// File is a handle to an accepted upload. The bytes live in the preview store
// under Key and stop being readable once the selection is released.
type File struct {
	Key       string
	Name      string
	MediaType string
	Size      int64
}

type Selection struct {
	File       File
	PreviewURL string
}

// Candidate is a file offered for a slot. MediaType is whatever the client
// declared and may be empty.
type Candidate struct {
	Name      string
	MediaType string
	Source    Source
	Body      io.Reader
}

func PreviewURL(key string) string {
	return previewPrefix + key
}

// Surface owns the two upload slots of one workspace.
type Surface struct {
	mu    sync.Mutex
	store storage.Store
	slots map[Slot]Selection
	// pins counts holds on a key. A pinned key that leaves its slot is parked
	// in orphans and deleted when the last hold goes.
	pins    map[string]int
	orphans map[string]Slot
	log     zerolog.Logger
}

func NewSurface(store storage.Store, log zerolog.Logger) *Surface {
	return &Surface{
		store:   store,
		slots:   make(map[Slot]Selection, len(Slots)),
		pins:    make(map[string]int),
		orphans: make(map[string]Slot),
		log:     log,
	}
}

// Select stores the candidate and makes it the slot's selection, releasing
// whatever the slot held before. Picker and drop candidates go through the
// same image/ check.
func (s *Surface) Select(ctx context.Context, slot Slot, c Candidate) (Selection, error) {
	if _, err := ParseSlot(string(slot)); err != nil {
		return Selection{}, err
	}
	if c.Body == nil {
		return Selection{}, ErrEmpty
	}

	data, err := io.ReadAll(c.Body)
	if err != nil {
		return Selection{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Selection{}, ErrEmpty
	}

	head := data
	if len(head) > sniffer.HeadSize {
		head = head[:sniffer.HeadSize]
	}
	mediaType, detected := sniffer.Resolve(c.MediaType, head)
	if !sniffer.IsImage(mediaType) {
		return Selection{}, fmt.Errorf("%w: %q", ErrRejected, mediaType)
	}

	if detected.Format == sniffer.FormatSVG || mediaType == "image/svg+xml" {
		clean, err := svg.Sanitize(data)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		data = clean
	}

	key := ids.New()
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mediaType); err != nil {
		return Selection{}, fmt.Errorf("store preview: %w", err)
	}

	sel := Selection{
		File: File{
			Key:       key,
			Name:      c.Name,
			MediaType: mediaType,
			Size:      int64(len(data)),
		},
		PreviewURL: PreviewURL(key),
	}

	s.mu.Lock()
	prev, had := s.slots[slot]
	s.slots[slot] = sel
	s.mu.Unlock()

	if had {
		s.release(ctx, slot, prev)
	}

	s.log.Debug().
		Str("slot", string(slot)).
		Str("source", string(c.Source)).
		Str("media_type", mediaType).
		Int64("size", sel.File.Size).
		Msg("image selected")

	return sel, nil
}

// Clear empties the slot and revokes its preview. Clearing an empty slot is a
// no-op.
func (s *Surface) Clear(ctx context.Context, slot Slot) error {
	s.mu.Lock()
	prev, had := s.slots[slot]
	delete(s.slots, slot)
	s.mu.Unlock()

	if !had {
		return nil
	}
	return s.release(ctx, slot, prev)
}

// ClearAll empties both slots. Every slot is cleared even when a release
// fails.
func (s *Surface) ClearAll(ctx context.Context) error {
	var errs []error
	for _, slot := range Slots {
		if err := s.Clear(ctx, slot); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Surface) Get(slot Slot) (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.slots[slot]
	return sel, ok
}

// Both returns the two selections and whether both slots are filled.
func (s *Surface) Both() (child, adult Selection, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	child, okChild := s.slots[SlotChild]
	adult, okAdult := s.slots[SlotAdult]
	return child, adult, okChild && okAdult
}

// HoldBoth returns both selections like Both and, when both are present,
// keeps their bytes readable until done is called, even if the slots are
// replaced or cleared in the meantime.
func (s *Surface) HoldBoth() (child, adult Selection, done func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	child, okChild := s.slots[SlotChild]
	adult, okAdult := s.slots[SlotAdult]
	if !okChild || !okAdult {
		return child, adult, func() {}, false
	}

	keys := []string{child.File.Key, adult.File.Key}
	for _, key := range keys {
		s.pins[key]++
	}
	var once sync.Once
	return child, adult, func() { once.Do(func() { s.unpin(keys) }) }, true
}

func (s *Surface) unpin(keys []string) {
	type parked struct {
		key  string
		slot Slot
	}
	var drop []parked

	s.mu.Lock()
	for _, key := range keys {
		s.pins[key]--
		if s.pins[key] > 0 {
			continue
		}
		delete(s.pins, key)
		if slot, ok := s.orphans[key]; ok {
			delete(s.orphans, key)
			drop = append(drop, parked{key: key, slot: slot})
		}
	}
	s.mu.Unlock()

	for _, p := range drop {
		if err := s.store.Delete(context.Background(), p.key); err != nil {
			s.log.Warn().Err(err).Str("slot", string(p.slot)).Str("key", p.key).Msg("release preview failed")
		}
	}
}

// Owns reports whether key is the preview of one of this surface's current
// selections.
func (s *Surface) Owns(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sel := range s.slots {
		if sel.File.Key == key {
			return true
		}
	}
	return false
}

func (s *Surface) release(ctx context.Context, slot Slot, sel Selection) error {
	s.mu.Lock()
	if s.pins[sel.File.Key] > 0 {
		s.orphans[sel.File.Key] = slot
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, sel.File.Key); err != nil {
		s.log.Warn().Err(err).Str("slot", string(slot)).Str("key", sel.File.Key).Msg("release preview failed")
		return fmt.Errorf("release preview %s: %w", sel.File.Key, err)
	}
	return nil
}
