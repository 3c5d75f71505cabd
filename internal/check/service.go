package check

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"splitcheck/internal/layout"
	"splitcheck/internal/ocr"
	"splitcheck/internal/parsing"
	"splitcheck/internal/split"
)

// IDGenerator generates unique IDs for checks
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles check operations
type Service struct {
	db          DB
	recognizer  ocr.Recognizer
	storage     Storage
	extractor   parsing.Extractor
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, recognizer ocr.Recognizer, storage Storage, extractor parsing.Extractor) *Service {
	return &Service{
		db:          db,
		recognizer:  recognizer,
		storage:     storage,
		extractor:   extractor,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer ocr.Recognizer, storage Storage, extractor parsing.Extractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		recognizer:  recognizer,
		storage:     storage,
		extractor:   extractor,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length; phone cameras produce long noisy names
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "check"
	}

	return base + ext
}

// defaultParticipants builds the initial participant list
func defaultParticipants(people int) []string {
	if people < 1 {
		people = 1
	}
	participants := make([]string, people)
	for i := range participants {
		participants[i] = fmt.Sprintf("Person %d", i+1)
	}
	return participants
}

// emptyAssignment builds an all-false items × participants matrix
func emptyAssignment(items, people int) [][]bool {
	assignment := make([][]bool, items)
	for i := range assignment {
		assignment[i] = make([]bool, people)
	}
	return assignment
}

// ProcessCheck stores a check image, runs OCR on it, reconstructs the reading
// order rows and parses them into items. A scan that yields zero items is a
// normal outcome for a blurry photo; the check is created anyway so the user
// can fix it up by hand.
func (s *Service) ProcessCheck(filename string, data []byte, contentType string, people int) (*Check, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	fragments, err := s.recognizer.RecognizeText(data, contentType)
	if err != nil {
		slog.Error("Failed to recognize check text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since recognition failed
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("recognizing check: %w", err)
	}

	rows := layout.ReconstructRows(fragments)
	items := s.extractor.ExtractItems(rows)

	participants := defaultParticipants(people)

	c := &Check{
		ID:           id,
		Items:        items,
		Participants: participants,
		Assignment:   emptyAssignment(len(items), len(participants)),
		PayerIndex:   split.NoPayer,
		ImageFile:    savedPath,
		ContentType:  contentType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.SaveCheck(c); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving check to database: %w", err)
	}

	return c, nil
}

// CreateFromText creates a check from a raw OCR text dump, skipping row
// reconstruction. Used by callers that already have plain text.
func (s *Service) CreateFromText(text string, people int) (*Check, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	items := s.extractor.ExtractItemsFromText(text)
	participants := defaultParticipants(people)

	c := &Check{
		ID:           id,
		Items:        items,
		Participants: participants,
		Assignment:   emptyAssignment(len(items), len(participants)),
		PayerIndex:   split.NoPayer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.SaveCheck(c); err != nil {
		return nil, fmt.Errorf("saving check to database: %w", err)
	}

	return c, nil
}

// GetCheck retrieves a check by ID
func (s *Service) GetCheck(id string) (*Check, error) {
	c, err := s.db.GetCheck(id)
	if err != nil {
		return nil, fmt.Errorf("getting check: %w", err)
	}
	return c, nil
}

// ListChecks returns all checks
func (s *Service) ListChecks() ([]*Check, error) {
	checks, err := s.db.ListChecks()
	if err != nil {
		return nil, fmt.Errorf("listing checks: %w", err)
	}
	return checks, nil
}

// DeleteCheck removes a check and its stored image
func (s *Service) DeleteCheck(id string) error {
	c, err := s.db.GetCheck(id)
	if err != nil {
		return fmt.Errorf("getting check for deletion: %w", err)
	}

	if c.ImageFile != "" {
		if err := s.storage.Delete(c.ImageFile); err != nil {
			slog.Warn("Failed to delete file", "filename", c.ImageFile, "error", err)
		}
	}

	if err := s.db.DeleteCheck(id); err != nil {
		return fmt.Errorf("deleting check from database: %w", err)
	}
	return nil
}

// GetCheckImage retrieves the stored image for a check
func (s *Service) GetCheckImage(id string) ([]byte, string, error) {
	c, err := s.db.GetCheck(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting check: %w", err)
	}
	if c.ImageFile == "" {
		return nil, "", fmt.Errorf("check %s has no image", id)
	}

	data, err := s.storage.Get(c.ImageFile)
	if err != nil {
		return nil, "", fmt.Errorf("getting check image: %w", err)
	}

	return data, c.ContentType, nil
}

// DeleteItem removes an item and its assignment row in lock-step, so the
// matrix always stays items × participants
func (s *Service) DeleteItem(id string, index int) (*Check, error) {
	c, err := s.db.GetCheck(id)
	if err != nil {
		return nil, fmt.Errorf("getting check: %w", err)
	}

	if index < 0 || index >= len(c.Items) {
		return nil, fmt.Errorf("%w: item index %d with %d items", split.ErrIndexOutOfRange, index, len(c.Items))
	}

	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	c.Assignment = append(c.Assignment[:index], c.Assignment[index+1:]...)
	c.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveCheck(c); err != nil {
		return nil, fmt.Errorf("saving check: %w", err)
	}
	return c, nil
}

// RenameParticipant changes a participant's display name. A blank name falls
// back to the positional default at settlement time.
func (s *Service) RenameParticipant(id string, index int, name string) (*Check, error) {
	c, err := s.db.GetCheck(id)
	if err != nil {
		return nil, fmt.Errorf("getting check: %w", err)
	}

	if index < 0 || index >= len(c.Participants) {
		return nil, fmt.Errorf("%w: participant index %d with %d participants", split.ErrIndexOutOfRange, index, len(c.Participants))
	}

	c.Participants[index] = strings.TrimSpace(name)
	c.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveCheck(c); err != nil {
		return nil, fmt.Errorf("saving check: %w", err)
	}
	return c, nil
}

// SetAssignment marks whether a participant shares an item
func (s *Service) SetAssignment(id string, itemIndex, participantIndex int, shared bool) (*Check, error) {
	c, err := s.db.GetCheck(id)
	if err != nil {
		return nil, fmt.Errorf("getting check: %w", err)
	}

	if itemIndex < 0 || itemIndex >= len(c.Items) {
		return nil, fmt.Errorf("%w: item index %d with %d items", split.ErrIndexOutOfRange, itemIndex, len(c.Items))
	}
	if participantIndex < 0 || participantIndex >= len(c.Participants) {
		return nil, fmt.Errorf("%w: participant index %d with %d participants", split.ErrIndexOutOfRange, participantIndex, len(c.Participants))
	}

	c.Assignment[itemIndex][participantIndex] = shared
	c.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveCheck(c); err != nil {
		return nil, fmt.Errorf("saving check: %w", err)
	}
	return c, nil
}

// SetPayer designates which participant paid the check. split.NoPayer clears
// the designation.
func (s *Service) SetPayer(id string, index int) (*Check, error) {
	c, err := s.db.GetCheck(id)
	if err != nil {
		return nil, fmt.Errorf("getting check: %w", err)
	}

	if index != split.NoPayer && (index < 0 || index >= len(c.Participants)) {
		return nil, fmt.Errorf("%w: payer index %d with %d participants", split.ErrIndexOutOfRange, index, len(c.Participants))
	}

	c.PayerIndex = index
	c.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveCheck(c); err != nil {
		return nil, fmt.Errorf("saving check: %w", err)
	}
	return c, nil
}

// Summary computes the current settlement for a check
func (s *Service) Summary(id string) (*split.Result, error) {
	c, err := s.db.GetCheck(id)
	if err != nil {
		return nil, fmt.Errorf("getting check: %w", err)
	}

	result, err := split.Compute(c.Items, c.Participants, c.Assignment, c.PayerIndex)
	if err != nil {
		return nil, fmt.Errorf("computing split: %w", err)
	}
	return result, nil
}
