package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketplace-server/models"
	"marketplace-server/types"
	"marketplace-server/utils"
)

// MemoryStore keeps requests and reviews in process memory. It backs the
// offline client mode and the backend's STORE_DRIVER=memory, and can be
// snapshotted to a JSON file between runs.
type MemoryStore struct {
	mu            sync.RWMutex
	requests      map[uint]*models.ServiceRequest
	reviews       map[uint]*models.Review // keyed by request id
	nextRequestID uint
	nextReviewID  uint
	dirty         bool
	now           func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:      make(map[uint]*models.ServiceRequest),
		reviews:       make(map[uint]*models.Review),
		nextRequestID: 1,
		nextReviewID:  1,
		now:           time.Now,
	}
}

func (s *MemoryStore) ListByCustomer(ctx context.Context, customerID uint, page, pageSize int) (*models.Page[models.ServiceRequest], error) {
	return s.list(page, pageSize, func(r *models.ServiceRequest) bool { return r.CustomerID == customerID })
}

func (s *MemoryStore) ListByProvider(ctx context.Context, providerID uint, page, pageSize int) (*models.Page[models.ServiceRequest], error) {
	return s.list(page, pageSize, func(r *models.ServiceRequest) bool { return r.ProviderID == providerID })
}

func (s *MemoryStore) ListAll(ctx context.Context, page, pageSize int) (*models.Page[models.ServiceRequest], error) {
	return s.list(page, pageSize, func(*models.ServiceRequest) bool { return true })
}

func (s *MemoryStore) list(page, pageSize int, keep func(*models.ServiceRequest) bool) (*models.Page[models.ServiceRequest], error) {
	page, pageSize = models.NormalizePage(page, pageSize)

	s.mu.RLock()
	matched := make([]*models.ServiceRequest, 0, len(s.requests))
	for _, r := range s.requests {
		if keep(r) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	// newest first, same as the SQL store
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	result := &models.Page[models.ServiceRequest]{
		Items:    []models.ServiceRequest{},
		Page:     page,
		PageSize: pageSize,
		Total:    int64(len(matched)),
	}
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return result, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	for _, r := range matched[start:end] {
		result.Items = append(result.Items, *r.Clone())
	}
	return result, nil
}

func (s *MemoryStore) Get(ctx context.Context, id uint) (*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, notFound("Get", "request", id)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, req *models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	req.ID = s.nextRequestID
	s.nextRequestID++
	req.Status = models.StatusPending
	req.FinalPrice = nil
	req.CompletedAt = nil
	req.CreatedAt = now
	req.UpdatedAt = now

	s.requests[req.ID] = req.Clone()
	s.dirty = true
	return nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id uint, to models.Status) (*models.ServiceRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[id]
	if !ok {
		return nil, false, notFound("UpdateStatus", "request", id)
	}
	applied, err := applyStatus(current, to)
	if err != nil {
		return nil, false, err
	}
	if applied {
		current.UpdatedAt = s.now()
		s.dirty = true
	}
	return current.Clone(), applied, nil
}

func (s *MemoryStore) Complete(ctx context.Context, id uint, finalPrice float64) (*models.ServiceRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[id]
	if !ok {
		return nil, false, notFound("Complete", "request", id)
	}
	applied, err := applyCompletion(current, finalPrice)
	if err != nil {
		return nil, false, err
	}
	if applied {
		now := s.now()
		current.CompletedAt = &now
		current.UpdatedAt = now
		s.dirty = true
	}
	return current.Clone(), applied, nil
}

func (s *MemoryStore) CreateReview(ctx context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reviews[review.RequestID]; exists {
		return types.NewError(types.KindDuplicate, "CreateReview",
			fmt.Sprintf("request %d already has a review", review.RequestID))
	}
	review.ID = s.nextReviewID
	s.nextReviewID++
	review.CreatedAt = s.now()

	stored := *review
	s.reviews[review.RequestID] = &stored
	s.dirty = true
	return nil
}

func (s *MemoryStore) ReviewForRequest(ctx context.Context, requestID uint) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reviews[requestID]
	if !ok {
		return nil, notFound("ReviewForRequest", "review for request", requestID)
	}
	out := *r
	return &out, nil
}

type memorySnapshot struct {
	NextRequestID uint                    `json:"next_request_id"`
	NextReviewID  uint                    `json:"next_review_id"`
	Requests      []models.ServiceRequest `json:"requests"`
	Reviews       []models.Review         `json:"reviews"`
	SavedAt       time.Time               `json:"saved_at"`
}

// Snapshot writes the full store content as JSON
func (s *MemoryStore) Snapshot(w io.Writer) error {
	s.mu.RLock()
	snap := memorySnapshot{
		NextRequestID: s.nextRequestID,
		NextReviewID:  s.nextReviewID,
		Requests:      make([]models.ServiceRequest, 0, len(s.requests)),
		Reviews:       make([]models.Review, 0, len(s.reviews)),
		SavedAt:       s.now().UTC(),
	}
	for _, r := range s.requests {
		snap.Requests = append(snap.Requests, *r.Clone())
	}
	for _, r := range s.reviews {
		snap.Reviews = append(snap.Reviews, *r)
	}
	s.mu.RUnlock()

	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].ID < snap.Requests[j].ID })
	sort.Slice(snap.Reviews, func(i, j int) bool { return snap.Reviews[i].ID < snap.Reviews[j].ID })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Restore replaces the store content with a snapshot
func (s *MemoryStore) Restore(r io.Reader) error {
	var snap memorySnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	requests := make(map[uint]*models.ServiceRequest, len(snap.Requests))
	maxRequestID := uint(0)
	for i := range snap.Requests {
		req := snap.Requests[i]
		requests[req.ID] = &req
		if req.ID > maxRequestID {
			maxRequestID = req.ID
		}
	}
	reviews := make(map[uint]*models.Review, len(snap.Reviews))
	maxReviewID := uint(0)
	for i := range snap.Reviews {
		rev := snap.Reviews[i]
		reviews[rev.RequestID] = &rev
		if rev.ID > maxReviewID {
			maxReviewID = rev.ID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = requests
	s.reviews = reviews
	s.nextRequestID = maxUint(snap.NextRequestID, maxRequestID+1)
	s.nextReviewID = maxUint(snap.NextReviewID, maxReviewID+1)
	s.dirty = false
	return nil
}

// SaveFile writes a snapshot atomically through a temp file
func (s *MemoryStore) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	if err := s.Snapshot(tmp); err != nil {
		tmp.Close()
		s.markDirty()
		return err
	}
	if err := tmp.Close(); err != nil {
		s.markDirty()
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		s.markDirty()
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// LoadFile restores from path. A missing file leaves the store empty.
func (s *MemoryStore) LoadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		utils.GetLogger().Info("No snapshot found, starting with an empty store", zap.String("path", path))
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Restore(f)
}

// Dirty reports whether anything changed since the last save or restore
func (s *MemoryStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *MemoryStore) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

func maxUint(a, b uint) uint {
	if a > b {
		return a
	}
	return b
}
