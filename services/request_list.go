package services

import (
	"sync"

	"marketplace-server/models"
)

// RequestList is the list a dashboard view holds. It only ever changes by
// taking whole entities the backend returned.
type RequestList struct {
	mu    sync.RWMutex
	items []models.ServiceRequest
	total int64
}

func NewRequestList() *RequestList {
	return &RequestList{}
}

// Replace swaps the content for a freshly fetched page
func (l *RequestList) Replace(page *models.Page[models.ServiceRequest]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if page == nil {
		l.items, l.total = nil, 0
		return
	}
	l.items = make([]models.ServiceRequest, len(page.Items))
	for i := range page.Items {
		l.items[i] = *page.Items[i].Clone()
	}
	l.total = page.Total
}

// Apply replaces the entry with the same id. Unknown entities are put on top.
func (l *RequestList) Apply(req *models.ServiceRequest) {
	if req == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == req.ID {
			l.items[i] = *req.Clone()
			return
		}
	}
	l.items = append([]models.ServiceRequest{*req.Clone()}, l.items...)
	l.total++
}

func (l *RequestList) Items() []models.ServiceRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.ServiceRequest, len(l.items))
	for i := range l.items {
		out[i] = *l.items[i].Clone()
	}
	return out
}

func (l *RequestList) Get(id uint) (*models.ServiceRequest, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.items {
		if l.items[i].ID == id {
			return l.items[i].Clone(), true
		}
	}
	return nil, false
}

func (l *RequestList) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
