package memory

import (
	"time"

	"ai-docagent-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository holds agent sessions in memory. Sessions are ephemeral:
// they live for the editing interaction and expire with inactivity.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
	// Document index: one active session per document
	r.cache.Set("doc:"+session.DocumentID, session.ID, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

// GetByDocument returns the active session for a document, if any.
func (r *SessionRepository) GetByDocument(documentID string) (*store.Session, bool) {
	x, found := r.cache.Get("doc:" + documentID)
	if !found {
		return nil, false
	}
	return r.Get(x.(string))
}

func (r *SessionRepository) Delete(sessionID string) {
	if sess, found := r.Get(sessionID); found {
		r.cache.Delete("doc:" + sess.DocumentID)
	}
	r.cache.Delete(sessionID)
}
