package identity

import (
	"sync"
	"time"
)

const defaultTTL = 10 * time.Minute

// cache holds two independent indices over the same employee records.
// Entries expire after the TTL and are evicted lazily on the next read;
// there is no background sweep.
type cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	byEmail  map[string]cacheEntry
	byPerson map[int]cacheEntry
	now      func() time.Time
}

type cacheEntry struct {
	emp       Employee
	expiresAt time.Time
}

func newCache(ttl time.Duration) *cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &cache{
		ttl:      ttl,
		byEmail:  make(map[string]cacheEntry),
		byPerson: make(map[int]cacheEntry),
		now:      time.Now,
	}
}

func (c *cache) getByEmail(email string) (Employee, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byEmail[email]
	if !ok {
		return Employee{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.byEmail, email)
		return Employee{}, false
	}
	return entry.emp, true
}

func (c *cache) getByPersonID(personID int) (Employee, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byPerson[personID]
	if !ok {
		return Employee{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.byPerson, personID)
		return Employee{}, false
	}
	return entry.emp, true
}

// put repopulates both indices whenever both keys are known.
func (c *cache) put(email string, emp Employee) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cacheEntry{emp: emp, expiresAt: c.now().Add(c.ttl)}
	if email != "" {
		c.byEmail[email] = entry
	}
	c.byPerson[emp.PersonID] = entry
}
