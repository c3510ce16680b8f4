package assets

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Manager searches its locators newest first and caches the raw bytes it
// finds.
type Manager struct {
	locators []Locator
	cache    *Cache
	nocache  bool
	log      *zap.Logger
	mu       sync.RWMutex
}

// NewManager creates a new asset manager. A nil logger is silent.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cache: NewCache(),
		log:   log,
	}
}

// AddLocator adds a locator with the highest priority so far.
func (m *Manager) AddLocator(l Locator) {
	m.mu.Lock()
	m.locators = append(m.locators, l)
	m.mu.Unlock()
	m.cache.Clear()
	m.log.Debug("locator added", zap.Stringer("locator", l))
}

// SetCaching turns the raw byte cache on or off. Turning it off drops
// what it holds.
func (m *Manager) SetCaching(on bool) {
	m.mu.Lock()
	m.nocache = !on
	m.mu.Unlock()
	if !on {
		m.cache.Clear()
	}
}

// AddDir adds a loose file directory.
func (m *Manager) AddDir(dir, group string) {
	m.AddLocator(NewDirLocator(dir, group))
}

// AddArchive opens and adds a BSA archive.
func (m *Manager) AddArchive(path, group string) error {
	l, err := OpenArchiveLocator(path, group)
	if err != nil {
		return err
	}
	m.AddLocator(l)
	return nil
}

// Load returns the bytes of name in group.
func (m *Manager) Load(name, group string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := cacheKey(name, group)
	if !m.nocache {
		if data, ok := m.cache.Get(key); ok {
			return data, nil
		}
	}

	// Search locators in reverse order
	for i := len(m.locators) - 1; i >= 0; i-- {
		data, err := m.locators[i].Locate(name, group)
		if err == nil {
			if !m.nocache {
				m.cache.Set(key, data)
			}
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", m.locators[i], err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Cache returns the raw byte cache.
func (m *Manager) Cache() *Cache { return m.cache }

// Close closes every locator that holds resources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, l := range m.locators {
		if c, ok := l.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	m.locators = nil
	m.cache.Clear()
	return errors.Join(errs...)
}

func cacheKey(name, group string) string {
	return NormalizeName(name) + "\x00" + group
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
