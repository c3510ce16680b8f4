package assets

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dankdonk/openmw-sub003/internal/engine/model"
	"github.com/dankdonk/openmw-sub003/internal/engine/physics"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// Loader returns the bytes of a named file. *Manager implements it.
type Loader interface {
	Load(name, group string) ([]byte, error)
}

// ModelOptions are the defaults applied to every model the cache builds.
type ModelOptions struct {
	SkeletonRoots        []string
	IncludeHidden        bool
	IncludeEditorMarkers bool
	SkinTexture          string
	Log                  *zap.Logger
	// OnDecode is called each time a file is parsed.
	OnDecode func(name, group string)
}

type fileKey struct {
	name, group string
}

type modelKey struct {
	file     fileKey
	variant  model.Variant
	skeleton *model.Skeleton
	morph    string
}

func (k modelKey) String() string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%p\x00%s", k.file.name, k.file.group, k.variant, k.skeleton, k.morph)
}

// parsed is one decoded file. Builds against it are serialised because
// they register sub-meshes in the file's build state.
type parsed struct {
	file *nif.File
	mu   sync.Mutex
}

// ModelCache builds models on first request and returns the cached result
// afterwards. Parsed files are shared by every variant of the same name and
// group. Concurrent requests for one key wait for a single build; failed
// builds are not cached.
type ModelCache struct {
	loader Loader
	opts   ModelOptions
	log    *zap.Logger

	mu      sync.Mutex
	files   map[fileKey]*parsed
	models  map[modelKey]*model.Model
	scenes  map[fileKey]*physics.Scene
	// gens counts Unload calls per file. Work started under an older
	// generation is returned to its caller but not stored.
	gens    map[fileKey]uint64
	flights singleflight.Group
}

// NewModelCache returns an empty cache reading files through loader.
func NewModelCache(loader Loader, opts ModelOptions) *ModelCache {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelCache{
		loader: loader,
		opts:   opts,
		log:    log,
		files:  make(map[fileKey]*parsed),
		models: make(map[modelKey]*model.Model),
		scenes: make(map[fileKey]*physics.Scene),
		gens:   make(map[fileKey]uint64),
	}
}

func (c *ModelCache) generation(fk fileKey) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[fk]
}

func newFileKey(name, group string) fileKey {
	return fileKey{name: NormalizeName(name), group: group}
}

// GetOrLoad returns the plain model for name.
func (c *ModelCache) GetOrLoad(name, group string) (*model.Model, error) {
	return c.get(modelKey{file: newFileKey(name, group), variant: model.VariantPlain})
}

// CreateSkinned returns name skinned against skel. Each skeleton gets its
// own cache entry.
func (c *ModelCache) CreateSkinned(name, group string, skel *model.Skeleton) (*model.Model, error) {
	if skel == nil {
		return nil, fmt.Errorf("%w: skinned %s without a skeleton", nif.ErrStructure, name)
	}
	return c.get(modelKey{file: newFileKey(name, group), variant: model.VariantSkinned, skeleton: skel})
}

// CreateMorphed returns name with the morph target applied. morph is a
// target name or "#n".
func (c *ModelCache) CreateMorphed(name, group, morph string) (*model.Model, error) {
	return c.get(modelKey{file: newFileKey(name, group), variant: model.VariantMorphed, morph: morph})
}

// CreateSkeletonOnly returns the skeleton and clips of name without meshes.
func (c *ModelCache) CreateSkeletonOnly(name, group string) (*model.Model, error) {
	return c.get(modelKey{file: newFileKey(name, group), variant: model.VariantSkeletonOnly})
}

// Collision returns the collision scene of name.
func (c *ModelCache) Collision(name, group string) (*physics.Scene, error) {
	fk := newFileKey(name, group)
	c.mu.Lock()
	s, ok := c.scenes[fk]
	c.mu.Unlock()
	if ok {
		return s, nil
	}

	v, err, _ := c.flights.Do("collision\x00"+fk.name+"\x00"+fk.group, func() (any, error) {
		gen := c.generation(fk)
		p, err := c.parse(fk)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		s, err := physics.Build(p.file, physics.Options{Log: c.log})
		p.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("collision %s: %w", fk.name, err)
		}
		c.mu.Lock()
		if c.gens[fk] == gen {
			c.scenes[fk] = s
		}
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*physics.Scene), nil
}

func (c *ModelCache) get(key modelKey) (*model.Model, error) {
	c.mu.Lock()
	m, ok := c.models[key]
	c.mu.Unlock()
	if ok {
		return m, nil
	}

	v, err, shared := c.flights.Do(key.String(), func() (any, error) {
		// A build that finished between the lookup and Do is reused.
		c.mu.Lock()
		m, ok := c.models[key]
		c.mu.Unlock()
		if ok {
			return m, nil
		}
		return c.build(key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("model build shared", zap.String("name", key.file.name))
	}
	return v.(*model.Model), nil
}

func (c *ModelCache) build(key modelKey) (*model.Model, error) {
	gen := c.generation(key.file)
	p, err := c.parse(key.file)
	if err != nil {
		return nil, err
	}
	opts := model.Options{
		Variant:              key.variant,
		Skeleton:             key.skeleton,
		Morph:                key.morph,
		SkinTexture:          c.opts.SkinTexture,
		IncludeHidden:        c.opts.IncludeHidden,
		IncludeEditorMarkers: c.opts.IncludeEditorMarkers,
		Log:                  c.log,
	}
	p.mu.Lock()
	m, err := model.Build(p.file, opts)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("building %s (%s): %w", key.file.name, key.variant, err)
	}

	c.mu.Lock()
	stale := c.gens[key.file] != gen
	if !stale {
		c.models[key] = m
	}
	c.mu.Unlock()
	if stale {
		c.log.Debug("model unloaded during build", zap.String("name", key.file.name))
		return m, nil
	}
	c.log.Debug("model cached",
		zap.String("name", key.file.name),
		zap.String("group", key.file.group),
		zap.Stringer("variant", key.variant))
	return m, nil
}

// parse returns the decoded file for fk, decoding it once.
func (c *ModelCache) parse(fk fileKey) (*parsed, error) {
	c.mu.Lock()
	p, ok := c.files[fk]
	c.mu.Unlock()
	if ok {
		return p, nil
	}

	v, err, _ := c.flights.Do("file\x00"+fk.name+"\x00"+fk.group, func() (any, error) {
		c.mu.Lock()
		p, ok := c.files[fk]
		c.mu.Unlock()
		if ok {
			return p, nil
		}
		gen := c.generation(fk)
		data, err := c.loader.Load(fk.name, fk.group)
		if err != nil {
			return nil, err
		}
		d := nif.Decoder{Log: c.log, SkeletonRoots: c.opts.SkeletonRoots}
		f, err := d.Load(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", fk.name, err)
		}
		if c.opts.OnDecode != nil {
			c.opts.OnDecode(fk.name, fk.group)
		}
		p = &parsed{file: f}
		c.mu.Lock()
		if c.gens[fk] == gen {
			c.files[fk] = p
		}
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*parsed), nil
}

// Unload drops every model, scene and parsed file of name in group.
func (c *ModelCache) Unload(name, group string) {
	fk := newFileKey(name, group)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[fk]++
	delete(c.files, fk)
	delete(c.scenes, fk)
	for k := range c.models {
		if k.file == fk {
			delete(c.models, k)
		}
	}
}

// Len returns the number of cached models across all variants.
func (c *ModelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.models)
}
