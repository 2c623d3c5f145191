// Package loader implementa la carga por lotes con caché por petición: las claves
// pedidas dentro de una ventana corta (o en una sola llamada a LoadMany) se
// resuelven con un único fetch.
package loader

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Valores por defecto de Config.
const (
	DefaultWait      = time.Millisecond
	DefaultMaxBatch  = 100
	DefaultCacheSize = 1000
)

// Config controla la ventana de agrupación, el tamaño máximo de un fetch y el de la caché.
type Config struct {
	Wait      time.Duration
	MaxBatch  int
	CacheSize int
	// OnFetch se invoca tras cada fetch con el nombre del loader y la cantidad de claves.
	OnFetch func(name string, keys int)
}

func (c Config) withDefaults() Config {
	if c.Wait <= 0 {
		c.Wait = DefaultWait
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = DefaultMaxBatch
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	return c
}

// FetchFunc resuelve un lote de claves. Las claves ausentes del mapa se reportan como no encontradas.
type FetchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Result es el valor de una clave en LoadMany; Found=false representa "no encontrado".
type Result[V any] struct {
	Value V
	Found bool
}

type thunk[V any] struct {
	done  chan struct{}
	value V
	found bool
	err   error
}

func (t *thunk[V]) wait(ctx context.Context) (V, bool, error) {
	select {
	case <-t.done:
		return t.value, t.found, t.err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

type batch[K comparable, V any] struct {
	ctx    context.Context
	keys   []K
	thunks []*thunk[V]
}

// core es el despachador genérico compartido por ByID y ByForeignKey.
type core[K comparable, V any] struct {
	name  string
	fetch FetchFunc[K, V]
	cfg   Config

	mu      sync.Mutex
	cache   *lru.Cache[K, *thunk[V]]
	current *batch[K, V]
}

func newCore[K comparable, V any](name string, cfg Config, fetch FetchFunc[K, V]) *core[K, V] {
	cfg = cfg.withDefaults()
	cache, err := lru.New[K, *thunk[V]](cfg.CacheSize)
	if err != nil {
		// lru.New solo falla con tamaño <= 0, que withDefaults descarta.
		panic(err)
	}
	return &core[K, V]{name: name, fetch: fetch, cfg: cfg, cache: cache}
}

// enqueueLocked devuelve el thunk de la clave, agregándola al lote actual si no está en caché.
// Si el lote alcanza MaxBatch se devuelve para despacharlo fuera del lock.
func (c *core[K, V]) enqueueLocked(ctx context.Context, key K) (*thunk[V], *batch[K, V]) {
	if t, ok := c.cache.Get(key); ok {
		return t, nil
	}
	t := &thunk[V]{done: make(chan struct{})}
	c.cache.Add(key, t)

	if c.current == nil {
		b := &batch[K, V]{ctx: ctx}
		c.current = b
		time.AfterFunc(c.cfg.Wait, func() { c.dispatchIfCurrent(b) })
	}
	c.current.keys = append(c.current.keys, key)
	c.current.thunks = append(c.current.thunks, t)

	if len(c.current.keys) >= c.cfg.MaxBatch {
		full := c.current
		c.current = nil
		return t, full
	}
	return t, nil
}

func (c *core[K, V]) dispatchIfCurrent(b *batch[K, V]) {
	c.mu.Lock()
	if c.current != b {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()
	c.run(b)
}

func (c *core[K, V]) run(b *batch[K, V]) {
	res, err := c.fetch(b.ctx, b.keys)
	if c.cfg.OnFetch != nil {
		c.cfg.OnFetch(c.name, len(b.keys))
	}
	for i, key := range b.keys {
		t := b.thunks[i]
		if err != nil {
			t.err = err
			c.mu.Lock()
			if cached, ok := c.cache.Peek(key); ok && cached == t {
				c.cache.Remove(key)
			}
			c.mu.Unlock()
		} else {
			t.value, t.found = res[key]
		}
		close(t.done)
	}
}

func (c *core[K, V]) load(ctx context.Context, key K) (V, bool, error) {
	c.mu.Lock()
	t, full := c.enqueueLocked(ctx, key)
	c.mu.Unlock()
	if full != nil {
		go c.run(full)
	}
	return t.wait(ctx)
}

// loadMany encola todas las claves bajo un mismo lock y despacha de inmediato el lote
// pendiente, partido en trozos de MaxBatch.
func (c *core[K, V]) loadMany(ctx context.Context, keys []K) ([]*thunk[V], error) {
	thunks := make([]*thunk[V], len(keys))
	var ready []*batch[K, V]

	c.mu.Lock()
	for i, key := range keys {
		t, full := c.enqueueLocked(ctx, key)
		thunks[i] = t
		if full != nil {
			ready = append(ready, full)
		}
	}
	if c.current != nil {
		ready = append(ready, c.current)
		c.current = nil
	}
	c.mu.Unlock()

	for _, b := range ready {
		go c.run(b)
	}
	for _, t := range thunks {
		if _, _, err := t.wait(ctx); err != nil {
			return nil, err
		}
	}
	return thunks, nil
}

func (c *core[K, V]) clear(key K) {
	c.mu.Lock()
	c.cache.Remove(key)
	c.mu.Unlock()
}

func (c *core[K, V]) prime(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &thunk[V]{done: make(chan struct{}), value: v, found: true}
	close(t.done)
	c.cache.Add(key, t)
}

// ── ByID ──────────────────────────────────────────────────────────────────────

// ByID carga entidades por clave primaria.
type ByID[K comparable, V any] struct {
	c *core[K, V]
}

// NewByID construye un loader por ID.
func NewByID[K comparable, V any](name string, cfg Config, fetch FetchFunc[K, V]) *ByID[K, V] {
	return &ByID[K, V]{c: newCore(name, cfg, fetch)}
}

// Load devuelve el valor de la clave; found=false si no existe (no es un error).
func (l *ByID[K, V]) Load(ctx context.Context, key K) (V, bool, error) {
	return l.c.load(ctx, key)
}

// LoadMany devuelve un resultado por clave en el orden pedido.
func (l *ByID[K, V]) LoadMany(ctx context.Context, keys []K) ([]Result[V], error) {
	thunks, err := l.c.loadMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]Result[V], len(thunks))
	for i, t := range thunks {
		out[i] = Result[V]{Value: t.value, Found: t.found}
	}
	return out, nil
}

// Clear invalida una clave (llamar tras escribir la entidad).
func (l *ByID[K, V]) Clear(key K) { l.c.clear(key) }

// Prime siembra la caché con un valor ya conocido y reemplaza la entrada existente,
// de modo que una lectura posterior a la escritura vea el valor nuevo.
func (l *ByID[K, V]) Prime(key K, v V) { l.c.prime(key, v) }

// ── ByForeignKey ──────────────────────────────────────────────────────────────

// ByForeignKey carga relaciones 1-a-N agrupadas por clave foránea.
type ByForeignKey[K comparable, V any] struct {
	c *core[K, []V]
}

// GroupFunc devuelve la clave foránea de un valor.
type GroupFunc[K comparable, V any] func(V) K

// NewByForeignKey construye un loader 1-a-N. fetch devuelve las filas planas;
// group extrae la clave foránea de cada una.
func NewByForeignKey[K comparable, V any](name string, cfg Config, fetch func(ctx context.Context, keys []K) ([]V, error), group GroupFunc[K, V]) *ByForeignKey[K, V] {
	grouped := func(ctx context.Context, keys []K) (map[K][]V, error) {
		rows, err := fetch(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make(map[K][]V, len(keys))
		for _, r := range rows {
			k := group(r)
			out[k] = append(out[k], r)
		}
		return out, nil
	}
	return &ByForeignKey[K, V]{c: newCore(name, cfg, grouped)}
}

// LoadByForeignKey devuelve la lista (posiblemente vacía, nunca nil) de la clave.
func (l *ByForeignKey[K, V]) LoadByForeignKey(ctx context.Context, key K) ([]V, error) {
	v, _, err := l.c.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []V{}
	}
	return v, nil
}

// LoadManyByForeignKey devuelve una lista por clave en el orden pedido.
func (l *ByForeignKey[K, V]) LoadManyByForeignKey(ctx context.Context, keys []K) ([][]V, error) {
	thunks, err := l.c.loadMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([][]V, len(thunks))
	for i, t := range thunks {
		out[i] = t.value
		if out[i] == nil {
			out[i] = []V{}
		}
	}
	return out, nil
}

// Clear invalida una clave.
func (l *ByForeignKey[K, V]) Clear(key K) { l.c.clear(key) }
