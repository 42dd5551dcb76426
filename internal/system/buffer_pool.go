package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool переиспользует *image.RGBA одного размера между кадрами,
// чтобы рендер линейки не нагружал GC.
type ImagePool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex

	allocs atomic.Int64
}

// NewImagePool создает пустой пул.
func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

var globalPool = NewImagePool()

// GetImage берет очищенное изображение размера rect из общего пула.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutImage возвращает изображение в общий пул.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

// Get возвращает изображение размера rect. Пиксели всегда обнулены.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Повторная проверка под записью
		pool, exists = p.pools[rect]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					p.allocs.Add(1)
					return image.NewRGBA(rect)
				},
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	img := pool.Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// Put возвращает изображение. Изображения неизвестных размеров отбрасываются.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}

// Allocations считает, сколько изображений пул создал с нуля.
func (p *ImagePool) Allocations() int64 {
	return p.allocs.Load()
}
