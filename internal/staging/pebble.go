package staging

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore реализует Store поверх локальной базы PebbleDB.
// Ключ — имя объекта, значение — его содержимое.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore открывает staging-хранилище в указанном каталоге.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// List возвращает имена объектов с указанным префиксом в порядке ключей.
func (p *PebbleStore) List(ctx context.Context, prefix string) ([]string, error) {
	iter, err := p.db.NewIter(prefixIterOptions(prefix))
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer iter.Close()

	var names []string
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		names = append(names, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebble scan: %w", err)
	}
	return names, nil
}

// Put сохраняет объект под указанным именем.
func (p *PebbleStore) Put(_ context.Context, name string, data []byte) error {
	if err := p.db.Set([]byte(name), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

// Delete удаляет объект по имени.
func (p *PebbleStore) Delete(_ context.Context, name string) error {
	if err := p.db.Delete([]byte(name), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	return nil
}

// Close закрывает базу.
func (p *PebbleStore) Close() error { return p.db.Close() }

func prefixIterOptions(prefix string) *pebble.IterOptions {
	if prefix == "" {
		return &pebble.IterOptions{}
	}
	lower := []byte(prefix)
	upper := make([]byte, len(lower))
	copy(upper, lower)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			upper = upper[:i+1]
			return &pebble.IterOptions{LowerBound: lower, UpperBound: upper}
		}
	}
	return &pebble.IterOptions{LowerBound: lower}
}
